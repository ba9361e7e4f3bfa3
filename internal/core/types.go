package core

import "scancore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Dataset            = domain.Dataset
	Track              = domain.Track
	Protocol           = domain.Protocol
	Landmark           = domain.Landmark
	AnalysisUnit       = domain.AnalysisUnit
	FrameSet           = domain.FrameSet
	TimingDomain       = domain.TimingDomain
	UnitKind           = domain.UnitKind
	ConcatOptions      = domain.ConcatOptions
	ExtractOptions     = domain.ExtractOptions
	OutcomeTest        = domain.OutcomeTest
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	PersistentStore    = domain.PersistentStore
)

const (
	EntityDataset  = domain.EntityDataset
	EntityTrack    = domain.EntityTrack
	EntityProtocol = domain.EntityProtocol
	EntityLandmark = domain.EntityLandmark
	EntityUnit     = domain.EntityUnit
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

// NewRulesEngine re-exports the domain rules engine constructor.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
