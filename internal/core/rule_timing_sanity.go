package core

import (
	"context"
	"fmt"
	"time"

	"scancore/pkg/domain"
)

// maxPlausibleDelay bounds the acquisition delay a recording rig can
// produce; anything larger points at a unit mix-up in imported metadata.
const maxPlausibleDelay = 10 * time.Second

// TimingSanityRule blocks protocols whose acquisition delay is outside the
// plausible range for the hardware, and flags events timestamped before the
// acquisition window at warn level.
func TimingSanityRule() domain.Rule {
	return timingSanityRule{}
}

type timingSanityRule struct{}

func (timingSanityRule) Name() string { return "timing_sanity" }

func (timingSanityRule) Evaluate(_ context.Context, candidate *domain.Dataset) (domain.Result, error) {
	res := domain.Result{}
	for _, p := range candidate.Protocols {
		delay := p.AcquisitionDelay
		if delay < 0 {
			delay = -delay
		}
		if delay > maxPlausibleDelay {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "timing_sanity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("protocol %q acquisition delay %s exceeds %s", p.Name, p.AcquisitionDelay, maxPlausibleDelay),
				Entity:   domain.EntityProtocol,
				EntityID: p.Name,
			})
			continue
		}
		for _, e := range p.Events {
			if e.At < -maxPlausibleDelay {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "timing_sanity",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("protocol %q event %q at %s predates the acquisition window", p.Name, e.Label, e.At),
					Entity:   domain.EntityProtocol,
					EntityID: p.Name,
				})
			}
		}
	}
	return res, nil
}

// DefaultRules returns the rule set a freshly constructed engine registers.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		ProtocolCoverageRule(),
		LandmarkBindingRule(),
		TimingSanityRule(),
	}
}

// NewDefaultRulesEngine constructs an engine with the default rules.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	for _, r := range DefaultRules() {
		engine.Register(r)
	}
	return engine
}
