package core

import (
	"context"
	"fmt"

	"scancore/pkg/domain"
)

// ProtocolCoverageRule flags frames no protocol's segment set covers. Gaps
// are legal (untriggered acquisition frames exist), so this warns rather
// than blocks, but a dataset with protocols and large uncovered stretches
// usually means a mis-imported metadata file.
func ProtocolCoverageRule() domain.Rule {
	return protocolCoverageRule{}
}

type protocolCoverageRule struct{}

func (protocolCoverageRule) Name() string { return "protocol_coverage" }

func (protocolCoverageRule) Evaluate(_ context.Context, candidate *domain.Dataset) (domain.Result, error) {
	res := domain.Result{}
	if len(candidate.Protocols) == 0 {
		return res, nil
	}
	var covered domain.FrameSet
	for _, p := range candidate.Protocols {
		covered = covered.Union(p.Segments)
	}
	uncovered := candidate.FrameCount() - covered.Len()
	if uncovered > 0 {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "protocol_coverage",
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("%d of %d frames not covered by any protocol", uncovered, candidate.FrameCount()),
			Entity:   domain.EntityDataset,
			EntityID: candidate.Name,
		})
	}
	return res, nil
}
