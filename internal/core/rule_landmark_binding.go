package core

import (
	"context"
	"fmt"

	"scancore/pkg/domain"
)

// LandmarkBindingRule reports landmarks no analysis unit is built on. A
// drawn-but-unbound landmark contributes nothing to extraction and is
// usually an editing leftover; log severity only.
func LandmarkBindingRule() domain.Rule {
	return landmarkBindingRule{}
}

type landmarkBindingRule struct{}

func (landmarkBindingRule) Name() string { return "landmark_binding" }

func (landmarkBindingRule) Evaluate(_ context.Context, candidate *domain.Dataset) (domain.Result, error) {
	res := domain.Result{}
	bound := make(map[domain.LandmarkID]struct{}, len(candidate.Units))
	for _, u := range candidate.Units {
		if u.Landmark != nil {
			bound[*u.Landmark] = struct{}{}
		}
	}
	for _, l := range candidate.Landmarks {
		if _, ok := bound[l.ID]; !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "landmark_binding",
				Severity: domain.SeverityLog,
				Message:  fmt.Sprintf("landmark %q has no analysis unit", l.Name),
				Entity:   domain.EntityLandmark,
				EntityID: string(l.ID),
			})
		}
	}
	return res, nil
}
