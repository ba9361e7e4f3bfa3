package domain

import "time"

// TimingDomain tags which acquisition clock a set of event timestamps
// belongs to. Event times are always stored in the domain they were recorded
// in; translated views are derived on demand and never stored untagged.
type TimingDomain string

const (
	// DomainPrimary is the imaging (primary track) clock.
	DomainPrimary TimingDomain = "primary"
	// DomainSecondary is the signal (secondary track) clock.
	DomainSecondary TimingDomain = "secondary"
)

// Opposite returns the other timing domain.
func (d TimingDomain) Opposite() TimingDomain {
	if d == DomainPrimary {
		return DomainSecondary
	}
	return DomainPrimary
}

// TimedLabel is a labelled event timestamp within one timing domain.
type TimedLabel struct {
	Label string        `json:"label"`
	At    time.Duration `json:"at"`
}

// EventTimeTolerance bounds the timestamp difference under which two events
// count as simultaneous when comparing protocols across datasets.
const EventTimeTolerance = 100 * time.Microsecond

func within(a, b, tol time.Duration) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}
