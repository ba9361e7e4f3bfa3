package domain

import "time"

// ProtocolID is a stable handle into a dataset's protocol arena. IDs are
// assigned once per dataset and survive re-sorting of the arena; analysis
// units reference protocols by ID, never by position or pointer.
type ProtocolID int

// Protocol is a named, ordered set of frame indices sharing one
// stimulation/acquisition timing context. Protocol names are unique within a
// dataset; identity across datasets is by name.
type Protocol struct {
	ID       ProtocolID `json:"id"`
	Name     string     `json:"name"`
	Segments FrameSet   `json:"segments"`
	// AcquisitionDelay is the signed offset translating event timestamps
	// between the secondary and primary clocks.
	AcquisitionDelay time.Duration `json:"acquisition_delay"`
	// Events are stored in the domain they were recorded in (Domain below);
	// views in the opposite domain are derived, never stored.
	Events []TimedLabel `json:"events"`
	Domain TimingDomain `json:"domain"`
}

// Clone returns a deep copy.
func (p Protocol) Clone() Protocol {
	cp := p
	cp.Segments = p.Segments.Clone()
	cp.Events = append([]TimedLabel(nil), p.Events...)
	return cp
}

// Translate converts a timestamp between the two timing domains. The
// translation negates the timestamp relative to the acquisition delay and is
// its own inverse.
func (p Protocol) Translate(t time.Duration) time.Duration {
	return p.AcquisitionDelay - t
}

// EventsInDomain returns the protocol's events expressed in the requested
// timing domain. Events already recorded in that domain are copied verbatim;
// otherwise each timestamp is translated through the acquisition delay.
func (p Protocol) EventsInDomain(d TimingDomain) []TimedLabel {
	out := make([]TimedLabel, len(p.Events))
	copy(out, p.Events)
	if d == p.Domain {
		return out
	}
	for i := range out {
		out[i].At = p.Translate(out[i].At)
	}
	return out
}

// ReverseAcquisition returns a copy of the protocol whose events carry the
// translated timestamps of the opposite timing domain, tagged accordingly.
// The original keeps its recorded timestamps; only the returned copy belongs
// to the other domain.
func (p Protocol) ReverseAcquisition() Protocol {
	cp := p.Clone()
	cp.Events = p.EventsInDomain(p.Domain.Opposite())
	cp.Domain = p.Domain.Opposite()
	return cp
}

// EventsCompatible reports whether both protocols recorded the same event
// sequence: same labels, acquisition delays within tolerance, and recorded
// timestamps within tolerance pairwise.
func (p Protocol) EventsCompatible(other Protocol) bool {
	if len(p.Events) != len(other.Events) {
		return false
	}
	if !within(p.AcquisitionDelay, other.AcquisitionDelay, EventTimeTolerance) {
		return false
	}
	a := p.EventsInDomain(DomainSecondary)
	b := other.EventsInDomain(DomainSecondary)
	for i := range a {
		if a[i].Label != b[i].Label || !within(a[i].At, b[i].At, EventTimeTolerance) {
			return false
		}
	}
	return true
}

// ImagingCompatible reports whether both protocols agree once projected into
// the primary (imaging) domain, even when their acquisition delays differ.
// It is the weaker fallback check used during concatenation.
func (p Protocol) ImagingCompatible(other Protocol) bool {
	if len(p.Events) != len(other.Events) {
		return false
	}
	a := p.EventsInDomain(DomainPrimary)
	b := other.EventsInDomain(DomainPrimary)
	for i := range a {
		if a[i].Label != b[i].Label || !within(a[i].At, b[i].At, EventTimeTolerance) {
			return false
		}
	}
	return true
}
