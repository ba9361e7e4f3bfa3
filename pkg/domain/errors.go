package domain

import "fmt"

// EntityType identifies the collection a validation failure refers to.
type EntityType string

// Entity type identifiers used in error values and persistence buckets.
const (
	// EntityDataset identifies the dataset aggregate itself.
	EntityDataset EntityType = "dataset"
	// EntityTrack identifies a primary or secondary track.
	EntityTrack EntityType = "track"
	// EntityProtocol identifies a named protocol.
	EntityProtocol EntityType = "protocol"
	// EntityLandmark identifies a spatial landmark.
	EntityLandmark EntityType = "landmark"
	// EntityUnit identifies an analysis unit.
	EntityUnit EntityType = "analysis_unit"
)

// ErrIndexOutOfRange reports a frame or component index beyond its bound.
type ErrIndexOutOfRange struct {
	Entity EntityType
	Name   string
	Index  int
	Bound  int
}

func (e ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("%s %s: index %d out of range [0,%d)", e.Entity, e.Name, e.Index, e.Bound)
}

// ErrNameCollision reports a name already in use within the dataset.
type ErrNameCollision struct {
	Entity EntityType
	Name   string
}

func (e ErrNameCollision) Error() string {
	return fmt.Sprintf("%s name %q already in use", e.Entity, e.Name)
}

// ErrNotFound reports a missing entity referenced by name or key.
type ErrNotFound struct {
	Entity EntityType
	Name   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Name)
}

// ErrTypeMismatch reports an entity of the wrong kind for an operation.
type ErrTypeMismatch struct {
	Entity EntityType
	Name   string
	Want   string
	Got    string
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("%s %q: want kind %s, got %s", e.Entity, e.Name, e.Want, e.Got)
}

// ErrIncompatibleDatasets reports a failed dataset-level precondition for
// operations that combine two datasets.
type ErrIncompatibleDatasets struct {
	Reason string
}

func (e ErrIncompatibleDatasets) Error() string {
	return fmt.Sprintf("incompatible datasets: %s", e.Reason)
}

// ErrProtocolTimingMismatch reports same-name protocols whose event timings
// cannot be reconciled during a merge.
type ErrProtocolTimingMismatch struct {
	Protocol string
}

func (e ErrProtocolTimingMismatch) Error() string {
	return fmt.Sprintf("protocol %q: event timings do not match", e.Protocol)
}

// ErrUnitIdentityMismatch reports same-name analysis units with diverging
// identity (kind or landmark kind) during a merge.
type ErrUnitIdentityMismatch struct {
	Unit   string
	Reason string
}

func (e ErrUnitIdentityMismatch) Error() string {
	return fmt.Sprintf("analysis unit %q: identity mismatch: %s", e.Unit, e.Reason)
}

// ErrDescriptorMismatch reports a shared descriptor whose values diverge
// between same-name analysis units during a merge.
type ErrDescriptorMismatch struct {
	Unit string
	Key  string
}

func (e ErrDescriptorMismatch) Error() string {
	return fmt.Sprintf("analysis unit %q: descriptor %q differs between datasets", e.Unit, e.Key)
}

// ErrNotAnalysed reports outcome data requested before it exists.
type ErrNotAnalysed struct {
	Unit     string
	Protocol string
	Frame    int
}

func (e ErrNotAnalysed) Error() string {
	return fmt.Sprintf("analysis unit %q: frame %d of protocol %q has no analysed entry", e.Unit, e.Frame, e.Protocol)
}

// ErrSelfLink reports a landmark link whose target is the landmark itself.
type ErrSelfLink struct {
	Landmark string
}

func (e ErrSelfLink) Error() string {
	return fmt.Sprintf("landmark %q cannot link to itself", e.Landmark)
}

// ErrEmptyFrameSet reports an operation that would leave an entity with zero
// frames where at least one is required.
type ErrEmptyFrameSet struct {
	Entity EntityType
	Name   string
}

func (e ErrEmptyFrameSet) Error() string {
	return fmt.Sprintf("%s %q would be left with an empty frame set", e.Entity, e.Name)
}
