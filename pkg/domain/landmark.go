package domain

import "fmt"

// LandmarkID is the in-memory handle of a landmark within one dataset.
// Cross-dataset equivalence is decided by (name, kind), never by ID.
type LandmarkID string

// LandmarkKind classifies a landmark's geometry.
type LandmarkKind string

const (
	// KindPoint marks a single-coordinate landmark.
	KindPoint LandmarkKind = "point"
	// KindLine marks a polyline landmark with a scan width.
	KindLine LandmarkKind = "line"
	// KindRegion marks a closed polygon region.
	KindRegion LandmarkKind = "region"
)

// StorageLocation records which track family a landmark was drawn on.
type StorageLocation string

const (
	// LocationPrimary stores the landmark against the imaging tracks.
	LocationPrimary StorageLocation = "primary"
	// LocationSecondary stores the landmark against the signal tracks.
	LocationSecondary StorageLocation = "secondary"
)

// Point is a 2-D coordinate in calibrated track space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkState is the geometry of a landmark in one frame (or all frames,
// when uniform).
type LandmarkState struct {
	Points []Point `json:"points"`
	Width  float64 `json:"width,omitempty"`
}

// Clone returns a deep copy.
func (s LandmarkState) Clone() LandmarkState {
	cp := s
	cp.Points = append([]Point(nil), s.Points...)
	return cp
}

// FrameStates is the frame-state association of a landmark: exactly one of
// Uniform (one shared state for every frame) or PerFrame (explicit states
// keyed by frame index) is populated.
type FrameStates struct {
	Uniform  *LandmarkState        `json:"uniform,omitempty"`
	PerFrame map[int]LandmarkState `json:"per_frame,omitempty"`
}

// IsUniform reports whether one state is shared across all frames.
func (f FrameStates) IsUniform() bool { return f.Uniform != nil }

// Clone returns a deep copy.
func (f FrameStates) Clone() FrameStates {
	var cp FrameStates
	if f.Uniform != nil {
		u := f.Uniform.Clone()
		cp.Uniform = &u
	}
	if f.PerFrame != nil {
		cp.PerFrame = make(map[int]LandmarkState, len(f.PerFrame))
		for k, v := range f.PerFrame {
			cp.PerFrame[k] = v.Clone()
		}
	}
	return cp
}

// MappingKind names the coordinate mapping a landmark link applies.
type MappingKind string

const (
	// MapIdentity copies coordinates unchanged.
	MapIdentity MappingKind = "identity"
	// MapTranslate offsets coordinates by the link parameters.
	MapTranslate MappingKind = "translate"
	// MapProjection projects coordinates onto the constraint geometry.
	MapProjection MappingKind = "projection"
)

// GeometryRef is the constraining geometry a link projects through.
type GeometryRef struct {
	Kind   LandmarkKind `json:"kind"`
	Points []Point      `json:"points,omitempty"`
}

// LinkSpec is a copyable description of a landmark link: a mapping function
// identifier, its constraining geometry, and numeric parameters. Links are
// resolved by a dispatch table rather than bound functions so that copying
// and remapping never recreates closures.
type LinkSpec struct {
	Mapping    MappingKind `json:"mapping"`
	Constraint GeometryRef `json:"constraint"`
	Params     []float64   `json:"params,omitempty"`
}

// Clone returns a deep copy.
func (l LinkSpec) Clone() LinkSpec {
	cp := l
	cp.Constraint.Points = append([]Point(nil), l.Constraint.Points...)
	cp.Params = append([]float64(nil), l.Params...)
	return cp
}

// mappingTable dispatches link mappings; unknown kinds fall back to identity.
var mappingTable = map[MappingKind]func(Point, LinkSpec) Point{
	MapIdentity: func(p Point, _ LinkSpec) Point { return p },
	MapTranslate: func(p Point, spec LinkSpec) Point {
		if len(spec.Params) >= 2 {
			p.X += spec.Params[0]
			p.Y += spec.Params[1]
		}
		return p
	},
	MapProjection: func(p Point, spec LinkSpec) Point {
		if len(spec.Constraint.Points) == 0 {
			return p
		}
		best := spec.Constraint.Points[0]
		bestD := sqDist(p, best)
		for _, c := range spec.Constraint.Points[1:] {
			if d := sqDist(p, c); d < bestD {
				best, bestD = c, d
			}
		}
		return best
	},
}

func sqDist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// ApplyMapping maps a point through the link's mapping function.
func (l LinkSpec) ApplyMapping(p Point) Point {
	if fn, ok := mappingTable[l.Mapping]; ok {
		return fn(p, l)
	}
	return p
}

// Landmark is a spatial descriptor with a frame-state association and
// optional links to other landmarks in the same dataset.
type Landmark struct {
	ID       LandmarkID              `json:"id"`
	Name     string                  `json:"name"`
	Kind     LandmarkKind            `json:"kind"`
	Location StorageLocation         `json:"location"`
	States   FrameStates             `json:"states"`
	Links    map[LandmarkID]LinkSpec `json:"links,omitempty"`
}

// Key returns the dataset storage key ("location/name").
func (l Landmark) Key() string { return LandmarkKey(l.Location, l.Name) }

// LandmarkKey builds the storage key used by the dataset's landmark table.
func LandmarkKey(loc StorageLocation, name string) string {
	return fmt.Sprintf("%s/%s", loc, name)
}

// SameIdentity reports cross-dataset equivalence: equal name and kind.
func (l Landmark) SameIdentity(other Landmark) bool {
	return l.Name == other.Name && l.Kind == other.Kind
}

// Frames returns the frame indices the landmark has state for; a uniform
// landmark covers the full range [0, total).
func (l Landmark) Frames(total int) FrameSet {
	if l.States.IsUniform() {
		return FrameRange(total)
	}
	indices := make([]int, 0, len(l.States.PerFrame))
	for k := range l.States.PerFrame {
		indices = append(indices, k)
	}
	return NewFrameSet(indices...)
}

// RemapFrames rewrites every per-frame state key through the mapping,
// dropping states for frames the mapping does not cover. Uniform landmarks
// are untouched.
func (l *Landmark) RemapFrames(mapping map[int]int) {
	if l.States.IsUniform() || l.States.PerFrame == nil {
		return
	}
	remapped := make(map[int]LandmarkState, len(l.States.PerFrame))
	for k, v := range l.States.PerFrame {
		if nk, ok := mapping[k]; ok {
			remapped[nk] = v
		}
	}
	l.States.PerFrame = remapped
}

// ShiftFrames offsets every per-frame state key; a no-op for uniform maps.
func (l *Landmark) ShiftFrames(by int) {
	if l.States.IsUniform() || l.States.PerFrame == nil || by == 0 {
		return
	}
	shifted := make(map[int]LandmarkState, len(l.States.PerFrame))
	for k, v := range l.States.PerFrame {
		shifted[k+by] = v
	}
	l.States.PerFrame = shifted
}

// RemoveFrame drops the state at index and decrements every key above it.
// It reports whether the landmark is left without any frame state and must
// be removed by the owning dataset (together with its analysis unit).
func (l *Landmark) RemoveFrame(index int) (empty bool) {
	if l.States.IsUniform() {
		return false
	}
	updated := make(map[int]LandmarkState, len(l.States.PerFrame))
	for k, v := range l.States.PerFrame {
		switch {
		case k < index:
			updated[k] = v
		case k > index:
			updated[k-1] = v
		}
	}
	l.States.PerFrame = updated
	return len(updated) == 0
}

// LinkTo records a link to another landmark of the same dataset. Linking a
// landmark to itself is rejected.
func (l *Landmark) LinkTo(other Landmark, spec LinkSpec) error {
	if other.ID == l.ID {
		return ErrSelfLink{Landmark: l.Name}
	}
	if l.Links == nil {
		l.Links = make(map[LandmarkID]LinkSpec)
	}
	l.Links[other.ID] = spec.Clone()
	return nil
}

// Clone returns a deep copy including links; use CopyDetached when copying
// across datasets.
func (l Landmark) Clone() Landmark {
	cp := l
	cp.States = l.States.Clone()
	if l.Links != nil {
		cp.Links = make(map[LandmarkID]LinkSpec, len(l.Links))
		for k, v := range l.Links {
			cp.Links[k] = v.Clone()
		}
	}
	return cp
}

// CopyDetached returns a deep copy without links. Links never survive a
// cross-dataset copy implicitly; the copying operation re-establishes them
// against the destination's own landmark table, or drops them when no
// equivalent target exists there.
func (l Landmark) CopyDetached() Landmark {
	cp := l.Clone()
	cp.Links = nil
	return cp
}
