package domain

import (
	"fmt"
	"sort"
	"time"
)

// AnalysisMode identifies how a dataset's frames were acquired and analysed.
// Datasets can only be combined within one mode.
type AnalysisMode string

const (
	// ModeLineScan marks line-scan acquisitions.
	ModeLineScan AnalysisMode = "linescan"
	// ModeFrameScan marks full-frame acquisitions.
	ModeFrameScan AnalysisMode = "framescan"
)

// NoProtocolBucket is the synthetic protocol bucket used by outcome and
// extraction queries when a dataset has no protocols.
const NoProtocolBucket = "no_protocol"

// EmbeddedEvent is one protocol event projected into a timing domain. The
// per-domain event index is derived from the protocol arena after every
// committed edit and fully replaces the previous index; no translated copy
// is ever stored with the tracks themselves.
type EmbeddedEvent struct {
	Protocol string        `json:"protocol"`
	Label    string        `json:"label"`
	At       time.Duration `json:"at"`
}

// Dataset is the aggregate root owning all tracks, landmarks, protocols and
// analysis units of one experiment. All cross-collection invariants are
// enforced here: every mutating operation validates against the current
// state, builds a candidate copy, and commits only a copy that passes
// Validate — a failed edit leaves the dataset untouched.
type Dataset struct {
	Name     string       `json:"name"`
	Schema   SchemaVersion `json:"schema"`
	Mode     AnalysisMode `json:"mode"`
	ScanType string       `json:"scan_type"`

	Primary   []Track        `json:"primary,omitempty"`
	Secondary []Track        `json:"secondary,omitempty"`
	Derived   []DerivedTrack `json:"derived,omitempty"`

	// Landmarks are keyed by "location/name" (LandmarkKey).
	Landmarks map[string]Landmark `json:"landmarks,omitempty"`
	// Protocols form an arena addressed by stable ProtocolID, kept ordered
	// by first segment index.
	Protocols []Protocol     `json:"protocols,omitempty"`
	Units     []AnalysisUnit `json:"units,omitempty"`
	// Whole is the data-wide analysis unit (Landmark == nil); it exists for
	// the dataset's whole lifetime.
	Whole AnalysisUnit `json:"whole"`

	NextProtocol ProtocolID `json:"next_protocol"`
	NextLandmark int        `json:"next_landmark"`

	events map[TimingDomain][]EmbeddedEvent
}

// NewDataset constructs an empty dataset with its whole-dataset unit.
func NewDataset(name string, mode AnalysisMode, scanType, cell, field string) *Dataset {
	d := &Dataset{
		Name:     name,
		Schema:   CurrentSchemaVersion,
		Mode:     mode,
		ScanType: scanType,
		Whole: AnalysisUnit{
			Name:  name,
			Kind:  UnitWhole,
			Cell:  cell,
			Field: field,
		},
	}
	d.rebuildEventIndex()
	return d
}

// FrameCount returns the dataset's declared frame count: the primary frame
// axis length, or the secondary one when no primary tracks are assigned.
func (d *Dataset) FrameCount() int {
	if len(d.Primary) > 0 {
		return d.Primary[0].FrameCount()
	}
	if len(d.Secondary) > 0 {
		return d.Secondary[0].FrameCount()
	}
	return 0
}

// SecondaryFrameCount returns the secondary frame axis length.
func (d *Dataset) SecondaryFrameCount() int {
	if len(d.Secondary) > 0 {
		return d.Secondary[0].FrameCount()
	}
	return 0
}

// Clone returns a deep copy sharing no state with the receiver.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{
		Name:         d.Name,
		Schema:       d.Schema,
		Mode:         d.Mode,
		ScanType:     d.ScanType,
		Whole:        d.Whole.Clone(),
		NextProtocol: d.NextProtocol,
		NextLandmark: d.NextLandmark,
	}
	for _, t := range d.Primary {
		cp.Primary = append(cp.Primary, t.Clone())
	}
	for _, t := range d.Secondary {
		cp.Secondary = append(cp.Secondary, t.Clone())
	}
	for _, t := range d.Derived {
		cp.Derived = append(cp.Derived, t.Clone())
	}
	if d.Landmarks != nil {
		cp.Landmarks = make(map[string]Landmark, len(d.Landmarks))
		for k, v := range d.Landmarks {
			cp.Landmarks[k] = v.Clone()
		}
	}
	for _, p := range d.Protocols {
		cp.Protocols = append(cp.Protocols, p.Clone())
	}
	for _, u := range d.Units {
		cp.Units = append(cp.Units, u.Clone())
	}
	cp.rebuildEventIndex()
	return cp
}

// Copy returns an independent dataset equal to the receiver. Landmark links
// remain valid because landmark IDs are preserved within the copy.
func (d *Dataset) Copy() *Dataset { return d.Clone() }

// apply runs one mutating operation through the validate/build/commit
// discipline: mutate a candidate clone, validate it wholesale, and only then
// swap it in. The commit step cannot fail.
func (d *Dataset) apply(mutate func(work *Dataset) error) error {
	work := d.Clone()
	if err := mutate(work); err != nil {
		return err
	}
	if err := work.Validate(); err != nil {
		return fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	work.rebuildEventIndex()
	*d = *work
	return nil
}

// rebuildEventIndex recomputes the per-domain embedded event views from the
// protocol arena, fully replacing any previous index.
func (d *Dataset) rebuildEventIndex() {
	index := map[TimingDomain][]EmbeddedEvent{DomainPrimary: nil, DomainSecondary: nil}
	for _, p := range d.Protocols {
		for _, dom := range []TimingDomain{DomainPrimary, DomainSecondary} {
			for _, e := range p.EventsInDomain(dom) {
				index[dom] = append(index[dom], EmbeddedEvent{Protocol: p.Name, Label: e.Label, At: e.At})
			}
		}
	}
	for _, dom := range []TimingDomain{DomainPrimary, DomainSecondary} {
		events := index[dom]
		sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	}
	d.events = index
}

// EmbeddedEvents returns the protocol events of the dataset projected into
// the requested timing domain, ordered by timestamp.
func (d *Dataset) EmbeddedEvents(dom TimingDomain) []EmbeddedEvent {
	if d.events == nil {
		d.rebuildEventIndex()
	}
	return append([]EmbeddedEvent(nil), d.events[dom]...)
}

// ProtocolByName returns the arena index of the named protocol.
func (d *Dataset) ProtocolByName(name string) (int, bool) {
	for i, p := range d.Protocols {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ProtocolByID resolves a protocol by its stable ID.
func (d *Dataset) ProtocolByID(id ProtocolID) (Protocol, bool) {
	for _, p := range d.Protocols {
		if p.ID == id {
			return p, true
		}
	}
	return Protocol{}, false
}

// LandmarkByID resolves a landmark by its in-memory handle.
func (d *Dataset) LandmarkByID(id LandmarkID) (Landmark, bool) {
	for _, l := range d.Landmarks {
		if l.ID == id {
			return l, true
		}
	}
	return Landmark{}, false
}

// LandmarkByKey resolves a landmark by storage location and name.
func (d *Dataset) LandmarkByKey(loc StorageLocation, name string) (Landmark, bool) {
	l, ok := d.Landmarks[LandmarkKey(loc, name)]
	return l, ok
}

// LandmarkByIdentity resolves a landmark by cross-dataset identity
// (name, kind), irrespective of storage location.
func (d *Dataset) LandmarkByIdentity(name string, kind LandmarkKind) (Landmark, bool) {
	for _, l := range d.Landmarks {
		if l.Name == name && l.Kind == kind {
			return l, true
		}
	}
	return Landmark{}, false
}

// UnitByName returns the named analysis unit, including the whole-dataset
// unit.
func (d *Dataset) UnitByName(name string) (AnalysisUnit, bool) {
	if d.Whole.Name == name {
		return d.Whole, true
	}
	for _, u := range d.Units {
		if u.Name == name {
			return u, true
		}
	}
	return AnalysisUnit{}, false
}

// unitIndexForLandmark finds the unit built on the given landmark.
func (d *Dataset) unitIndexForLandmark(id LandmarkID) (int, bool) {
	for i, u := range d.Units {
		if u.Landmark != nil && *u.Landmark == id {
			return i, true
		}
	}
	return -1, false
}

// UnitFrames derives a unit's effective frame set: the landmark's frames (or
// the full range, for the whole-dataset unit) intersected with the union of
// its protocols' segment sets. Units without protocols keep the unrestricted
// set.
func (d *Dataset) UnitFrames(u AnalysisUnit) FrameSet {
	var base FrameSet
	if u.Landmark == nil {
		base = FrameRange(d.FrameCount())
	} else {
		l, ok := d.LandmarkByID(*u.Landmark)
		if !ok {
			return nil
		}
		base = l.Frames(d.FrameCount())
	}
	if len(u.Protocols) == 0 {
		return base
	}
	var union FrameSet
	for _, id := range u.Protocols {
		if p, ok := d.ProtocolByID(id); ok {
			union = union.Union(p.Segments)
		}
	}
	return base.Intersect(union)
}

// derivedEntry fetches the analysed entry for a unit at a frame.
func (d *Dataset) derivedEntry(unitName string, frame int) (SignalEntry, bool) {
	for _, t := range d.Derived {
		if frame < 0 || frame >= len(t.Frames) {
			continue
		}
		if e, ok := t.Frames[frame].Entries[unitName]; ok {
			return e, true
		}
	}
	return SignalEntry{}, false
}

// HasAnalysis reports whether every frame of the unit's effective frame set
// carries an analysed entry named after the unit. Missing data degrades to
// false rather than an error.
func (d *Dataset) HasAnalysis(unitName string) bool {
	u, ok := d.UnitByName(unitName)
	if !ok {
		return false
	}
	frames := d.UnitFrames(u)
	if frames.Len() == 0 {
		return false
	}
	for _, f := range frames {
		if _, ok := d.derivedEntry(unitName, f); !ok {
			return false
		}
	}
	return true
}

// FrameEventOutcomes collects, per protocol (or the synthetic no_protocol
// bucket), the recorded per-event success flags of every frame intersecting
// the unit's frames. A frame whose analysed entry is missing fails with
// ErrNotAnalysed.
func (d *Dataset) FrameEventOutcomes(unitName string) (map[string]map[int][]bool, error) {
	u, ok := d.UnitByName(unitName)
	if !ok {
		return nil, ErrNotFound{Entity: EntityUnit, Name: unitName}
	}
	unitFrames := d.UnitFrames(u)
	out := make(map[string]map[int][]bool)

	buckets := d.protocolBuckets(u, unitFrames)
	for bucket, frames := range buckets {
		frameFlags := make(map[int][]bool, frames.Len())
		for _, f := range frames {
			entry, ok := d.derivedEntry(unitName, f)
			if !ok {
				return nil, ErrNotAnalysed{Unit: unitName, Protocol: bucket, Frame: f}
			}
			frameFlags[f] = append([]bool(nil), entry.Success...)
		}
		out[bucket] = frameFlags
	}
	return out, nil
}

// protocolBuckets partitions a unit's frames by its protocols, falling back
// to the synthetic no_protocol bucket when the unit has none.
func (d *Dataset) protocolBuckets(u AnalysisUnit, unitFrames FrameSet) map[string]FrameSet {
	buckets := make(map[string]FrameSet)
	ids := u.Protocols
	if len(ids) == 0 && u.Landmark == nil {
		// The whole-dataset unit tracks every protocol implicitly.
		for _, p := range d.Protocols {
			ids = append(ids, p.ID)
		}
	}
	for _, id := range ids {
		p, ok := d.ProtocolByID(id)
		if !ok {
			continue
		}
		if frames := p.Segments.Intersect(unitFrames); frames.Len() > 0 {
			buckets[p.Name] = frames
		}
	}
	if len(buckets) == 0 {
		buckets[NoProtocolBucket] = unitFrames.Clone()
	}
	return buckets
}

// sortProtocols keeps the arena ordered by first segment index, name as a
// tiebreak for deterministic output.
func (d *Dataset) sortProtocols() {
	sort.SliceStable(d.Protocols, func(i, j int) bool {
		a, b := d.Protocols[i].Segments.First(), d.Protocols[j].Segments.First()
		if a != b {
			return a < b
		}
		return d.Protocols[i].Name < d.Protocols[j].Name
	})
}

// Validate checks every cross-collection invariant of the dataset. It is
// called on candidate states before commit and by persistence after loading.
func (d *Dataset) Validate() error {
	frameCount := d.FrameCount()

	for _, t := range d.Primary {
		if t.FrameCount() != frameCount {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("primary track %q has %d frames, dataset has %d", t.Name, t.FrameCount(), frameCount)}
		}
		for i, f := range t.Frames {
			if f.Channels != t.Channels {
				return ErrTypeMismatch{Entity: EntityTrack, Name: t.Name, Want: fmt.Sprintf("%d channels", t.Channels), Got: fmt.Sprintf("%d at frame %d", f.Channels, i)}
			}
		}
	}
	for _, t := range d.Secondary {
		if t.FrameCount() != frameCount {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("secondary track %q has %d frames, dataset has %d", t.Name, t.FrameCount(), frameCount)}
		}
	}
	for _, t := range d.Derived {
		if t.FrameCount() != frameCount {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("derived track %q has %d frames, dataset has %d", t.Name, t.FrameCount(), frameCount)}
		}
	}

	protoNames := make(map[string]struct{}, len(d.Protocols))
	protoIDs := make(map[ProtocolID]struct{}, len(d.Protocols))
	for _, p := range d.Protocols {
		if _, dup := protoNames[p.Name]; dup {
			return ErrNameCollision{Entity: EntityProtocol, Name: p.Name}
		}
		protoNames[p.Name] = struct{}{}
		if _, dup := protoIDs[p.ID]; dup {
			return ErrNameCollision{Entity: EntityProtocol, Name: fmt.Sprintf("id %d", p.ID)}
		}
		protoIDs[p.ID] = struct{}{}
		if p.Segments.Len() == 0 {
			return ErrEmptyFrameSet{Entity: EntityProtocol, Name: p.Name}
		}
		if max := p.Segments.Max(); max >= frameCount {
			return ErrIndexOutOfRange{Entity: EntityProtocol, Name: p.Name, Index: max, Bound: frameCount}
		}
	}

	landmarkIDs := make(map[LandmarkID]struct{}, len(d.Landmarks))
	for key, l := range d.Landmarks {
		if key != l.Key() {
			return ErrNameCollision{Entity: EntityLandmark, Name: fmt.Sprintf("stored under %q, keyed %q", key, l.Key())}
		}
		if _, dup := landmarkIDs[l.ID]; dup {
			return ErrNameCollision{Entity: EntityLandmark, Name: string(l.ID)}
		}
		landmarkIDs[l.ID] = struct{}{}
		if !l.States.IsUniform() {
			if len(l.States.PerFrame) == 0 {
				return ErrEmptyFrameSet{Entity: EntityLandmark, Name: l.Name}
			}
			for f := range l.States.PerFrame {
				if f < 0 || f >= frameCount {
					return ErrIndexOutOfRange{Entity: EntityLandmark, Name: l.Name, Index: f, Bound: frameCount}
				}
			}
		}
		for target := range l.Links {
			if target == l.ID {
				return ErrSelfLink{Landmark: l.Name}
			}
			if _, ok := d.LandmarkByID(target); !ok {
				return ErrNotFound{Entity: EntityLandmark, Name: string(target)}
			}
		}
	}

	if d.Whole.Landmark != nil {
		return ErrTypeMismatch{Entity: EntityUnit, Name: d.Whole.Name, Want: "whole-dataset unit", Got: "landmark-bound unit"}
	}
	unitNames := map[string]struct{}{d.Whole.Name: {}}
	unitLandmarks := make(map[LandmarkID]struct{}, len(d.Units))
	for _, u := range d.Units {
		if _, dup := unitNames[u.Name]; dup {
			return ErrNameCollision{Entity: EntityUnit, Name: u.Name}
		}
		unitNames[u.Name] = struct{}{}
		if u.Landmark == nil {
			return ErrTypeMismatch{Entity: EntityUnit, Name: u.Name, Want: "landmark-bound unit", Got: "whole-dataset unit"}
		}
		if _, ok := d.LandmarkByID(*u.Landmark); !ok {
			return ErrNotFound{Entity: EntityLandmark, Name: string(*u.Landmark)}
		}
		if _, dup := unitLandmarks[*u.Landmark]; dup {
			return ErrNameCollision{Entity: EntityUnit, Name: fmt.Sprintf("landmark %s bound twice", *u.Landmark)}
		}
		unitLandmarks[*u.Landmark] = struct{}{}
		for _, id := range u.Protocols {
			if _, ok := protoIDs[id]; !ok {
				return ErrNotFound{Entity: EntityProtocol, Name: fmt.Sprintf("id %d", id)}
			}
		}
	}
	for _, id := range d.Whole.Protocols {
		if _, ok := protoIDs[id]; !ok {
			return ErrNotFound{Entity: EntityProtocol, Name: fmt.Sprintf("id %d", id)}
		}
	}
	return nil
}
