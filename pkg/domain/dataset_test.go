package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAddProtocolAssignsIDAndAssociates(t *testing.T) {
	d := scanDataset(t, "scan", 4)
	addUnitWithLandmark(t, d, perFrameLandmark("sp1", KindPoint, 0, 1), "sp1")
	addUnitWithLandmark(t, d, perFrameLandmark("sp2", KindPoint, 3), "sp2")

	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 1)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	idx, ok := d.ProtocolByName("p1")
	if !ok {
		t.Fatalf("protocol not registered")
	}
	p := d.Protocols[idx]
	if p.Domain != DomainSecondary {
		t.Fatalf("untagged protocol should default to the secondary clock, got %s", p.Domain)
	}
	if !d.Whole.HasProtocol(p.ID) {
		t.Fatalf("whole unit not associated")
	}
	sp1, _ := d.UnitByName("sp1")
	sp2, _ := d.UnitByName("sp2")
	if !sp1.HasProtocol(p.ID) {
		t.Fatalf("intersecting unit not associated")
	}
	if sp2.HasProtocol(p.ID) {
		t.Fatalf("disjoint unit wrongly associated")
	}
}

func TestAddProtocolRejections(t *testing.T) {
	d := scanDataset(t, "scan", 2)
	var emptyErr ErrEmptyFrameSet
	if err := d.AddProtocol(Protocol{Name: "p"}); !errors.As(err, &emptyErr) {
		t.Fatalf("expected empty-set error, got %v", err)
	}
	var rangeErr ErrIndexOutOfRange
	if err := d.AddProtocol(Protocol{Name: "p", Segments: NewFrameSet(5)}); !errors.As(err, &rangeErr) {
		t.Fatalf("expected range error, got %v", err)
	}
	if err := d.AddProtocol(Protocol{Name: "p", Segments: NewFrameSet(0)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	var dupErr ErrNameCollision
	if err := d.AddProtocol(Protocol{Name: "p", Segments: NewFrameSet(1)}); !errors.As(err, &dupErr) {
		t.Fatalf("expected collision error, got %v", err)
	}
}

func TestRemoveProtocolStripsUnits(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 2)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	if err := d.RemoveProtocol("p1"); err != nil {
		t.Fatalf("remove protocol: %v", err)
	}
	if len(d.Protocols) != 0 || len(d.Whole.Protocols) != 0 {
		t.Fatalf("protocol lingers: %+v whole=%v", d.Protocols, d.Whole.Protocols)
	}
	u, _ := d.UnitByName("sp1")
	if len(u.Protocols) != 0 {
		t.Fatalf("unit kept protocol reference: %v", u.Protocols)
	}
	var missing ErrNotFound
	if err := d.RemoveProtocol("p1"); !errors.As(err, &missing) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestAddLandmarkAssignsID(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	id, err := d.AddLandmark(uniformLandmark("l1", KindLine))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	if id == "" {
		t.Fatalf("expected generated id")
	}
	if _, ok := d.LandmarkByID(id); !ok {
		t.Fatalf("landmark not stored")
	}
	var dup ErrNameCollision
	if _, err := d.AddLandmark(uniformLandmark("l1", KindLine)); !errors.As(err, &dup) {
		t.Fatalf("expected key collision, got %v", err)
	}
	// Same name at a different location is a distinct key.
	other := uniformLandmark("l1", KindLine)
	other.Location = LocationSecondary
	if _, err := d.AddLandmark(other); err != nil {
		t.Fatalf("location-distinct landmark rejected: %v", err)
	}
	var rangeErr ErrIndexOutOfRange
	if _, err := d.AddLandmark(perFrameLandmark("far", KindPoint, 7)); !errors.As(err, &rangeErr) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestAddUnitDefaultsAndAssociation(t *testing.T) {
	d := scanDataset(t, "scan", 4)
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 1)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	id, err := d.AddLandmark(perFrameLandmark("sp1", KindPoint, 0))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	if err := d.AddUnit(AnalysisUnit{Name: "sp1", Landmark: &id}); err != nil {
		t.Fatalf("add unit: %v", err)
	}
	u, _ := d.UnitByName("sp1")
	if u.Kind != UnitSpine {
		t.Fatalf("kind not classified: %s", u.Kind)
	}
	if u.Cell != "cell-1" || u.Field != "field-1" {
		t.Fatalf("cell/field not inherited: %+v", u)
	}
	p, _ := d.ProtocolByName("p1")
	if !u.HasProtocol(d.Protocols[p].ID) {
		t.Fatalf("intersecting protocol not picked up")
	}
}

func TestAddUnitRejections(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	if err := d.AddUnit(AnalysisUnit{Name: "loose"}); err == nil {
		t.Fatalf("expected rejection of landmark-less unit")
	}
	id := addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	var dup ErrNameCollision
	if err := d.AddUnit(AnalysisUnit{Name: "sp1", Landmark: &id}); !errors.As(err, &dup) {
		t.Fatalf("expected name collision, got %v", err)
	}
	// One unit per landmark.
	if err := d.AddUnit(AnalysisUnit{Name: "sp2", Landmark: &id}); !errors.As(err, &dup) {
		t.Fatalf("expected landmark already bound, got %v", err)
	}
	ghost := LandmarkID("lm-ghost")
	var missing ErrNotFound
	if err := d.AddUnit(AnalysisUnit{Name: "sp3", Landmark: &ghost}); !errors.As(err, &missing) {
		t.Fatalf("expected missing landmark, got %v", err)
	}
}

func TestRemoveUnitCascadesLandmark(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	id := addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	other, err := d.AddLandmark(uniformLandmark("ref", KindPoint))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	// Link the reference landmark at the one about to be removed.
	l, _ := d.LandmarkByID(other)
	if err := l.LinkTo(Landmark{ID: id}, LinkSpec{Mapping: MapIdentity}); err != nil {
		t.Fatalf("link: %v", err)
	}
	d.Landmarks[l.Key()] = l

	if err := d.RemoveUnit("sp1"); err != nil {
		t.Fatalf("remove unit: %v", err)
	}
	if _, ok := d.UnitByName("sp1"); ok {
		t.Fatalf("unit survived")
	}
	if _, ok := d.LandmarkByID(id); ok {
		t.Fatalf("landmark survived its unit")
	}
	ref, _ := d.LandmarkByID(other)
	if _, ok := ref.Links[id]; ok {
		t.Fatalf("dangling link survived")
	}
	if err := d.RemoveUnit(d.Whole.Name); err == nil {
		t.Fatalf("whole unit must not be removable")
	}
}

func TestRenameUnit(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	if err := d.AddDerivedTrack("dff"); err != nil {
		t.Fatalf("add derived: %v", err)
	}
	if err := d.SetDerivedEntry("dff", "sp1", 1, SignalEntry{Samples: []float64{1}}); err != nil {
		t.Fatalf("set entry: %v", err)
	}
	if err := d.RenameUnit("sp1", "sp9"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, ok := d.UnitByName("sp9"); !ok {
		t.Fatalf("renamed unit missing")
	}
	if _, ok := d.Landmarks[LandmarkKey(LocationPrimary, "sp9")]; !ok {
		t.Fatalf("landmark not renamed alongside its unit")
	}
	if _, ok := d.Derived[0].Frames[1].Entries["sp9"]; !ok {
		t.Fatalf("derived entry not retagged")
	}
	if _, ok := d.Derived[0].Frames[1].Entries["sp1"]; ok {
		t.Fatalf("stale derived entry lingers")
	}
}

func TestRenameWholeUnitRenamesDataset(t *testing.T) {
	d := scanDataset(t, "scan", 2)
	if err := d.RenameUnit("scan", "scan-b"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if d.Name != "scan-b" || d.Whole.Name != "scan-b" {
		t.Fatalf("dataset rename: name=%q whole=%q", d.Name, d.Whole.Name)
	}
}

func TestSetPrimaryResetsFrameBoundCollections(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	if err := d.SetPrimary([]Track{imageTrack("img2", 5, []int{2, 2}, 1)}); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if d.FrameCount() != 5 {
		t.Fatalf("frame count: %d", d.FrameCount())
	}
	if len(d.Protocols) != 0 || len(d.Landmarks) != 0 || len(d.Units) != 0 || len(d.Secondary) != 0 {
		t.Fatalf("frame-bound collections survived reassignment")
	}
	if len(d.Whole.Protocols) != 0 {
		t.Fatalf("whole unit kept protocol references")
	}
}

func TestSetSecondaryRequiresFrameParity(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	var incompatible ErrIncompatibleDatasets
	if err := d.SetSecondary([]Track{signalTrack("vm", 4, 4)}); !errors.As(err, &incompatible) {
		t.Fatalf("expected parity error, got %v", err)
	}
	var mismatch ErrTypeMismatch
	if err := d.SetSecondary([]Track{imageTrack("img", 3, []int{2, 2}, 1)}); !errors.As(err, &mismatch) {
		t.Fatalf("expected family mismatch, got %v", err)
	}
}

func TestEmbeddedEventsRebuiltOnCommit(t *testing.T) {
	d := scanDataset(t, "scan", 4)
	err := d.AddProtocol(Protocol{
		Name:             "p1",
		Segments:         NewFrameSet(0, 1),
		AcquisitionDelay: 100 * time.Millisecond,
		Domain:           DomainSecondary,
		Events:           []TimedLabel{{Label: "stim", At: 30 * time.Millisecond}},
	})
	if err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	sec := d.EmbeddedEvents(DomainSecondary)
	if len(sec) != 1 || sec[0].At != 30*time.Millisecond {
		t.Fatalf("secondary view: %+v", sec)
	}
	pri := d.EmbeddedEvents(DomainPrimary)
	if len(pri) != 1 || pri[0].At != 70*time.Millisecond {
		t.Fatalf("primary view: %+v", pri)
	}
	if err := d.RemoveProtocol("p1"); err != nil {
		t.Fatalf("remove protocol: %v", err)
	}
	if len(d.EmbeddedEvents(DomainPrimary)) != 0 {
		t.Fatalf("event index not rebuilt after removal")
	}
}

func TestFailedEditLeavesDatasetUntouched(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	before := d.FrameCount()
	if err := d.SetSecondary([]Track{signalTrack("vm2", 9, 4)}); err == nil {
		t.Fatalf("expected rejection")
	}
	if d.FrameCount() != before || d.Secondary[0].Name != "vm" {
		t.Fatalf("rejected edit mutated the dataset")
	}
}

func TestUnitFrames(t *testing.T) {
	d := scanDataset(t, "scan", 5)
	id := addUnitWithLandmark(t, d, perFrameLandmark("sp1", KindPoint, 0, 1, 3), "sp1")
	_ = id
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(1, 3, 4)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	u, _ := d.UnitByName("sp1")
	// Landmark frames {0,1,3} intersected with protocol union {1,3,4}.
	if got := d.UnitFrames(u); !got.Equal(FrameSet{1, 3}) {
		t.Fatalf("unit frames: %v", got)
	}
	if got := d.UnitFrames(d.Whole); !got.Equal(FrameSet{1, 3, 4}) {
		t.Fatalf("whole frames: %v", got)
	}
}
