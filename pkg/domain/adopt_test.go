package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAdoptProtocolsCopiesAndAssociates(t *testing.T) {
	src := scanDataset(t, "src", 4)
	if err := src.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 2)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	dst := scanDataset(t, "dst", 4)
	addUnitWithLandmark(t, dst, perFrameLandmark("sp1", KindPoint, 2), "sp1")

	if err := dst.AdoptProtocols(src); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	idx, ok := dst.ProtocolByName("p1")
	if !ok {
		t.Fatalf("adopted protocol missing")
	}
	if got := dst.Protocols[idx].Segments; !got.Equal(FrameSet{0, 2}) {
		t.Fatalf("segments shifted during adoption: %v", got)
	}
	u, _ := dst.UnitByName("sp1")
	if !u.HasProtocol(dst.Protocols[idx].ID) || !dst.Whole.HasProtocol(dst.Protocols[idx].ID) {
		t.Fatalf("adopted protocol not associated")
	}
}

func TestAdoptProtocolsUnionsSameName(t *testing.T) {
	src := scanDataset(t, "src", 4)
	if err := src.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(2, 3)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	dst := scanDataset(t, "dst", 4)
	if err := dst.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 1)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	if err := dst.AdoptProtocols(src); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	idx, _ := dst.ProtocolByName("p1")
	if got := dst.Protocols[idx].Segments; !got.Equal(FrameSet{0, 1, 2, 3}) {
		t.Fatalf("segments not unioned: %v", got)
	}
	if len(dst.Protocols) != 1 {
		t.Fatalf("duplicate protocol created")
	}
}

func TestAdoptProtocolsRejections(t *testing.T) {
	src := scanDataset(t, "src", 6)
	if err := src.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(5)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	dst := scanDataset(t, "dst", 3)
	var rangeErr ErrIndexOutOfRange
	if err := dst.AdoptProtocols(src); !errors.As(err, &rangeErr) {
		t.Fatalf("expected range error, got %v", err)
	}

	src2 := scanDataset(t, "src2", 3)
	if err := src2.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0), Events: []TimedLabel{{Label: "stim", At: time.Millisecond}}}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	dst2 := scanDataset(t, "dst2", 3)
	if err := dst2.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0), Events: []TimedLabel{{Label: "stim", At: 90 * time.Millisecond}}}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	var mismatch ErrProtocolTimingMismatch
	if err := dst2.AdoptProtocols(src2); !errors.As(err, &mismatch) {
		t.Fatalf("expected timing mismatch, got %v", err)
	}
}

func TestAdoptLandmarksCopiesAndSkipsExisting(t *testing.T) {
	src := scanDataset(t, "src", 3)
	if _, err := src.AddLandmark(uniformLandmark("l1", KindLine)); err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	if _, err := src.AddLandmark(perFrameLandmark("p1", KindPoint, 1)); err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	dst := scanDataset(t, "dst", 3)
	existing, err := dst.AddLandmark(uniformLandmark("l1", KindLine))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}

	if err := dst.AdoptLandmarks(src); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if len(dst.Landmarks) != 2 {
		t.Fatalf("landmark count: %d", len(dst.Landmarks))
	}
	// The existing same-identity landmark is kept, not replaced.
	l, _ := dst.LandmarkByIdentity("l1", KindLine)
	if l.ID != existing {
		t.Fatalf("existing landmark replaced: %s", l.ID)
	}
	if _, ok := dst.LandmarkByIdentity("p1", KindPoint); !ok {
		t.Fatalf("new landmark not adopted")
	}
}

func TestAdoptLandmarksReresolvesLinks(t *testing.T) {
	src := scanDataset(t, "src", 3)
	aID, err := src.AddLandmark(uniformLandmark("a", KindPoint))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	bID, err := src.AddLandmark(uniformLandmark("b", KindLine))
	if err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	a, _ := src.LandmarkByID(aID)
	if err := a.LinkTo(Landmark{ID: bID}, LinkSpec{Mapping: MapIdentity}); err != nil {
		t.Fatalf("link: %v", err)
	}
	src.Landmarks[a.Key()] = a

	dst := scanDataset(t, "dst", 3)
	if err := dst.AdoptLandmarks(src); err != nil {
		t.Fatalf("adopt: %v", err)
	}
	adoptedA, _ := dst.LandmarkByIdentity("a", KindPoint)
	adoptedB, _ := dst.LandmarkByIdentity("b", KindLine)
	if _, ok := adoptedA.Links[adoptedB.ID]; !ok {
		t.Fatalf("link not re-resolved against the destination: %+v", adoptedA.Links)
	}
	// Source IDs must not leak into the destination's link table.
	if _, ok := adoptedA.Links[bID]; ok && adoptedB.ID != bID {
		t.Fatalf("source landmark id leaked")
	}
}

func TestAdoptLandmarksBoundsCheck(t *testing.T) {
	src := scanDataset(t, "src", 6)
	if _, err := src.AddLandmark(perFrameLandmark("far", KindPoint, 5)); err != nil {
		t.Fatalf("add landmark: %v", err)
	}
	dst := scanDataset(t, "dst", 3)
	var rangeErr ErrIndexOutOfRange
	if err := dst.AdoptLandmarks(src); !errors.As(err, &rangeErr) {
		t.Fatalf("expected range error, got %v", err)
	}
}
