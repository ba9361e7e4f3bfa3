package memory

import (
	"context"
	"testing"

	"scancore/pkg/domain"
)

func sampleDataset(t *testing.T, name string, frames int) *domain.Dataset {
	t.Helper()
	d := domain.NewDataset(name, domain.ModeLineScan, "spine-scan", "cell-1", "field-1")
	track := domain.Track{
		Name:        "img",
		Family:      domain.FamilyPrimary,
		Channels:    1,
		Calibration: domain.Calibration{Origin: []float64{0}, Spacing: []float64{1}},
	}
	for f := 0; f < frames; f++ {
		track.Frames = append(track.Frames, domain.Payload{Shape: []int{2}, Channels: 1, Samples: []float64{float64(f), 0}})
	}
	if err := d.SetPrimary([]domain.Track{track}); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	return d
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	d := sampleDataset(t, "scan-1", 3)
	if err := store.SaveDataset(ctx, d); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.LoadDataset(ctx, "scan-1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Name != "scan-1" || got.FrameCount() != 3 {
		t.Fatalf("round trip diverged: %q %d", got.Name, got.FrameCount())
	}
	// Loads decode a stored snapshot, never alias the saved value.
	got.Name = "mutated"
	again, _, err := store.LoadDataset(ctx, "scan-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Name != "scan-1" {
		t.Fatalf("stored snapshot aliased a loaded dataset")
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore()
	_, ok, err := store.LoadDataset(context.Background(), "ghost")
	if err != nil || ok {
		t.Fatalf("missing dataset: ok=%v err=%v", ok, err)
	}
}

func TestStoreListSorted(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := store.SaveDataset(ctx, sampleDataset(t, name, 1)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	names, err := store.ListDatasets(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 3 || names[0] != "alpha" || names[2] != "zeta" {
		t.Fatalf("unsorted listing: %v", names)
	}
}

func TestStoreDelete(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.SaveDataset(ctx, sampleDataset(t, "scan-1", 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	existed, err := store.DeleteDataset(ctx, "scan-1")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.DeleteDataset(ctx, "scan-1")
	if err != nil || existed {
		t.Fatalf("double delete: existed=%v err=%v", existed, err)
	}
}

func TestExportImportState(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if err := store.SaveDataset(ctx, sampleDataset(t, "scan-1", 2)); err != nil {
		t.Fatalf("save: %v", err)
	}
	state := store.ExportState()
	if len(state) != 1 {
		t.Fatalf("exported state: %d entries", len(state))
	}

	other := NewStore()
	other.ImportState(state)
	got, ok, err := other.LoadDataset(ctx, "scan-1")
	if err != nil || !ok {
		t.Fatalf("load from imported state: ok=%v err=%v", ok, err)
	}
	if got.FrameCount() != 2 {
		t.Fatalf("imported snapshot diverged: %d frames", got.FrameCount())
	}
}
