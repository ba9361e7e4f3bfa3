package domain

import "testing"

func imageTrack(name string, frames int, shape []int, channels int) Track {
	t := Track{
		Name:     name,
		Family:   FamilyPrimary,
		Channels: channels,
		Calibration: Calibration{
			Origin:  make([]float64, len(shape)),
			Spacing: onesLike(shape),
		},
	}
	plane := channels
	for _, d := range shape {
		plane *= d
	}
	for f := 0; f < frames; f++ {
		samples := make([]float64, plane)
		for i := range samples {
			samples[i] = float64(f)
		}
		t.Frames = append(t.Frames, Payload{Shape: append([]int(nil), shape...), Channels: channels, Samples: samples})
	}
	return t
}

func signalTrack(name string, frames, samplesPerFrame int) Track {
	t := Track{
		Name:        name,
		Family:      FamilySecondary,
		Channels:    1,
		Calibration: Calibration{Origin: []float64{0}, Spacing: []float64{1}},
	}
	for f := 0; f < frames; f++ {
		samples := make([]float64, samplesPerFrame)
		for i := range samples {
			samples[i] = float64(f)
		}
		t.Frames = append(t.Frames, Payload{Shape: []int{samplesPerFrame}, Channels: 1, Samples: samples})
	}
	return t
}

// scanDataset builds a dataset with one primary image track and one
// secondary signal track over the given frame count.
func scanDataset(t *testing.T, name string, frames int) *Dataset {
	t.Helper()
	d := NewDataset(name, ModeLineScan, "spine-scan", "cell-1", "field-1")
	if err := d.SetPrimary([]Track{imageTrack("img", frames, []int{2, 2}, 1)}); err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if err := d.SetSecondary([]Track{signalTrack("vm", frames, 4)}); err != nil {
		t.Fatalf("set secondary: %v", err)
	}
	return d
}

func uniformLandmark(name string, kind LandmarkKind) Landmark {
	state := LandmarkState{Points: []Point{{X: 1, Y: 2}}, Width: 0.5}
	return Landmark{Name: name, Kind: kind, Location: LocationPrimary, States: FrameStates{Uniform: &state}}
}

func perFrameLandmark(name string, kind LandmarkKind, frames ...int) Landmark {
	states := make(map[int]LandmarkState, len(frames))
	for _, f := range frames {
		states[f] = LandmarkState{Points: []Point{{X: float64(f), Y: 0}}}
	}
	return Landmark{Name: name, Kind: kind, Location: LocationPrimary, States: FrameStates{PerFrame: states}}
}

func onesLike(shape []int) []float64 {
	out := make([]float64, len(shape))
	for i := range out {
		out[i] = 1
	}
	return out
}

// addUnitWithLandmark registers a landmark and a unit bound to it.
func addUnitWithLandmark(t *testing.T, d *Dataset, l Landmark, unitName string) LandmarkID {
	t.Helper()
	id, err := d.AddLandmark(l)
	if err != nil {
		t.Fatalf("add landmark %s: %v", l.Name, err)
	}
	if err := d.AddUnit(AnalysisUnit{Name: unitName, Landmark: &id}); err != nil {
		t.Fatalf("add unit %s: %v", unitName, err)
	}
	return id
}
