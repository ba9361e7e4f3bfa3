package domain

import "math"

// TrackFamily distinguishes the two independent frame axes of a dataset.
type TrackFamily string

const (
	// FamilyPrimary marks image-bearing tracks on the imaging frame axis.
	FamilyPrimary TrackFamily = "primary"
	// FamilySecondary marks companion low-rate signal tracks.
	FamilySecondary TrackFamily = "secondary"
)

// Calibration maps sample indices of the non-frame axes to physical
// coordinates; Origin and Spacing carry one entry per axis of Payload.Shape.
type Calibration struct {
	Origin  []float64 `json:"origin"`
	Spacing []float64 `json:"spacing"`
}

// Clone returns an independent copy.
func (c Calibration) Clone() Calibration {
	return Calibration{
		Origin:  append([]float64(nil), c.Origin...),
		Spacing: append([]float64(nil), c.Spacing...),
	}
}

// Equal reports axis-wise equality of origin and spacing.
func (c Calibration) Equal(other Calibration) bool {
	if len(c.Origin) != len(other.Origin) || len(c.Spacing) != len(other.Spacing) {
		return false
	}
	for i := range c.Origin {
		if c.Origin[i] != other.Origin[i] {
			return false
		}
	}
	for i := range c.Spacing {
		if c.Spacing[i] != other.Spacing[i] {
			return false
		}
	}
	return true
}

// Payload is one frame's raw sample buffer. Samples are laid out
// channel-major over the row-major non-frame axes in Shape; the core never
// interprets sample content beyond shape arithmetic.
type Payload struct {
	Shape    []int     `json:"shape"`
	Channels int       `json:"channels"`
	Samples  []float64 `json:"samples"`
}

// Clone returns a deep copy.
func (p Payload) Clone() Payload {
	return Payload{
		Shape:    append([]int(nil), p.Shape...),
		Channels: p.Channels,
		Samples:  append([]float64(nil), p.Samples...),
	}
}

// SampleCount returns channels times the product of the non-frame axes.
func (p Payload) SampleCount() int {
	n := p.Channels
	if n == 0 {
		n = 1
	}
	for _, d := range p.Shape {
		n *= d
	}
	return n
}

// ShapeEqual reports whether both payloads share non-frame axis resolutions
// and channel counts.
func (p Payload) ShapeEqual(other Payload) bool {
	if p.Channels != other.Channels || len(p.Shape) != len(other.Shape) {
		return false
	}
	for i, d := range p.Shape {
		if other.Shape[i] != d {
			return false
		}
	}
	return true
}

// Track is an ordered, frame-indexed sequence of payloads within one family.
// Invariant: every payload shares the track's channel count and shape, and
// len(Frames) agrees with the owning dataset's frame count for the family.
type Track struct {
	Name        string      `json:"name"`
	Family      TrackFamily `json:"family"`
	Channels    int         `json:"channels"`
	Calibration Calibration `json:"calibration"`
	Frames      []Payload   `json:"frames"`
}

// FrameCount returns the track's frame axis length.
func (t Track) FrameCount() int { return len(t.Frames) }

// Clone returns a deep copy.
func (t Track) Clone() Track {
	cp := t
	cp.Calibration = t.Calibration.Clone()
	cp.Frames = make([]Payload, len(t.Frames))
	for i, f := range t.Frames {
		cp.Frames[i] = f.Clone()
	}
	return cp
}

// PadPolicy selects how frames are conformed to a different non-frame-axis
// resolution during concatenation. Crop is the default; padding variants are
// opt-in.
type PadPolicy string

const (
	// PadCrop crops oversized axes and rejects undersized ones.
	PadCrop PadPolicy = "crop"
	// PadNaN pads missing samples with NaN.
	PadNaN PadPolicy = "nan"
	// PadConstant pads missing samples with a caller-supplied value.
	PadConstant PadPolicy = "constant"
	// PadEdge replicates the nearest edge sample.
	PadEdge PadPolicy = "edge"
)

// multiIndex decomposes a flat row-major offset over shape.
func multiIndex(flat int, shape []int, out []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = flat % shape[i]
		flat /= shape[i]
	}
}

func flatIndex(idx, shape []int) int {
	flat := 0
	for i, d := range shape {
		flat = flat*d + idx[i]
	}
	return flat
}

// ConformPayload reshapes a payload to the target non-frame-axis shape.
// Oversized axes are cropped; undersized axes are filled per policy. With
// PadCrop an undersized axis is an error signalled by ok=false, since
// cropping cannot invent samples.
func ConformPayload(p Payload, shape []int, policy PadPolicy, fill float64) (Payload, bool) {
	if len(shape) != len(p.Shape) {
		return Payload{}, false
	}
	grow := false
	for i, d := range shape {
		if d > p.Shape[i] {
			grow = true
		}
	}
	if grow && policy == PadCrop {
		return Payload{}, false
	}
	channels := p.Channels
	if channels == 0 {
		channels = 1
	}
	planeLen := 1
	for _, d := range shape {
		planeLen *= d
	}
	srcPlane := 1
	for _, d := range p.Shape {
		srcPlane *= d
	}
	out := Payload{
		Shape:    append([]int(nil), shape...),
		Channels: p.Channels,
		Samples:  make([]float64, channels*planeLen),
	}
	idx := make([]int, len(shape))
	src := make([]int, len(shape))
	for c := 0; c < channels; c++ {
		for flat := 0; flat < planeLen; flat++ {
			multiIndex(flat, shape, idx)
			inside := true
			for i, v := range idx {
				switch {
				case v < p.Shape[i]:
					src[i] = v
				case policy == PadEdge:
					src[i] = p.Shape[i] - 1
				default:
					inside = false
				}
				if !inside {
					break
				}
			}
			var sample float64
			switch {
			case inside:
				sample = p.Samples[c*srcPlane+flatIndex(src, p.Shape)]
			case policy == PadConstant:
				sample = fill
			default:
				sample = math.NaN()
			}
			out.Samples[c*planeLen+flat] = sample
		}
	}
	return out, true
}

// ResamplePayload maps a payload onto a target shape and calibration by
// nearest-neighbour lookup in physical coordinates. Samples falling outside
// the source extent become NaN.
func ResamplePayload(p Payload, cal Calibration, targetShape []int, targetCal Calibration) (Payload, bool) {
	if len(targetShape) != len(p.Shape) || len(cal.Spacing) != len(p.Shape) || len(targetCal.Spacing) != len(p.Shape) {
		return Payload{}, false
	}
	channels := p.Channels
	if channels == 0 {
		channels = 1
	}
	planeLen := 1
	for _, d := range targetShape {
		planeLen *= d
	}
	srcPlane := 1
	for _, d := range p.Shape {
		srcPlane *= d
	}
	out := Payload{
		Shape:    append([]int(nil), targetShape...),
		Channels: p.Channels,
		Samples:  make([]float64, channels*planeLen),
	}
	idx := make([]int, len(targetShape))
	src := make([]int, len(targetShape))
	for c := 0; c < channels; c++ {
		for flat := 0; flat < planeLen; flat++ {
			multiIndex(flat, targetShape, idx)
			inside := true
			for i, v := range idx {
				coord := targetCal.Origin[i] + float64(v)*targetCal.Spacing[i]
				s := int(math.Round((coord - cal.Origin[i]) / cal.Spacing[i]))
				if s < 0 || s >= p.Shape[i] {
					inside = false
					break
				}
				src[i] = s
			}
			if inside {
				out.Samples[c*planeLen+flat] = p.Samples[c*srcPlane+flatIndex(src, p.Shape)]
			} else {
				out.Samples[c*planeLen+flat] = math.NaN()
			}
		}
	}
	return out, true
}

// MeanPayload collapses frames into one frame by NaN-aware element-wise
// mean. Elements with no finite contribution stay NaN. All frames must share
// shape; ok=false otherwise.
func MeanPayload(frames []Payload) (Payload, bool) {
	if len(frames) == 0 {
		return Payload{}, false
	}
	first := frames[0]
	n := len(first.Samples)
	for _, f := range frames[1:] {
		if !f.ShapeEqual(first) || len(f.Samples) != n {
			return Payload{}, false
		}
	}
	out := first.Clone()
	sum := make([]float64, n)
	count := make([]int, n)
	for _, f := range frames {
		for i, v := range f.Samples {
			if !math.IsNaN(v) {
				sum[i] += v
				count[i]++
			}
		}
	}
	for i := range sum {
		if count[i] == 0 {
			out.Samples[i] = math.NaN()
		} else {
			out.Samples[i] = sum[i] / float64(count[i])
		}
	}
	return out, true
}

// SignalEntry is one analysed per-frame signal segment, tagged with the
// owning analysis unit's name through its map key. The core treats Samples
// as opaque; Success carries the per-event outcome flags consumed by
// FrameEventOutcomes.
type SignalEntry struct {
	Samples     []float64         `json:"samples"`
	Success     []bool            `json:"success,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Clone returns a deep copy.
func (e SignalEntry) Clone() SignalEntry {
	cp := e
	cp.Samples = append([]float64(nil), e.Samples...)
	cp.Success = append([]bool(nil), e.Success...)
	if e.Annotations != nil {
		cp.Annotations = make(map[string]string, len(e.Annotations))
		for k, v := range e.Annotations {
			cp.Annotations[k] = v
		}
	}
	return cp
}

// DerivedFrame holds the analysed entries of one frame, keyed by analysis
// unit name.
type DerivedFrame struct {
	Entries map[string]SignalEntry `json:"entries,omitempty"`
}

// Clone returns a deep copy.
func (f DerivedFrame) Clone() DerivedFrame {
	if f.Entries == nil {
		return DerivedFrame{}
	}
	cp := DerivedFrame{Entries: make(map[string]SignalEntry, len(f.Entries))}
	for k, v := range f.Entries {
		cp.Entries[k] = v.Clone()
	}
	return cp
}

// DerivedTrack is a frame-indexed sequence of analysed signal entries whose
// length always agrees with the dataset frame count.
type DerivedTrack struct {
	Name   string         `json:"name"`
	Frames []DerivedFrame `json:"frames"`
}

// FrameCount returns the derived track's frame axis length.
func (t DerivedTrack) FrameCount() int { return len(t.Frames) }

// Clone returns a deep copy.
func (t DerivedTrack) Clone() DerivedTrack {
	cp := DerivedTrack{Name: t.Name, Frames: make([]DerivedFrame, len(t.Frames))}
	for i, f := range t.Frames {
		cp.Frames[i] = f.Clone()
	}
	return cp
}
