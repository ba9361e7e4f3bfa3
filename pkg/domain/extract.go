package domain

import (
	"fmt"
	"sort"
)

// ExtractOptions controls frame selection and collapsing in ExtractUnit.
type ExtractOptions struct {
	// Average collapses each protocol bucket into one frame via a NaN-aware
	// mean instead of copying every selected frame.
	Average bool
	// ExcludeFailures restricts selection to frames whose recorded outcome
	// flags satisfy Test. Frames without an analysed entry then fail with
	// ErrNotAnalysed.
	ExcludeFailures bool
	// Test composes per-event outcome flags into one verdict per frame.
	// The zero value requires any flag to be set.
	Test OutcomeTest
}

// extractBucket is one protocol's (or the synthetic no_protocol) share of
// the selection, ordered the way the arena is.
type extractBucket struct {
	name     string
	protocol *Protocol
	frames   FrameSet
}

// ExtractUnit builds a new dataset holding only the frames belonging to the
// named analysis unit, partitioned by protocol. The source is not mutated.
// The result's whole-dataset unit inherits the extracted unit's descriptors
// and, for landmark-bound units, the landmark's name.
func (d *Dataset) ExtractUnit(unitName string, opts ExtractOptions) (*Dataset, error) {
	u, ok := d.UnitByName(unitName)
	if !ok {
		return nil, ErrNotFound{Entity: EntityUnit, Name: unitName}
	}
	unitFrames := d.UnitFrames(u)
	if unitFrames.Len() == 0 {
		return nil, ErrEmptyFrameSet{Entity: EntityUnit, Name: unitName}
	}

	buckets, err := d.selectBuckets(u, unitFrames, opts)
	if err != nil {
		return nil, err
	}
	if len(buckets) == 0 {
		return nil, ErrEmptyFrameSet{Entity: EntityUnit, Name: unitName}
	}

	mapping, perBucket, newCount := buildFrameMapping(buckets, opts.Average)

	name := u.Name
	if u.Landmark != nil {
		if l, ok := d.LandmarkByID(*u.Landmark); ok {
			name = l.Name
		}
	}

	out := &Dataset{
		Name:     name,
		Schema:   CurrentSchemaVersion,
		Mode:     d.Mode,
		ScanType: d.ScanType,
		Whole: AnalysisUnit{
			Name:        name,
			Kind:        UnitWhole,
			Cell:        u.Cell,
			Field:       u.Field,
			Descriptors: cloneDescriptors(u.Descriptors),
		},
	}

	out.Primary, err = extractTracks(d.Primary, buckets, mapping, newCount, opts.Average)
	if err != nil {
		return nil, err
	}
	out.Secondary, err = extractTracks(d.Secondary, buckets, mapping, newCount, opts.Average)
	if err != nil {
		return nil, err
	}
	out.Derived = extractDerived(d.Derived, buckets, mapping, newCount, opts.Average)

	for i, b := range buckets {
		if b.protocol == nil {
			continue
		}
		p := b.protocol.Clone()
		p.ID = out.NextProtocol
		out.NextProtocol++
		if opts.Average {
			p.Segments = NewFrameSet(perBucket[i])
		} else {
			p.Segments = b.frames.Remap(mapping)
		}
		out.Protocols = append(out.Protocols, p)
		out.Whole.addProtocol(p.ID)
	}
	out.sortProtocols()

	for _, l := range d.Landmarks {
		cp := l.CopyDetached()
		cp.RemapFrames(mapping)
		if !cp.States.IsUniform() && len(cp.States.PerFrame) == 0 {
			continue
		}
		out.NextLandmark++
		cp.ID = LandmarkID(fmt.Sprintf("lm-%d", out.NextLandmark))
		if out.Landmarks == nil {
			out.Landmarks = make(map[string]Landmark)
		}
		out.Landmarks[cp.Key()] = cp
	}

	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("extract %q from %q: %w", unitName, d.Name, err)
	}
	out.rebuildEventIndex()
	return out, nil
}

// selectBuckets partitions the unit's frames by protocol and applies the
// outcome filter, dropping frames whose flags fail the test and buckets left
// without frames.
func (d *Dataset) selectBuckets(u AnalysisUnit, unitFrames FrameSet, opts ExtractOptions) ([]extractBucket, error) {
	byName := d.protocolBuckets(u, unitFrames)
	var buckets []extractBucket
	for i := range d.Protocols {
		if frames, ok := byName[d.Protocols[i].Name]; ok {
			buckets = append(buckets, extractBucket{name: d.Protocols[i].Name, protocol: &d.Protocols[i], frames: frames})
		}
	}
	if frames, ok := byName[NoProtocolBucket]; ok {
		buckets = append(buckets, extractBucket{name: NoProtocolBucket, frames: frames})
	}

	if !opts.ExcludeFailures {
		return buckets, nil
	}
	kept := buckets[:0]
	for _, b := range buckets {
		var selected FrameSet
		for _, f := range b.frames {
			entry, ok := d.derivedEntry(u.Name, f)
			if !ok {
				return nil, ErrNotAnalysed{Unit: u.Name, Protocol: b.name, Frame: f}
			}
			pass, err := opts.Test.Passes(entry.Success)
			if err != nil {
				return nil, err
			}
			if pass {
				selected = selected.Add(f)
			}
		}
		if selected.Len() > 0 {
			b.frames = selected
			kept = append(kept, b)
		}
	}
	return kept, nil
}

// buildFrameMapping assigns new frame indices to the selection. Without
// averaging every selected frame maps to a densely renumbered index; with
// averaging each bucket collapses to one index and the mapping carries only
// the bucket's first frame, which stands in for the collapsed state of
// frame-keyed collections.
func buildFrameMapping(buckets []extractBucket, average bool) (mapping map[int]int, perBucket []int, newCount int) {
	mapping = make(map[int]int)
	perBucket = make([]int, len(buckets))
	if average {
		for i, b := range buckets {
			perBucket[i] = i
			if b.frames.Len() > 0 {
				mapping[b.frames.First()] = i
			}
		}
		return mapping, perBucket, len(buckets)
	}
	var all []int
	seen := make(map[int]struct{})
	for _, b := range buckets {
		for _, f := range b.frames {
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				all = append(all, f)
			}
		}
	}
	sort.Ints(all)
	for i, f := range all {
		mapping[f] = i
	}
	return mapping, perBucket, len(all)
}

func extractTracks(tracks []Track, buckets []extractBucket, mapping map[int]int, newCount int, average bool) ([]Track, error) {
	var out []Track
	for _, t := range tracks {
		nt := Track{Name: t.Name, Family: t.Family, Channels: t.Channels, Calibration: t.Calibration.Clone()}
		nt.Frames = make([]Payload, newCount)
		if average {
			for i, b := range buckets {
				group := make([]Payload, 0, b.frames.Len())
				for _, f := range b.frames {
					group = append(group, t.Frames[f])
				}
				mean, ok := MeanPayload(group)
				if !ok {
					return nil, ErrIncompatibleDatasets{Reason: fmt.Sprintf("track %q: frames of bucket %q differ in shape", t.Name, b.name)}
				}
				nt.Frames[i] = mean
			}
		} else {
			for old, idx := range mapping {
				nt.Frames[idx] = t.Frames[old].Clone()
			}
		}
		out = append(out, nt)
	}
	return out, nil
}

func extractDerived(tracks []DerivedTrack, buckets []extractBucket, mapping map[int]int, newCount int, average bool) []DerivedTrack {
	var out []DerivedTrack
	for _, t := range tracks {
		nt := DerivedTrack{Name: t.Name, Frames: make([]DerivedFrame, newCount)}
		if !average {
			for old, idx := range mapping {
				if old < len(t.Frames) {
					nt.Frames[idx] = t.Frames[old].Clone()
				}
			}
		}
		out = append(out, nt)
	}
	return out
}

func cloneDescriptors(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
