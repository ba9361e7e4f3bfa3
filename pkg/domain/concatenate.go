package domain

import "fmt"

// ConcatOptions controls how frames of the second dataset are fitted onto
// the first dataset's track geometry during Concatenate.
type ConcatOptions struct {
	// Pad selects how undersized non-frame axes are filled. The zero value
	// means PadCrop, which rejects undersized frames instead of inventing
	// samples.
	Pad PadPolicy
	// Fill is the constant used with PadConstant.
	Fill float64
}

func (o ConcatOptions) policy() PadPolicy {
	if o.Pad == "" {
		return PadCrop
	}
	return o.Pad
}

// Concatenate appends other's frames after a's, producing a new dataset.
// Neither input is mutated. Protocols, landmarks and analysis units of the
// two datasets are merged by name identity; same-name protocols whose
// recorded event timings agree only in the imaging domain are merged with a
// warning-level note in the returned Result.
func Concatenate(a, other *Dataset, opts ConcatOptions) (*Dataset, Result, error) {
	var res Result
	if err := checkConcatPreconditions(a, other); err != nil {
		return nil, res, err
	}

	out := a.Clone()
	shift := a.FrameCount()

	if err := appendTrackFamily(out.Primary, other.Primary, opts); err != nil {
		return nil, res, err
	}
	if err := appendTrackFamily(out.Secondary, other.Secondary, opts); err != nil {
		return nil, res, err
	}

	protoIDs, err := mergeProtocols(out, other, shift, &res)
	if err != nil {
		return nil, res, err
	}
	landmarkIDs, err := mergeLandmarks(out, other, shift)
	if err != nil {
		return nil, res, err
	}
	if err := mergeUnits(out, other, protoIDs, landmarkIDs); err != nil {
		return nil, res, err
	}
	mergeDerived(out, other, shift)

	out.sortProtocols()
	if err := out.Validate(); err != nil {
		return nil, res, fmt.Errorf("concatenate %q + %q: %w", a.Name, other.Name, err)
	}
	out.rebuildEventIndex()
	return out, res, nil
}

func checkConcatPreconditions(a, b *Dataset) error {
	switch {
	case a.Mode != b.Mode:
		return ErrIncompatibleDatasets{Reason: fmt.Sprintf("analysis mode %q vs %q", a.Mode, b.Mode)}
	case a.ScanType != b.ScanType:
		return ErrIncompatibleDatasets{Reason: fmt.Sprintf("scan type %q vs %q", a.ScanType, b.ScanType)}
	case a.Whole.Cell != b.Whole.Cell:
		return ErrIncompatibleDatasets{Reason: fmt.Sprintf("cell %q vs %q", a.Whole.Cell, b.Whole.Cell)}
	case a.Whole.Field != b.Whole.Field:
		return ErrIncompatibleDatasets{Reason: fmt.Sprintf("field %q vs %q", a.Whole.Field, b.Whole.Field)}
	case len(a.Primary) != len(b.Primary) || len(a.Secondary) != len(b.Secondary):
		return ErrIncompatibleDatasets{Reason: "track family shapes differ"}
	}
	if err := checkTrackNames(a.Primary, b.Primary); err != nil {
		return err
	}
	return checkTrackNames(a.Secondary, b.Secondary)
}

// checkTrackNames requires every destination track to have a same-name
// counterpart in the appended dataset.
func checkTrackNames(dst, src []Track) error {
	for i := range dst {
		found := false
		for j := range src {
			if src[j].Name == dst[i].Name {
				found = true
				break
			}
		}
		if !found {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("no track named %q in the appended dataset", dst[i].Name)}
		}
	}
	return nil
}

// appendTrackFamily appends src's frames onto the matching dst tracks,
// fitting each frame to dst's geometry. Tracks are matched by name.
func appendTrackFamily(dst, src []Track, opts ConcatOptions) error {
	for i := range dst {
		t := &dst[i]
		var match *Track
		for j := range src {
			if src[j].Name == t.Name {
				match = &src[j]
				break
			}
		}
		if match == nil {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("no track named %q in the appended dataset", t.Name)}
		}
		if match.Channels != t.Channels {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("track %q has %d channels vs %d", t.Name, match.Channels, t.Channels)}
		}
		for _, frame := range match.Frames {
			fitted, err := fitFrame(frame, t, match.Calibration, opts)
			if err != nil {
				return err
			}
			t.Frames = append(t.Frames, fitted)
		}
	}
	return nil
}

// fitFrame conforms one incoming payload to the destination track's frame
// geometry: identical shapes pass through, differing calibrations are
// resampled, and remaining shape differences fall under the pad policy.
func fitFrame(p Payload, dst *Track, srcCal Calibration, opts ConcatOptions) (Payload, error) {
	if len(dst.Frames) == 0 {
		return p.Clone(), nil
	}
	target := dst.Frames[0]
	if p.ShapeEqual(target) {
		return p.Clone(), nil
	}
	if !srcCal.Equal(dst.Calibration) && len(srcCal.Spacing) == len(p.Shape) && len(dst.Calibration.Spacing) == len(p.Shape) {
		if resampled, ok := ResamplePayload(p, srcCal, target.Shape, dst.Calibration); ok {
			return resampled, nil
		}
	}
	fitted, ok := ConformPayload(p, target.Shape, opts.policy(), opts.Fill)
	if !ok {
		return Payload{}, ErrIncompatibleDatasets{Reason: fmt.Sprintf("track %q: frame shape %v cannot be fitted to %v under policy %q", dst.Name, p.Shape, target.Shape, opts.policy())}
	}
	return fitted, nil
}

// mergeProtocols folds other's protocols into out, shifting segment indices
// by the original frame count. It returns the mapping from other's protocol
// IDs to the merged arena's IDs.
func mergeProtocols(out, other *Dataset, shift int, res *Result) (map[ProtocolID]ProtocolID, error) {
	ids := make(map[ProtocolID]ProtocolID, len(other.Protocols))
	for _, p := range other.Protocols {
		shifted := p.Clone()
		shifted.Segments = shifted.Segments.Shift(shift)

		if idx, exists := out.ProtocolByName(p.Name); exists {
			existing := &out.Protocols[idx]
			switch {
			case existing.EventsCompatible(p):
			case existing.ImagingCompatible(p):
				res.Merge(Result{Violations: []Violation{{
					Rule:     "protocol-event-compatibility",
					Severity: SeverityWarn,
					Message:  fmt.Sprintf("protocol %q merged on imaging-domain timings only", p.Name),
					Entity:   EntityProtocol,
					EntityID: p.Name,
				}}})
			default:
				return nil, ErrProtocolTimingMismatch{Protocol: p.Name}
			}
			existing.Segments = existing.Segments.Union(shifted.Segments)
			ids[p.ID] = existing.ID
			continue
		}

		shifted.ID = out.NextProtocol
		out.NextProtocol++
		out.Protocols = append(out.Protocols, shifted)
		out.Whole.addProtocol(shifted.ID)
		ids[p.ID] = shifted.ID
	}
	return ids, nil
}

// mergeLandmarks folds other's landmarks into out under the frame shift,
// extending same-identity landmarks and copying the rest detached. Links are
// re-established against the merged table afterwards; links whose target has
// no equivalent in the merged result are dropped.
func mergeLandmarks(out, other *Dataset, shift int) (map[LandmarkID]LandmarkID, error) {
	ids := make(map[LandmarkID]LandmarkID, len(other.Landmarks))
	for _, src := range other.Landmarks {
		if existing, ok := out.LandmarkByIdentity(src.Name, src.Kind); ok {
			merged := extendFrameStates(existing, src, shift, other.FrameCount())
			out.Landmarks[existing.Key()] = merged
			ids[src.ID] = existing.ID
			continue
		}
		cp := src.CopyDetached()
		cp.ShiftFrames(shift)
		if cp.States.IsUniform() {
			// A uniform landmark in the source only covers the source's own
			// frames once appended after foreign ones.
			cp.States = materializeRange(cp.States, shift, other.FrameCount())
		}
		out.NextLandmark++
		cp.ID = LandmarkID(fmt.Sprintf("lm-%d", out.NextLandmark))
		if out.Landmarks == nil {
			out.Landmarks = make(map[string]Landmark)
		}
		if _, taken := out.Landmarks[cp.Key()]; taken {
			return nil, ErrNameCollision{Entity: EntityLandmark, Name: cp.Key()}
		}
		out.Landmarks[cp.Key()] = cp
		ids[src.ID] = cp.ID
	}

	// Re-resolve links from the source against the merged table.
	for _, src := range other.Landmarks {
		if len(src.Links) == 0 {
			continue
		}
		ownerID := ids[src.ID]
		for key, l := range out.Landmarks {
			if l.ID != ownerID {
				continue
			}
			for target, spec := range src.Links {
				mapped, ok := ids[target]
				if !ok || mapped == l.ID {
					continue
				}
				if l.Links == nil {
					l.Links = make(map[LandmarkID]LinkSpec)
				}
				if _, exists := l.Links[mapped]; !exists {
					l.Links[mapped] = spec.Clone()
				}
			}
			out.Landmarks[key] = l
		}
	}
	return ids, nil
}

// extendFrameStates appends src's frame states (shifted) onto dst's. Two
// uniform landmarks with equal geometry stay uniform; every other pairing is
// materialised into an explicit per-frame map.
func extendFrameStates(dst, src Landmark, shift, srcFrames int) Landmark {
	merged := dst.Clone()
	if dst.States.IsUniform() && src.States.IsUniform() && statesEqual(*dst.States.Uniform, *src.States.Uniform) {
		return merged
	}
	states := materializeRange(dst.States, 0, shift).PerFrame
	for k, v := range materializeRange(src.States, shift, srcFrames).PerFrame {
		states[k] = v
	}
	merged.States = FrameStates{PerFrame: states}
	return merged
}

// materializeRange expands a frame-state association into an explicit
// per-frame map covering [offset, offset+count) for uniform states, or the
// stored keys shifted by offset otherwise.
func materializeRange(fs FrameStates, offset, count int) FrameStates {
	out := make(map[int]LandmarkState)
	if fs.IsUniform() {
		for f := 0; f < count; f++ {
			out[offset+f] = fs.Uniform.Clone()
		}
		return FrameStates{PerFrame: out}
	}
	for k, v := range fs.PerFrame {
		out[k+offset] = v.Clone()
	}
	return FrameStates{PerFrame: out}
}

func statesEqual(a, b LandmarkState) bool {
	if a.Width != b.Width || len(a.Points) != len(b.Points) {
		return false
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			return false
		}
	}
	return true
}

// mergeUnits folds other's analysis units into out. Same-name units must
// agree on kind, landmark kind and every shared descriptor; new units
// require their landmark to already exist in the merged result.
func mergeUnits(out, other *Dataset, protoIDs map[ProtocolID]ProtocolID, landmarkIDs map[LandmarkID]LandmarkID) error {
	for _, src := range other.Units {
		if existing, ok := out.UnitByName(src.Name); ok {
			if existing.Kind != src.Kind {
				return ErrUnitIdentityMismatch{Unit: src.Name, Reason: fmt.Sprintf("kind %q vs %q", existing.Kind, src.Kind)}
			}
			if err := checkLandmarkKinds(out, other, existing, src); err != nil {
				return err
			}
			for key, v := range src.Descriptors {
				if ev, shared := existing.Descriptors[key]; shared && ev != v {
					return ErrDescriptorMismatch{Unit: src.Name, Key: key}
				}
			}
			for i := range out.Units {
				if out.Units[i].Name != src.Name {
					continue
				}
				for _, id := range src.Protocols {
					if mapped, ok := protoIDs[id]; ok {
						out.Units[i].addProtocol(mapped)
					}
				}
			}
			continue
		}

		cp := src.Clone()
		cp.Protocols = nil
		for _, id := range src.Protocols {
			if mapped, ok := protoIDs[id]; ok {
				cp.addProtocol(mapped)
			}
		}
		if src.Landmark != nil {
			mapped, ok := landmarkIDs[*src.Landmark]
			if !ok {
				return ErrNotFound{Entity: EntityLandmark, Name: string(*src.Landmark)}
			}
			cp.Landmark = &mapped
		}
		out.Units = append(out.Units, cp)
	}

	// Protocol associations of other's whole unit carry over too.
	for _, id := range other.Whole.Protocols {
		if mapped, ok := protoIDs[id]; ok {
			out.Whole.addProtocol(mapped)
		}
	}
	return nil
}

func checkLandmarkKinds(out, other *Dataset, existing, src AnalysisUnit) error {
	if (existing.Landmark == nil) != (src.Landmark == nil) {
		return ErrUnitIdentityMismatch{Unit: src.Name, Reason: "landmark-bound vs whole-dataset"}
	}
	if existing.Landmark == nil {
		return nil
	}
	a, okA := out.LandmarkByID(*existing.Landmark)
	b, okB := other.LandmarkByID(*src.Landmark)
	if okA && okB && a.Kind != b.Kind {
		return ErrUnitIdentityMismatch{Unit: src.Name, Reason: fmt.Sprintf("landmark kind %q vs %q", a.Kind, b.Kind)}
	}
	return nil
}

// mergeDerived extends out's derived tracks to the new frame count and
// appends other's analysed entries where a same-name track exists in both.
func mergeDerived(out, other *Dataset, shift int) {
	total := shift + other.FrameCount()
	for i := range out.Derived {
		t := &out.Derived[i]
		var match *DerivedTrack
		for j := range other.Derived {
			if other.Derived[j].Name == t.Name {
				match = &other.Derived[j]
				break
			}
		}
		if match != nil {
			for _, f := range match.Frames {
				t.Frames = append(t.Frames, f.Clone())
			}
		}
		for len(t.Frames) < total {
			t.Frames = append(t.Frames, DerivedFrame{})
		}
	}
	for j := range other.Derived {
		exists := false
		for i := range out.Derived {
			if out.Derived[i].Name == other.Derived[j].Name {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		t := DerivedTrack{Name: other.Derived[j].Name}
		for f := 0; f < shift; f++ {
			t.Frames = append(t.Frames, DerivedFrame{})
		}
		for _, f := range other.Derived[j].Frames {
			t.Frames = append(t.Frames, f.Clone())
		}
		out.Derived = append(out.Derived, t)
	}
}
