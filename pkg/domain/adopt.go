package domain

import "fmt"

// AdoptProtocols copies protocols from a source dataset into the receiver
// without shifting frame indices. Same-name protocols merge their segment
// sets when event-compatible and fail with ErrProtocolTimingMismatch
// otherwise; new protocols are bounds-checked against the receiver's frame
// axis and associated with the whole-dataset unit and every intersecting
// landmark-based unit.
func (d *Dataset) AdoptProtocols(src *Dataset) error {
	frameCount := d.FrameCount()
	for _, p := range src.Protocols {
		if p.Segments.Len() == 0 {
			return ErrEmptyFrameSet{Entity: EntityProtocol, Name: p.Name}
		}
		if max := p.Segments.Max(); max >= frameCount {
			return ErrIndexOutOfRange{Entity: EntityProtocol, Name: p.Name, Index: max, Bound: frameCount}
		}
		if idx, exists := d.ProtocolByName(p.Name); exists && !d.Protocols[idx].EventsCompatible(p) {
			return ErrProtocolTimingMismatch{Protocol: p.Name}
		}
	}
	return d.apply(func(work *Dataset) error {
		for _, p := range src.Protocols {
			if idx, exists := work.ProtocolByName(p.Name); exists {
				work.Protocols[idx].Segments = work.Protocols[idx].Segments.Union(p.Segments)
				continue
			}
			cp := p.Clone()
			cp.ID = work.NextProtocol
			work.NextProtocol++
			work.Protocols = append(work.Protocols, cp)
			work.Whole.addProtocol(cp.ID)
			for i := range work.Units {
				u := &work.Units[i]
				if work.UnitFramesIgnoringProtocols(*u).Intersect(cp.Segments).Len() > 0 {
					u.addProtocol(cp.ID)
				}
			}
		}
		work.sortProtocols()
		return nil
	})
}

// AdoptLandmarks copies landmarks from a source dataset into the receiver.
// Landmarks whose (name, kind) identity already exists in the receiver are
// skipped. Links between adopted landmarks are re-resolved against the
// receiver's own table; links whose target has no equivalent there are
// dropped.
func (d *Dataset) AdoptLandmarks(src *Dataset) error {
	frameCount := d.FrameCount()
	for _, l := range src.Landmarks {
		if l.States.IsUniform() {
			continue
		}
		for f := range l.States.PerFrame {
			if f < 0 || f >= frameCount {
				return ErrIndexOutOfRange{Entity: EntityLandmark, Name: l.Name, Index: f, Bound: frameCount}
			}
		}
	}
	return d.apply(func(work *Dataset) error {
		adopted := make(map[LandmarkID]LandmarkID, len(src.Landmarks))
		for _, l := range src.Landmarks {
			if existing, ok := work.LandmarkByIdentity(l.Name, l.Kind); ok {
				adopted[l.ID] = existing.ID
				continue
			}
			cp := l.CopyDetached()
			work.NextLandmark++
			cp.ID = LandmarkID(fmt.Sprintf("lm-%d", work.NextLandmark))
			if work.Landmarks == nil {
				work.Landmarks = make(map[string]Landmark)
			}
			if _, taken := work.Landmarks[cp.Key()]; taken {
				return ErrNameCollision{Entity: EntityLandmark, Name: cp.Key()}
			}
			work.Landmarks[cp.Key()] = cp
			adopted[l.ID] = cp.ID
		}
		for _, l := range src.Landmarks {
			if len(l.Links) == 0 {
				continue
			}
			ownerID := adopted[l.ID]
			for key, stored := range work.Landmarks {
				if stored.ID != ownerID {
					continue
				}
				for target, spec := range l.Links {
					mapped, ok := adopted[target]
					if !ok || mapped == stored.ID {
						continue
					}
					if stored.Links == nil {
						stored.Links = make(map[LandmarkID]LinkSpec)
					}
					if _, exists := stored.Links[mapped]; !exists {
						stored.Links[mapped] = spec.Clone()
					}
				}
				work.Landmarks[key] = stored
			}
		}
		return nil
	})
}
