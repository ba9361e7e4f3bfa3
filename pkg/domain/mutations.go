package domain

import "fmt"

// AddProtocol registers a protocol with the dataset, associating it with the
// whole-dataset unit and with every landmark-based unit whose frames
// intersect its segments.
func (d *Dataset) AddProtocol(p Protocol) error {
	if p.Segments.Len() == 0 {
		return ErrEmptyFrameSet{Entity: EntityProtocol, Name: p.Name}
	}
	if max := p.Segments.Max(); max >= d.FrameCount() {
		return ErrIndexOutOfRange{Entity: EntityProtocol, Name: p.Name, Index: max, Bound: d.FrameCount()}
	}
	if _, exists := d.ProtocolByName(p.Name); exists {
		return ErrNameCollision{Entity: EntityProtocol, Name: p.Name}
	}
	return d.apply(func(work *Dataset) error {
		reg := p.Clone()
		if reg.Domain == "" {
			reg.Domain = DomainSecondary
		}
		reg.ID = work.NextProtocol
		work.NextProtocol++
		work.Protocols = append(work.Protocols, reg)
		work.sortProtocols()
		work.Whole.addProtocol(reg.ID)
		for i := range work.Units {
			u := &work.Units[i]
			if work.UnitFramesIgnoringProtocols(*u).Intersect(reg.Segments).Len() > 0 {
				u.addProtocol(reg.ID)
			}
		}
		return nil
	})
}

// UnitFramesIgnoringProtocols derives a unit's frame set from its landmark
// alone, used when deciding whether a new protocol touches the unit.
func (d *Dataset) UnitFramesIgnoringProtocols(u AnalysisUnit) FrameSet {
	if u.Landmark == nil {
		return FrameRange(d.FrameCount())
	}
	l, ok := d.LandmarkByID(*u.Landmark)
	if !ok {
		return nil
	}
	return l.Frames(d.FrameCount())
}

// RemoveProtocol deletes the named protocol and strips it from every
// analysis unit that referenced it.
func (d *Dataset) RemoveProtocol(name string) error {
	idx, ok := d.ProtocolByName(name)
	if !ok {
		return ErrNotFound{Entity: EntityProtocol, Name: name}
	}
	id := d.Protocols[idx].ID
	return d.apply(func(work *Dataset) error {
		work.Protocols = append(work.Protocols[:idx:idx], work.Protocols[idx+1:]...)
		work.Whole.removeProtocol(id)
		for i := range work.Units {
			work.Units[i].removeProtocol(id)
		}
		return nil
	})
}

// AddLandmark registers a landmark, assigning it a dataset-local ID when the
// caller left it empty. Per-frame states must lie inside the current frame
// bound.
func (d *Dataset) AddLandmark(l Landmark) (LandmarkID, error) {
	if l.Location == "" {
		l.Location = LocationPrimary
	}
	if _, exists := d.Landmarks[l.Key()]; exists {
		return "", ErrNameCollision{Entity: EntityLandmark, Name: l.Key()}
	}
	if !l.States.IsUniform() {
		if len(l.States.PerFrame) == 0 {
			return "", ErrEmptyFrameSet{Entity: EntityLandmark, Name: l.Name}
		}
		for f := range l.States.PerFrame {
			if f < 0 || f >= d.FrameCount() {
				return "", ErrIndexOutOfRange{Entity: EntityLandmark, Name: l.Name, Index: f, Bound: d.FrameCount()}
			}
		}
	}
	var id LandmarkID
	err := d.apply(func(work *Dataset) error {
		reg := l.Clone()
		if reg.ID == "" {
			work.NextLandmark++
			reg.ID = LandmarkID(fmt.Sprintf("lm-%d", work.NextLandmark))
		}
		id = reg.ID
		if work.Landmarks == nil {
			work.Landmarks = make(map[string]Landmark)
		}
		work.Landmarks[reg.Key()] = reg
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// RemoveLandmark deletes a landmark and cascades to the analysis unit built
// on it.
func (d *Dataset) RemoveLandmark(loc StorageLocation, name string) error {
	l, ok := d.LandmarkByKey(loc, name)
	if !ok {
		return ErrNotFound{Entity: EntityLandmark, Name: LandmarkKey(loc, name)}
	}
	return d.apply(func(work *Dataset) error {
		work.deleteLandmarkCascade(l.ID)
		return nil
	})
}

// deleteLandmarkCascade removes a landmark, its unit, and every link
// pointing at it. Operates on a candidate state only.
func (d *Dataset) deleteLandmarkCascade(id LandmarkID) {
	for key, l := range d.Landmarks {
		if l.ID == id {
			delete(d.Landmarks, key)
			continue
		}
		delete(l.Links, id)
	}
	if idx, ok := d.unitIndexForLandmark(id); ok {
		d.Units = append(d.Units[:idx:idx], d.Units[idx+1:]...)
	}
}

// AddUnit registers a landmark-based analysis unit. Unit names are unique
// within the dataset and each landmark carries at most one unit. An empty
// Kind is classified from the unit name.
func (d *Dataset) AddUnit(u AnalysisUnit) error {
	if u.Landmark == nil {
		return ErrTypeMismatch{Entity: EntityUnit, Name: u.Name, Want: "landmark-bound unit", Got: "whole-dataset unit"}
	}
	if _, exists := d.UnitByName(u.Name); exists {
		return ErrNameCollision{Entity: EntityUnit, Name: u.Name}
	}
	if _, ok := d.LandmarkByID(*u.Landmark); !ok {
		return ErrNotFound{Entity: EntityLandmark, Name: string(*u.Landmark)}
	}
	if _, taken := d.unitIndexForLandmark(*u.Landmark); taken {
		return ErrNameCollision{Entity: EntityUnit, Name: fmt.Sprintf("landmark %s already bound", *u.Landmark)}
	}
	return d.apply(func(work *Dataset) error {
		reg := u.Clone()
		if reg.Kind == "" {
			reg.Kind = Classify(reg.Name)
		}
		if reg.Cell == "" {
			reg.Cell = work.Whole.Cell
		}
		if reg.Field == "" {
			reg.Field = work.Whole.Field
		}
		// Pick up every protocol whose segments touch the unit's frames.
		frames := work.UnitFramesIgnoringProtocols(reg)
		for _, p := range work.Protocols {
			if p.Segments.Intersect(frames).Len() > 0 {
				reg.addProtocol(p.ID)
			}
		}
		work.Units = append(work.Units, reg)
		return nil
	})
}

// RemoveUnit deletes an analysis unit and cascades to its landmark. The
// whole-dataset unit cannot be removed.
func (d *Dataset) RemoveUnit(name string) error {
	if name == d.Whole.Name {
		return ErrTypeMismatch{Entity: EntityUnit, Name: name, Want: "landmark-bound unit", Got: "whole-dataset unit"}
	}
	var landmark *LandmarkID
	found := false
	for _, u := range d.Units {
		if u.Name == name {
			landmark = u.Landmark
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound{Entity: EntityUnit, Name: name}
	}
	return d.apply(func(work *Dataset) error {
		if landmark != nil {
			work.deleteLandmarkCascade(*landmark)
		}
		return nil
	})
}

// RenameUnit renames an analysis unit, retagging its analysed entries in
// every derived track and renaming the underlying landmark when its name has
// diverged from the unit's.
func (d *Dataset) RenameUnit(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if _, exists := d.UnitByName(newName); exists {
		return ErrNameCollision{Entity: EntityUnit, Name: newName}
	}
	if _, ok := d.UnitByName(oldName); !ok {
		return ErrNotFound{Entity: EntityUnit, Name: oldName}
	}
	return d.apply(func(work *Dataset) error {
		var landmark *LandmarkID
		if work.Whole.Name == oldName {
			work.Whole.Name = newName
			work.Name = newName
		} else {
			for i := range work.Units {
				if work.Units[i].Name == oldName {
					work.Units[i].Name = newName
					landmark = work.Units[i].Landmark
					break
				}
			}
		}
		for ti := range work.Derived {
			for fi := range work.Derived[ti].Frames {
				entries := work.Derived[ti].Frames[fi].Entries
				if e, ok := entries[oldName]; ok {
					delete(entries, oldName)
					entries[newName] = e
				}
			}
		}
		if landmark != nil {
			if l, ok := work.LandmarkByID(*landmark); ok && l.Name != newName {
				delete(work.Landmarks, l.Key())
				l.Name = newName
				work.Landmarks[l.Key()] = l
			}
		}
		return nil
	})
}

// SetPrimary assigns the primary track family. Reassigning image data resets
// every collection whose meaning was tied to the replaced frame axis:
// landmarks, protocols, derived tracks, and all landmark-based units. This
// reset is part of the contract, not a side effect.
func (d *Dataset) SetPrimary(tracks []Track) error {
	if err := checkFamily(tracks, FamilyPrimary); err != nil {
		return err
	}
	return d.apply(func(work *Dataset) error {
		work.Primary = cloneTracks(tracks)
		work.resetFrameBoundCollections()
		work.Secondary = nil
		return nil
	})
}

// SetSecondary assigns the secondary track family; the secondary frame axis
// must agree with an already-assigned primary axis. Like SetPrimary it
// resets landmarks, protocols, derived tracks, and landmark-based units.
func (d *Dataset) SetSecondary(tracks []Track) error {
	if err := checkFamily(tracks, FamilySecondary); err != nil {
		return err
	}
	if len(d.Primary) > 0 && len(tracks) > 0 && tracks[0].FrameCount() != d.FrameCount() {
		return ErrIncompatibleDatasets{Reason: fmt.Sprintf("secondary frame count %d does not match primary %d", tracks[0].FrameCount(), d.FrameCount())}
	}
	return d.apply(func(work *Dataset) error {
		work.Secondary = cloneTracks(tracks)
		work.resetFrameBoundCollections()
		return nil
	})
}

// resetFrameBoundCollections drops everything keyed by frame index.
func (d *Dataset) resetFrameBoundCollections() {
	d.Landmarks = nil
	d.Protocols = nil
	d.Derived = nil
	d.Units = nil
	d.Whole.Protocols = nil
}

// AddDerivedTrack registers a derived signal track sized to the dataset's
// frame count.
func (d *Dataset) AddDerivedTrack(name string) error {
	for _, t := range d.Derived {
		if t.Name == name {
			return ErrNameCollision{Entity: EntityTrack, Name: name}
		}
	}
	return d.apply(func(work *Dataset) error {
		work.Derived = append(work.Derived, DerivedTrack{
			Name:   name,
			Frames: make([]DerivedFrame, work.FrameCount()),
		})
		return nil
	})
}

// SetDerivedEntry stores an analysed entry for a unit at one frame of the
// named derived track.
func (d *Dataset) SetDerivedEntry(track, unitName string, frame int, entry SignalEntry) error {
	if frame < 0 || frame >= d.FrameCount() {
		return ErrIndexOutOfRange{Entity: EntityTrack, Name: track, Index: frame, Bound: d.FrameCount()}
	}
	if _, ok := d.UnitByName(unitName); !ok {
		return ErrNotFound{Entity: EntityUnit, Name: unitName}
	}
	return d.apply(func(work *Dataset) error {
		for ti := range work.Derived {
			if work.Derived[ti].Name != track {
				continue
			}
			if work.Derived[ti].Frames[frame].Entries == nil {
				work.Derived[ti].Frames[frame].Entries = make(map[string]SignalEntry)
			}
			work.Derived[ti].Frames[frame].Entries[unitName] = entry.Clone()
			return nil
		}
		return ErrNotFound{Entity: EntityTrack, Name: track}
	})
}

func checkFamily(tracks []Track, family TrackFamily) error {
	var frameCount = -1
	for _, t := range tracks {
		if t.Family != family {
			return ErrTypeMismatch{Entity: EntityTrack, Name: t.Name, Want: string(family), Got: string(t.Family)}
		}
		if frameCount == -1 {
			frameCount = t.FrameCount()
		} else if t.FrameCount() != frameCount {
			return ErrIncompatibleDatasets{Reason: fmt.Sprintf("track %q has %d frames, expected %d", t.Name, t.FrameCount(), frameCount)}
		}
	}
	return nil
}

func cloneTracks(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}
