package domain

// RemoveFrame drops one frame from every track and rewrites every
// frame-indexed collection to the shortened axis. Protocols whose segment
// sets empty out are removed, as are landmarks whose per-frame states empty
// out, together with the analysis units built on them. The per-domain event
// index is rebuilt wholesale on commit.
func (d *Dataset) RemoveFrame(index int) error {
	if index < 0 || index >= d.FrameCount() {
		return ErrIndexOutOfRange{Entity: EntityDataset, Name: d.Name, Index: index, Bound: d.FrameCount()}
	}
	if d.FrameCount() == 1 {
		return ErrEmptyFrameSet{Entity: EntityDataset, Name: d.Name}
	}
	return d.apply(func(work *Dataset) error {
		for i := range work.Primary {
			work.Primary[i].Frames = dropFrame(work.Primary[i].Frames, index)
		}
		for i := range work.Secondary {
			work.Secondary[i].Frames = dropFrame(work.Secondary[i].Frames, index)
		}
		for i := range work.Derived {
			work.Derived[i].Frames = dropFrame(work.Derived[i].Frames, index)
		}

		survivors := work.Protocols[:0]
		var removedProtocols []ProtocolID
		for _, p := range work.Protocols {
			p.Segments = p.Segments.RemoveAndShift(index)
			if p.Segments.Len() == 0 {
				removedProtocols = append(removedProtocols, p.ID)
				continue
			}
			survivors = append(survivors, p)
		}
		work.Protocols = survivors
		work.sortProtocols()
		for _, id := range removedProtocols {
			work.Whole.removeProtocol(id)
			for i := range work.Units {
				work.Units[i].removeProtocol(id)
			}
		}

		var emptied []LandmarkID
		for key, l := range work.Landmarks {
			if l.RemoveFrame(index) {
				emptied = append(emptied, l.ID)
				continue
			}
			work.Landmarks[key] = l
		}
		for _, id := range emptied {
			work.deleteLandmarkCascade(id)
		}
		return nil
	})
}

func dropFrame[T any](frames []T, index int) []T {
	out := make([]T, 0, len(frames)-1)
	out = append(out, frames[:index]...)
	return append(out, frames[index+1:]...)
}
