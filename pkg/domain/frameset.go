package domain

import "sort"

// FrameSet is an ordered set of zero-based frame indices. The zero value is
// the empty set. All methods treat the receiver as immutable and return new
// sets; callers rely on this when building candidate states for an edit.
type FrameSet []int

// NewFrameSet builds a set from arbitrary indices, deduplicating and sorting.
func NewFrameSet(indices ...int) FrameSet {
	if len(indices) == 0 {
		return nil
	}
	out := append(FrameSet(nil), indices...)
	sort.Ints(out)
	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

// FrameRange returns the full set {0, …, n-1}.
func FrameRange(n int) FrameSet {
	if n <= 0 {
		return nil
	}
	out := make(FrameSet, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Len reports the number of frames in the set.
func (s FrameSet) Len() int { return len(s) }

// Contains reports whether index is a member.
func (s FrameSet) Contains(index int) bool {
	i := sort.SearchInts(s, index)
	return i < len(s) && s[i] == index
}

// First returns the smallest member, or -1 for the empty set.
func (s FrameSet) First() int {
	if len(s) == 0 {
		return -1
	}
	return s[0]
}

// Max returns the largest member, or -1 for the empty set.
func (s FrameSet) Max() int {
	if len(s) == 0 {
		return -1
	}
	return s[len(s)-1]
}

// Add returns the set with index included.
func (s FrameSet) Add(index int) FrameSet {
	if s.Contains(index) {
		return s.Clone()
	}
	out := append(s.Clone(), index)
	sort.Ints(out)
	return out
}

// Union returns the sorted union of both sets.
func (s FrameSet) Union(other FrameSet) FrameSet {
	return NewFrameSet(append(append([]int(nil), s...), other...)...)
}

// Intersect returns members present in both sets.
func (s FrameSet) Intersect(other FrameSet) FrameSet {
	var out FrameSet
	i, j := 0, 0
	for i < len(s) && j < len(other) {
		switch {
		case s[i] < other[j]:
			i++
		case s[i] > other[j]:
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	return out
}

// Shift returns the set with every member offset by the given amount.
func (s FrameSet) Shift(by int) FrameSet {
	if len(s) == 0 || by == 0 {
		return s.Clone()
	}
	out := make(FrameSet, len(s))
	for i, v := range s {
		out[i] = v + by
	}
	return out
}

// RemoveAndShift drops index from the set and decrements every member above
// it, preserving the strictly monotonic re-indexing required after a frame
// removal.
func (s FrameSet) RemoveAndShift(index int) FrameSet {
	var out FrameSet
	for _, v := range s {
		switch {
		case v < index:
			out = append(out, v)
		case v > index:
			out = append(out, v-1)
		}
	}
	return out
}

// Remap translates every member through the old-to-new frame mapping,
// dropping members the mapping does not cover.
func (s FrameSet) Remap(mapping map[int]int) FrameSet {
	var out []int
	for _, v := range s {
		if nv, ok := mapping[v]; ok {
			out = append(out, nv)
		}
	}
	return NewFrameSet(out...)
}

// Clone returns an independent copy.
func (s FrameSet) Clone() FrameSet {
	if s == nil {
		return nil
	}
	return append(FrameSet(nil), s...)
}

// Equal reports member-wise equality.
func (s FrameSet) Equal(other FrameSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i, v := range s {
		if other[i] != v {
			return false
		}
	}
	return true
}
