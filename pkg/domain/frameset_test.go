package domain

import "testing"

func TestNewFrameSetSortsAndDeduplicates(t *testing.T) {
	s := NewFrameSet(3, 1, 3, 0, 1)
	if !s.Equal(FrameSet{0, 1, 3}) {
		t.Fatalf("unexpected set: %v", s)
	}
	if NewFrameSet() != nil {
		t.Fatalf("expected nil for empty input")
	}
}

func TestFrameSetMembership(t *testing.T) {
	s := NewFrameSet(0, 2, 5)
	if !s.Contains(2) || s.Contains(3) {
		t.Fatalf("membership wrong for %v", s)
	}
	if s.First() != 0 || s.Max() != 5 {
		t.Fatalf("bounds wrong: first=%d max=%d", s.First(), s.Max())
	}
	var empty FrameSet
	if empty.First() != -1 || empty.Max() != -1 {
		t.Fatalf("empty set bounds should be -1")
	}
}

func TestFrameSetUnionIntersect(t *testing.T) {
	a := NewFrameSet(0, 1, 4)
	b := NewFrameSet(1, 2, 4)
	if got := a.Union(b); !got.Equal(FrameSet{0, 1, 2, 4}) {
		t.Fatalf("union: %v", got)
	}
	if got := a.Intersect(b); !got.Equal(FrameSet{1, 4}) {
		t.Fatalf("intersect: %v", got)
	}
}

func TestFrameSetRemoveAndShift(t *testing.T) {
	s := NewFrameSet(0, 2, 3, 5)
	got := s.RemoveAndShift(2)
	if !got.Equal(FrameSet{0, 2, 4}) {
		t.Fatalf("remove and shift: %v", got)
	}
	// Removing an index that is not a member still shifts members above it.
	got = s.RemoveAndShift(1)
	if !got.Equal(FrameSet{0, 1, 2, 4}) {
		t.Fatalf("remove non-member: %v", got)
	}
	if got := NewFrameSet(4).RemoveAndShift(4); got.Len() != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestFrameSetShiftAndRemap(t *testing.T) {
	s := NewFrameSet(0, 2)
	if got := s.Shift(4); !got.Equal(FrameSet{4, 6}) {
		t.Fatalf("shift: %v", got)
	}
	mapping := map[int]int{2: 0, 5: 1}
	if got := NewFrameSet(0, 2, 5).Remap(mapping); !got.Equal(FrameSet{0, 1}) {
		t.Fatalf("remap: %v", got)
	}
}

func TestFrameSetImmutability(t *testing.T) {
	s := NewFrameSet(1, 3)
	_ = s.Add(2)
	_ = s.Shift(1)
	_ = s.RemoveAndShift(1)
	if !s.Equal(FrameSet{1, 3}) {
		t.Fatalf("receiver mutated: %v", s)
	}
}

func TestFrameRange(t *testing.T) {
	if got := FrameRange(3); !got.Equal(FrameSet{0, 1, 2}) {
		t.Fatalf("range: %v", got)
	}
	if FrameRange(0) != nil {
		t.Fatalf("expected nil for zero range")
	}
}
