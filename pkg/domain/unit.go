package domain

import "strings"

// UnitKind classifies analysis units by the structure they delimit.
type UnitKind string

const (
	// UnitWhole is the implicit whole-dataset unit.
	UnitWhole UnitKind = "whole"
	// UnitCell delimits a cell body.
	UnitCell UnitKind = "cell"
	// UnitDendrite delimits a dendritic segment.
	UnitDendrite UnitKind = "dendrite"
	// UnitSpine delimits a dendritic spine.
	UnitSpine UnitKind = "spine"
	// UnitBackground delimits a background reference region.
	UnitBackground UnitKind = "background"
	// UnitUnknown is the documented fallback for unrecognised names.
	UnitUnknown UnitKind = "unknown"
)

// unitKindTable maps name prefixes to kinds. Longer prefixes win; the table
// is fixed at compile time and never mutated at runtime.
var unitKindTable = []struct {
	prefix string
	kind   UnitKind
}{
	{"data", UnitWhole},
	{"bg", UnitBackground},
	{"cell", UnitCell},
	{"den", UnitDendrite},
	{"sp", UnitSpine},
	{"c", UnitCell},
	{"d", UnitDendrite},
	{"s", UnitSpine},
	{"b", UnitBackground},
}

// Classify derives a unit kind from a unit name. Unrecognised names map to
// UnitUnknown; there is no mutable default table.
func Classify(name string) UnitKind {
	lower := strings.ToLower(name)
	for _, entry := range unitKindTable {
		if strings.HasPrefix(lower, entry.prefix) {
			return entry.kind
		}
	}
	return UnitUnknown
}

// AnalysisUnit joins an optional landmark with a subset of protocols. A nil
// Landmark means the whole dataset. Units hold protocol IDs, never protocol
// values, so arena-wide protocol edits are visible everywhere without
// aliasing hazards.
type AnalysisUnit struct {
	Name        string            `json:"name"`
	Kind        UnitKind          `json:"kind"`
	Landmark    *LandmarkID       `json:"landmark,omitempty"`
	Protocols   []ProtocolID      `json:"protocols,omitempty"`
	InSecondary bool              `json:"in_secondary"`
	Cell        string            `json:"cell"`
	Field       string            `json:"field"`
	Descriptors map[string]string `json:"descriptors,omitempty"`
}

// Clone returns a deep copy.
func (u AnalysisUnit) Clone() AnalysisUnit {
	cp := u
	if u.Landmark != nil {
		id := *u.Landmark
		cp.Landmark = &id
	}
	cp.Protocols = append([]ProtocolID(nil), u.Protocols...)
	if u.Descriptors != nil {
		cp.Descriptors = make(map[string]string, len(u.Descriptors))
		for k, v := range u.Descriptors {
			cp.Descriptors[k] = v
		}
	}
	return cp
}

// HasProtocol reports whether the unit references the protocol ID.
func (u AnalysisUnit) HasProtocol(id ProtocolID) bool {
	for _, p := range u.Protocols {
		if p == id {
			return true
		}
	}
	return false
}

// addProtocol appends the protocol ID if absent.
func (u *AnalysisUnit) addProtocol(id ProtocolID) {
	if !u.HasProtocol(id) {
		u.Protocols = append(u.Protocols, id)
	}
}

// removeProtocol strips the protocol ID.
func (u *AnalysisUnit) removeProtocol(id ProtocolID) {
	out := u.Protocols[:0]
	for _, p := range u.Protocols {
		if p != id {
			out = append(out, p)
		}
	}
	u.Protocols = out
}

// OutcomeMode selects how per-event success flags are folded into a single
// keep/drop decision during extraction.
type OutcomeMode string

const (
	// OutcomeAny keeps a frame when any tested component succeeded.
	OutcomeAny OutcomeMode = "any"
	// OutcomeAll keeps a frame only when every tested component succeeded.
	OutcomeAll OutcomeMode = "all"
	// OutcomeComponents restricts the test to an explicit component index set.
	OutcomeComponents OutcomeMode = "components"
)

// OutcomeTest composes per-event success flags into a frame-level outcome.
// With OutcomeComponents, every listed index must be recorded for the frame;
// a frame reporting fewer components fails with ErrIndexOutOfRange rather
// than assuming a default ordering.
type OutcomeTest struct {
	Mode       OutcomeMode `json:"mode"`
	Components []int       `json:"components,omitempty"`
}

// Passes folds the recorded flags of one frame into a keep decision.
func (t OutcomeTest) Passes(flags []bool) (bool, error) {
	switch t.Mode {
	case OutcomeComponents:
		if len(t.Components) == 0 {
			return false, ErrEmptyFrameSet{Entity: EntityUnit, Name: "outcome components"}
		}
		for _, c := range t.Components {
			if c < 0 || c >= len(flags) {
				return false, ErrIndexOutOfRange{Entity: EntityUnit, Name: "outcome component", Index: c, Bound: len(flags)}
			}
			if !flags[c] {
				return false, nil
			}
		}
		return true, nil
	case OutcomeAll:
		for _, f := range flags {
			if !f {
				return false, nil
			}
		}
		return len(flags) > 0, nil
	default: // OutcomeAny
		for _, f := range flags {
			if f {
				return true, nil
			}
		}
		return false, nil
	}
}
