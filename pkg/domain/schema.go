package domain

import (
	"encoding/json"
	"fmt"
)

// SchemaVersion tags the persisted layout of a dataset. Snapshots written at
// an older version are upgraded step by step through a linear chain on load;
// forward references are rejected.
type SchemaVersion int

const (
	// SchemaV1 predates per-event timing-domain tags: every protocol event
	// was recorded in the electrophysiology clock.
	SchemaV1 SchemaVersion = 1
	// SchemaV2 added timing-domain tags but units carried no kind.
	SchemaV2 SchemaVersion = 2
	// SchemaV3 is the current layout.
	SchemaV3 SchemaVersion = 3

	// CurrentSchemaVersion is the version new datasets are written at.
	CurrentSchemaVersion = SchemaV3
)

// upgrade mutates a decoded dataset from version v to v+1. The chain is
// strictly linear; every step assumes the output of the previous one.
var upgrades = map[SchemaVersion]func(*Dataset){
	SchemaV1: func(d *Dataset) {
		// Untagged events were always recorded against the secondary clock.
		for i := range d.Protocols {
			if d.Protocols[i].Domain == "" {
				d.Protocols[i].Domain = DomainSecondary
			}
		}
	},
	SchemaV2: func(d *Dataset) {
		if d.Whole.Kind == "" {
			d.Whole.Kind = UnitWhole
		}
		for i := range d.Units {
			if d.Units[i].Kind == "" {
				d.Units[i].Kind = Classify(d.Units[i].Name)
			}
		}
	},
}

// Upgrade brings a decoded dataset to the current schema version, applying
// each chain step in order. Datasets written by a newer build are rejected.
func (d *Dataset) Upgrade() error {
	if d.Schema == 0 {
		d.Schema = SchemaV1
	}
	if d.Schema > CurrentSchemaVersion {
		return ErrTypeMismatch{
			Entity: EntityDataset,
			Name:   d.Name,
			Want:   fmt.Sprintf("schema <= %d", CurrentSchemaVersion),
			Got:    fmt.Sprintf("schema %d", d.Schema),
		}
	}
	for v := d.Schema; v < CurrentSchemaVersion; v++ {
		step, ok := upgrades[v]
		if !ok {
			return ErrNotFound{Entity: EntityDataset, Name: fmt.Sprintf("schema upgrade %d -> %d", v, v+1)}
		}
		step(d)
		d.Schema = v + 1
	}
	return nil
}

// EncodeSnapshot serialises a dataset at the current schema version.
func EncodeSnapshot(d *Dataset) ([]byte, error) {
	d.Schema = CurrentSchemaVersion
	return json.Marshal(d)
}

// DecodeSnapshot deserialises a dataset snapshot, runs the schema upgrade
// chain and validates the result before handing it to callers.
func DecodeSnapshot(raw []byte) (*Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode dataset snapshot: %w", err)
	}
	if err := d.Upgrade(); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", d.Name, err)
	}
	d.rebuildEventIndex()
	return &d, nil
}
