package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestUpgradeFromV1TagsDomainsAndKinds(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	addUnitWithLandmark(t, d, uniformLandmark("sp1", KindPoint), "sp1")
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	// Rewind to the oldest layout: untagged events, untagged kinds.
	d.Schema = SchemaV1
	d.Protocols[0].Domain = ""
	d.Whole.Kind = ""
	d.Units[0].Kind = ""

	if err := d.Upgrade(); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if d.Schema != CurrentSchemaVersion {
		t.Fatalf("schema after upgrade: %d", d.Schema)
	}
	if d.Protocols[0].Domain != DomainSecondary {
		t.Fatalf("untagged protocol domain: %s", d.Protocols[0].Domain)
	}
	if d.Whole.Kind != UnitWhole || d.Units[0].Kind != UnitSpine {
		t.Fatalf("kinds not filled: whole=%s unit=%s", d.Whole.Kind, d.Units[0].Kind)
	}
}

func TestUpgradeTreatsZeroSchemaAsV1(t *testing.T) {
	d := scanDataset(t, "scan", 2)
	d.Schema = 0
	if err := d.Upgrade(); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if d.Schema != CurrentSchemaVersion {
		t.Fatalf("schema: %d", d.Schema)
	}
}

func TestUpgradeRejectsNewerSchema(t *testing.T) {
	d := scanDataset(t, "scan", 2)
	d.Schema = CurrentSchemaVersion + 1
	var mismatch ErrTypeMismatch
	if err := d.Upgrade(); !errors.As(err, &mismatch) {
		t.Fatalf("expected rejection of newer schema, got %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	d := scanDataset(t, "scan", 3)
	addUnitWithLandmark(t, d, perFrameLandmark("sp1", KindPoint, 0, 2), "sp1")
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0, 1)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}

	raw, err := EncodeSnapshot(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != d.Name || got.FrameCount() != d.FrameCount() {
		t.Fatalf("round trip diverged: %q %d", got.Name, got.FrameCount())
	}
	if len(got.Protocols) != 1 || len(got.Landmarks) != 1 || len(got.Units) != 1 {
		t.Fatalf("collections lost: %d/%d/%d", len(got.Protocols), len(got.Landmarks), len(got.Units))
	}
	// The event index is rebuilt on decode.
	if got.EmbeddedEvents(DomainPrimary) == nil && len(d.EmbeddedEvents(DomainPrimary)) > 0 {
		t.Fatalf("event index missing after decode")
	}
}

func TestDecodeSnapshotRunsUpgradeChain(t *testing.T) {
	d := scanDataset(t, "scan", 2)
	if err := d.AddProtocol(Protocol{Name: "p1", Segments: NewFrameSet(0)}); err != nil {
		t.Fatalf("add protocol: %v", err)
	}
	raw, err := EncodeSnapshot(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Rewrite the snapshot as a v1 layout without domain tags.
	v1 := string(raw)
	v1 = replaceOnce(t, v1, `"schema":3`, `"schema":1`)
	v1 = replaceOnce(t, v1, `"domain":"secondary"`, `"domain":""`)

	got, err := DecodeSnapshot([]byte(v1))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Schema != CurrentSchemaVersion {
		t.Fatalf("schema not upgraded: %d", got.Schema)
	}
	if got.Protocols[0].Domain != DomainSecondary {
		t.Fatalf("domain not backfilled: %q", got.Protocols[0].Domain)
	}
}

func TestDecodeSnapshotRejectsInvalid(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func replaceOnce(t *testing.T, s, old, repl string) string {
	t.Helper()
	if !strings.Contains(s, old) {
		t.Fatalf("snapshot does not contain %q", old)
	}
	return strings.Replace(s, old, repl, 1)
}
