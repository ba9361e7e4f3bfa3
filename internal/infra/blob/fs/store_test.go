package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scancore/internal/blob/core"
)

// TestStoreCRUD exercises Put/Get/Head/Delete/List and key sanitization.
func TestStoreCRUD(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	for _, bad := range []string{"", "../escape", "/abs", "..", "a/../../b"} {
		if _, _, e := st.pathFor(bad); e == nil {
			t.Fatalf("expected sanitize error for %q", bad)
		}
	}
	ctx := context.Background()
	info, err := st.Put(ctx, "scans/scan-1.bin", strings.NewReader("payload"), core.PutOptions{ContentType: "application/octet-stream", Metadata: map[string]string{"dataset": "scan-1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "scans/scan-1.bin" || info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info: %+v", info)
	}
	if _, err := st.Put(ctx, "scans/scan-1.bin", strings.NewReader("dup"), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate put error")
	}
	head, err := st.Head(ctx, "scans/scan-1.bin")
	if err != nil || head.ETag != info.ETag || head.Metadata["dataset"] != "scan-1" {
		t.Fatalf("head: %+v %v", head, err)
	}
	gInfo, rc, err := st.Get(ctx, "scans/scan-1.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "payload" || gInfo.ETag != head.ETag {
		t.Fatalf("unexpected get result: %q %+v", b, gInfo)
	}
	list, err := st.List(ctx, "scans/")
	if err != nil || len(list) != 1 || list[0].Key != "scans/scan-1.bin" {
		t.Fatalf("list: %v %v", list, err)
	}
	if empty, err := st.List(ctx, "other/"); err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list for unmatched prefix")
	}
	ok, err := st.Delete(ctx, "scans/scan-1.bin")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if _, _, err := st.Get(ctx, "scans/scan-1.bin"); err == nil {
		t.Fatalf("expected get after delete to fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "scans", "scan-1.bin.meta")); err == nil {
		t.Fatalf("expected meta sidecar removed")
	}
	ok, err = st.Delete(ctx, "scans/scan-1.bin")
	if err != nil || ok {
		t.Fatalf("second delete should report missing")
	}
}

func TestStorePresignURL(t *testing.T) {
	st, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	url, err := st.PresignURL(context.Background(), "scans/scan-1.bin", core.SignedURLOptions{Method: "GET"})
	if err != nil || !strings.Contains(url, "scans/scan-1.bin") {
		t.Fatalf("presign: %q %v", url, err)
	}
	if _, err := st.PresignURL(context.Background(), "scans/scan-1.bin", core.SignedURLOptions{Method: "PUT"}); err != core.ErrUnsupported {
		t.Fatalf("expected unsupported method error, got %v", err)
	}
}

func TestStoreDefaultsRoot(t *testing.T) {
	t.Chdir(t.TempDir())
	st, err := New("")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if st.root != "./payloaddata" {
		t.Fatalf("default root: %q", st.root)
	}
}
