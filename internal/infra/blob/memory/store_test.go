package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"scancore/internal/blob/core"
)

func TestStoreBasic(t *testing.T) {
	st := New()
	ctx := context.Background()
	info, err := st.Put(ctx, "scans/scan-1.bin", bytes.NewReader([]byte("data")), core.PutOptions{ContentType: "application/octet-stream", Metadata: map[string]string{"dataset": "scan-1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "scans/scan-1.bin" || info.Size != 4 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := st.Put(ctx, "scans/scan-1.bin", bytes.NewReader([]byte("x")), core.PutOptions{}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	h, err := st.Head(ctx, "scans/scan-1.bin")
	if err != nil || h.Metadata["dataset"] != "scan-1" {
		t.Fatalf("head: %#v %v", h, err)
	}
	g, rc, err := st.Get(ctx, "scans/scan-1.bin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != "data" || g.Size != 4 {
		t.Fatalf("bad payload: %q %#v", b, g)
	}
	list, err := st.List(ctx, "scans/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if list2, err := st.List(ctx, "zzz"); err != nil || len(list2) != 0 {
		t.Fatalf("expected empty list for unmatched prefix")
	}
	ok, err := st.Delete(ctx, "scans/scan-1.bin")
	if err != nil || !ok {
		t.Fatalf("delete expected true")
	}
	if ok, _ = st.Delete(ctx, "scans/scan-1.bin"); ok {
		t.Fatalf("second delete should be false")
	}
	if _, _, err := st.Get(ctx, "scans/scan-1.bin"); err == nil {
		t.Fatalf("expected get after delete to fail")
	}
}
