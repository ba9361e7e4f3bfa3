package blob

import (
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv("SCANCORE_PAYLOAD_DRIVER", "memory")
	st, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if st.Driver() != DriverMemory {
		t.Fatalf("driver: %s", st.Driver())
	}

	t.Setenv("SCANCORE_PAYLOAD_DRIVER", "fs")
	t.Setenv("SCANCORE_PAYLOAD_FS_ROOT", t.TempDir())
	st, err = Open(ctx)
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if st.Driver() != DriverFilesystem {
		t.Fatalf("driver: %s", st.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SCANCORE_PAYLOAD_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("SCANCORE_PAYLOAD_DRIVER", "s3")
	t.Setenv("SCANCORE_PAYLOAD_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected missing bucket error")
	}
}
