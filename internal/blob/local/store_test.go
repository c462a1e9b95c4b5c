package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveWithKeyRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	payload := []byte("%PDF-1.4 not really")
	key := "cases/case-1/doc-1/payslip.pdf"

	written, err := store.SaveWithKey(ctx, key, "application/pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if written != int64(len(payload)) {
		t.Fatalf("written = %d, want %d", written, len(payload))
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestOpenMissingKeyFails(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "cases/none/doc/none.pdf"); err == nil {
		t.Fatal("expected error for missing key")
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	for _, key := range []string{"../outside.txt", "/abs/path.txt", "cases/../../x"} {
		if _, err := store.SaveWithKey(ctx, key, "", strings.NewReader("x")); err == nil {
			t.Errorf("SaveWithKey(%q): expected error", key)
		}
		if _, err := store.Open(ctx, key); err == nil {
			t.Errorf("Open(%q): expected error", key)
		}
	}
}

func TestResetClearsStore(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	if _, err := store.SaveWithKey(ctx, "cases/c/d/f.bin", "", strings.NewReader("data")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := store.Open(ctx, "cases/c/d/f.bin"); err == nil {
		t.Fatal("expected blob to be gone after reset")
	}
}
