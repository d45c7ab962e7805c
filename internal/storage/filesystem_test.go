package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "fluxora-1-1.png", want: "fluxora-1-1.png"},
		{in: "/abs/a.png", want: "abs/a.png"},
		{in: `sub\dir\a.png`, want: "sub/dir/a.png"},
		{in: "./a/../b.png", want: "b.png"},
		{in: "../escape.png", wantErr: true},
		{in: "..", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestFileStoreWrite(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "downloads"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, err := store.Write(context.Background(), "fluxora-1-1.png", []byte("png"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "png" {
		t.Fatalf("read back %q, %v", data, err)
	}
	if _, err := store.Write(context.Background(), "fluxora-1-1.png", []byte("again")); err == nil {
		t.Fatal("expected existing file to be preserved")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "other.png", nil); err == nil {
		t.Fatal("expected canceled context to fail")
	}
}

func TestNilStore(t *testing.T) {
	var s *FileStore
	if s.BasePath() != "" {
		t.Fatal("nil store has no base path")
	}
	if _, err := s.Write(context.Background(), "a", nil); err == nil {
		t.Fatal("expected error from nil store")
	}
	if _, err := NewFileStore(" "); err == nil {
		t.Fatal("expected error for empty base path")
	}
}
