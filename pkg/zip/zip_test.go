package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "a.png", MIME: "image/png", Data: []byte("one")},
		{Filename: "a.png", MIME: "image/png", Data: []byte("two")},
		{Filename: "../prompt.txt", MIME: "text/plain", Data: []byte("a red fox")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	want := map[string]string{"a.png": "one", "a-2.png": "two", "prompt.txt": "a red fox"}
	if len(zr.File) != len(want) {
		t.Fatalf("got %d files, want %d", len(zr.File), len(want))
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, _ := io.ReadAll(rc)
		_ = rc.Close()
		if want[f.Name] != string(body) {
			t.Fatalf("%s = %q, want %q", f.Name, body, want[f.Name])
		}
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	data, err := ArchiveAssets(nil)
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil || len(zr.File) != 0 {
		t.Fatalf("empty archive: %v files, err %v", len(zr.File), err)
	}
}
