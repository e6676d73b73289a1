package zip

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func TestArchiveAssetsKeepsOrderAndContent(t *testing.T) {
	data, err := ArchiveAssets([]Asset{
		{Filename: "a.png", MIME: "image/png", Data: []byte("first")},
		{Filename: "b.mp4", MIME: "video/mp4", Data: []byte("second")},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("files = %d, want 2", len(zr.File))
	}
	if zr.File[0].Name != "a.png" || zr.File[1].Name != "b.mp4" {
		t.Fatalf("unexpected order: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
	if zr.File[1].Comment != "video/mp4" {
		t.Fatalf("comment = %q, want video/mp4", zr.File[1].Comment)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "second" {
		t.Fatalf("body = %q, want second", body)
	}
}
