package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xstream/internal/controls"
	"xstream/internal/domain"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	if err := os.WriteFile(png, pngHeader, 0o644); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := readImage(png)
	if err != nil {
		t.Fatalf("readImage(png): %v", err)
	}
	if img.MimeType != "image/png" {
		t.Fatalf("mime = %q", img.MimeType)
	}
	if _, err := readImage(txt); !errors.Is(err, domain.ErrLocalIO) {
		t.Fatalf("readImage(txt) err = %v, want local io", err)
	}
	if _, err := readImage(filepath.Join(dir, "missing.png")); !errors.Is(err, domain.ErrLocalIO) {
		t.Fatalf("readImage(missing) err = %v, want local io", err)
	}
}

func TestPrintCatalog(t *testing.T) {
	var buf bytes.Buffer
	if err := printCatalog(&buf, controls.DefaultCatalog()); err != nil {
		t.Fatalf("printCatalog: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(controls.Fields) {
		t.Fatalf("lines = %d, want %d", len(lines), len(controls.Fields))
	}
	if !strings.HasPrefix(lines[len(lines)-1], "aspect-ratio (default 1:1)") {
		t.Fatalf("last line = %q", lines[len(lines)-1])
	}
}
