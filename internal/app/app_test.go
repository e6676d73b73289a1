package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"xstream/internal/domain"
	"xstream/internal/infra"
	"xstream/internal/infra/credentials"
	"xstream/internal/providers/genai"
	"xstream/internal/storage"
	"xstream/internal/workflow"
)

func TestNewWithoutOptionalServices(t *testing.T) {
	cfg := &infra.Config{VideoKeySelection: true}
	s, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, ok := s.Tokens.(*credentials.MemoryStore); !ok {
		t.Fatalf("tokens = %T, want memory store", s.Tokens)
	}
	if _, ok := s.Blobs.(*storage.MemoryStore); !ok {
		t.Fatalf("blobs = %T, want memory store", s.Blobs)
	}
	if s.Keys == nil {
		t.Fatal("video key selection should be enabled")
	}
	if s.CountryLookup() != nil {
		t.Fatal("country lookup should be disabled without a GeoIP database")
	}

	_, err = s.Generator.GenerateImage(context.Background(), genai.ImageRequest{Prompt: "a cat"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("GenerateImage err = %v, want configuration error", err)
	}

	w, err := s.Registry.Create(context.Background(), workflow.ToolCharacterAnimator, "en")
	if err != nil {
		t.Fatalf("Create animator: %v", err)
	}
	if w.View().Stage != workflow.StageNeedsCredential {
		t.Fatalf("animator stage = %s, want needs credential", w.View().Stage)
	}
}

func TestNewWithFileBlobs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	cfg := &infra.Config{BlobStoragePath: dir}
	s, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	if _, ok := s.Blobs.(*storage.FileStore); !ok {
		t.Fatalf("blobs = %T, want file store", s.Blobs)
	}
	if s.Keys != nil {
		t.Fatal("key selection should be off")
	}
}
