package controls

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultCatalogHasEveryField(t *testing.T) {
	cat := DefaultCatalog()
	for _, field := range Fields {
		if len(cat[field]) == 0 {
			t.Fatalf("no options for %s", field)
		}
	}
	if got := cat.Default(FieldArtisticStyle); got != "Photorealistic" {
		t.Fatalf("default style = %q, want Photorealistic", got)
	}
	if got := cat.Default(FieldAspectRatio); got != "1:1" {
		t.Fatalf("default aspect = %q, want 1:1", got)
	}
}

func TestParseCatalogRejectsMissingField(t *testing.T) {
	_, err := ParseCatalog([]byte("genre: [None]\n"))
	if err == nil {
		t.Fatalf("expected error for incomplete catalog")
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	got, err := DefaultCatalog().Resolve(FieldGenre, "  rOcK ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "Rock" {
		t.Fatalf("Resolve = %q, want Rock", got)
	}
	if _, err := DefaultCatalog().Resolve(FieldGenre, "polka"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want invalid option", err)
	}
	if _, err := DefaultCatalog().Resolve(Field("palette"), "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("err = %v, want unknown field", err)
	}
}

func TestAspectRatioLockedWithSource(t *testing.T) {
	c := Defaults()
	if err := c.Set(FieldAspectRatio, "16:9", false); err != nil {
		t.Fatalf("Set without source: %v", err)
	}
	c.LockAspect()
	if c.AspectRatio != "1:1" {
		t.Fatalf("LockAspect = %q, want 1:1", c.AspectRatio)
	}
	if err := c.Set(FieldAspectRatio, "9:16", true); !errors.Is(err, ErrAspectLocked) {
		t.Fatalf("err = %v, want aspect locked", err)
	}
	if err := c.Set(FieldAspectRatio, "1:1", true); err != nil {
		t.Fatalf("setting the locked value again should succeed: %v", err)
	}
	if err := c.Set(FieldMood, "serene", true); err != nil {
		t.Fatalf("other controls stay editable: %v", err)
	}
	if err := c.Set(FieldAspectRatio, "9:16", false); err != nil {
		t.Fatalf("Set after source removed: %v", err)
	}
}

func TestHasGenreAndDescriptors(t *testing.T) {
	c := Defaults()
	if c.HasGenre() {
		t.Fatalf("default genre should not count as a selection")
	}
	_ = c.Set(FieldGenre, "Rock", false)
	_ = c.Set(FieldLighting, "Neon", false)
	if !c.HasGenre() {
		t.Fatalf("Rock should count as a selection")
	}
	joined := strings.Join(c.Descriptors(), "; ")
	if !strings.Contains(joined, "Artistic style: Photorealistic") || !strings.Contains(joined, "Lighting: Neon") {
		t.Fatalf("descriptors = %q", joined)
	}
	if strings.Contains(joined, "Mood") {
		t.Fatalf("default mood should be omitted: %q", joined)
	}
}
