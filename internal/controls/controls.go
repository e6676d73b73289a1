// Package controls defines the creative controls offered by the assistant
// and the rules that govern changing them.
package controls

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var optionsYAML []byte

// Field names a single control.
type Field string

const (
	FieldArtisticStyle Field = "artistic_style"
	FieldGenre         Field = "genre"
	FieldLighting      Field = "lighting"
	FieldMood          Field = "mood"
	FieldCameraAngle   Field = "camera_angle"
	FieldAspectRatio   Field = "aspect_ratio"
)

// Fields lists every control in display order.
var Fields = []Field{FieldArtisticStyle, FieldGenre, FieldLighting, FieldMood, FieldCameraAngle, FieldAspectRatio}

var (
	ErrUnknownField  = errors.New("unknown control")
	ErrInvalidOption = errors.New("invalid option")
	// ErrAspectLocked is returned when the aspect ratio is changed while a
	// source image is attached; edits keep the source geometry.
	ErrAspectLocked = errors.New("aspect ratio is locked while a source image is attached")
)

// Catalog holds the allowed options per field. The first option is the default.
type Catalog map[Field][]string

var (
	catalogOnce sync.Once
	catalog     Catalog
	catalogErr  error
)

// DefaultCatalog returns the embedded option catalog.
func DefaultCatalog() Catalog {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(optionsYAML)
	})
	if catalogErr != nil {
		panic(fmt.Sprintf("controls: embedded catalog: %v", catalogErr))
	}
	return catalog
}

// ParseCatalog decodes a YAML catalog and checks every field is present.
func ParseCatalog(raw []byte) (Catalog, error) {
	var decoded map[string][]string
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("controls: decode catalog: %w", err)
	}
	out := Catalog{}
	for _, field := range Fields {
		options := decoded[string(field)]
		if len(options) == 0 {
			return nil, fmt.Errorf("controls: catalog has no options for %s", field)
		}
		out[field] = options
	}
	return out, nil
}

// Default returns the default option for field.
func (c Catalog) Default(field Field) string {
	return c[field][0]
}

// Resolve matches value case-insensitively against the options of field and
// returns the canonical spelling.
func (c Catalog) Resolve(field Field, value string) (string, error) {
	options, ok := c[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(value))
	for _, option := range options {
		if fold.String(option) == want {
			return option, nil
		}
	}
	return "", fmt.Errorf("%w: %q for %s", ErrInvalidOption, value, field)
}

// Controls is the set of creative choices applied to a generation.
type Controls struct {
	ArtisticStyle string `json:"artistic_style"`
	Genre         string `json:"genre"`
	Lighting      string `json:"lighting"`
	Mood          string `json:"mood"`
	CameraAngle   string `json:"camera_angle"`
	AspectRatio   string `json:"aspect_ratio"`
}

// Defaults returns controls set to each field's default option.
func Defaults() Controls {
	c := DefaultCatalog()
	return Controls{
		ArtisticStyle: c.Default(FieldArtisticStyle),
		Genre:         c.Default(FieldGenre),
		Lighting:      c.Default(FieldLighting),
		Mood:          c.Default(FieldMood),
		CameraAngle:   c.Default(FieldCameraAngle),
		AspectRatio:   c.Default(FieldAspectRatio),
	}
}

// Set changes one control. When sourcePresent is true the aspect ratio
// cannot change.
func (c *Controls) Set(field Field, value string, sourcePresent bool) error {
	resolved, err := DefaultCatalog().Resolve(field, value)
	if err != nil {
		return err
	}
	switch field {
	case FieldArtisticStyle:
		c.ArtisticStyle = resolved
	case FieldGenre:
		c.Genre = resolved
	case FieldLighting:
		c.Lighting = resolved
	case FieldMood:
		c.Mood = resolved
	case FieldCameraAngle:
		c.CameraAngle = resolved
	case FieldAspectRatio:
		if sourcePresent && resolved != c.AspectRatio {
			return ErrAspectLocked
		}
		c.AspectRatio = resolved
	}
	return nil
}

// LockAspect forces the default aspect ratio, used when a source image is attached.
func (c *Controls) LockAspect() {
	c.AspectRatio = DefaultCatalog().Default(FieldAspectRatio)
}

// HasGenre reports whether a non-default genre is selected.
func (c Controls) HasGenre() bool {
	return c.Genre != "" && c.Genre != DefaultCatalog().Default(FieldGenre)
}

// Descriptors renders the non-default visual choices as prompt fragments.
func (c Controls) Descriptors() []string {
	cat := DefaultCatalog()
	var out []string
	add := func(field Field, value, label string) {
		if value == "" || (field != FieldArtisticStyle && value == cat.Default(field)) {
			return
		}
		out = append(out, label+": "+value)
	}
	add(FieldArtisticStyle, c.ArtisticStyle, "Artistic style")
	add(FieldLighting, c.Lighting, "Lighting")
	add(FieldMood, c.Mood, "Mood")
	add(FieldCameraAngle, c.CameraAngle, "Camera angle")
	return out
}
