package workflow

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"xstream/internal/controls"
	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

const maxAssets = 4

// CreativeAssistant turns an idea into an image plus a written answer and,
// optionally, song lyrics. Stages run Prompt, Content, Iterate.
type CreativeAssistant struct {
	*core
	gen    genai.Generator
	locale string

	idea           string
	source         *domain.ImageFile
	assets         []domain.ImageFile
	controls       controls.Controls
	generateLyrics bool
	text           string
	lyrics         string
}

func NewCreativeAssistant(deps Deps, locale string) *CreativeAssistant {
	a := &CreativeAssistant{
		core:     newCore(ToolCreativeAssistant, StagePrompt, StageIterate, deps),
		gen:      deps.Generator,
		locale:   locale,
		controls: controls.Defaults(),
	}
	return a
}

func (a *CreativeAssistant) SetIdea(idea string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("edit idea"); err != nil {
		return err
	}
	a.idea = idea
	return nil
}

func (a *CreativeAssistant) SetGenerateLyrics(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("lyrics toggle"); err != nil {
		return err
	}
	a.generateLyrics = on
	return nil
}

// SetControl changes one creative control. The aspect ratio is fixed while
// a source image is attached.
func (a *CreativeAssistant) SetControl(field controls.Field, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("controls"); err != nil {
		return err
	}
	return a.controls.Set(field, value, a.source != nil)
}

// SetSource attaches an image to edit instead of generating from scratch.
// The aspect ratio locks to the default.
func (a *CreativeAssistant) SetSource(img domain.ImageFile) error { return a.SetInput(SlotSource, img) }

// ClearSource detaches the source image and unlocks the aspect ratio.
// Artifacts already produced are untouched.
func (a *CreativeAssistant) ClearSource() error { return a.ClearInput(SlotSource) }

// AddAsset adds a reference image sent with fresh generations only.
func (a *CreativeAssistant) AddAsset(img domain.ImageFile) error { return a.SetInput(SlotAsset, img) }

func (a *CreativeAssistant) RemoveAsset(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("remove asset"); err != nil {
		return err
	}
	if index < 0 || index >= len(a.assets) {
		return domain.NewError(domain.ErrNotFound, "asset %d does not exist", index)
	}
	a.assets = append(a.assets[:index:index], a.assets[index+1:]...)
	return nil
}

func (a *CreativeAssistant) SetInput(slot Slot, img domain.ImageFile) error {
	if err := requireImage(img, string(slot)+" image"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("upload"); err != nil {
		return err
	}
	switch slot {
	case SlotSource:
		a.source = imagePtr(img)
		a.original = a.source
		a.controls.LockAspect()
	case SlotAsset:
		if len(a.assets) >= maxAssets {
			return domain.NewError(domain.ErrInvalidStage, "at most %d asset images can be attached", maxAssets)
		}
		a.assets = append(a.assets, img)
	default:
		return unknownSlot(a.tool, slot)
	}
	return nil
}

func (a *CreativeAssistant) ClearInput(slot Slot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("clear"); err != nil {
		return err
	}
	switch slot {
	case SlotSource:
		a.source, a.original = nil, nil
	case SlotAsset:
		a.assets = nil
	default:
		return unknownSlot(a.tool, slot)
	}
	return nil
}

func (a *CreativeAssistant) Seed(img domain.ImageFile) error { return a.SetSource(img) }

// Draft rewrites the idea into a detailed image prompt.
func (a *CreativeAssistant) Draft(ctx context.Context) error {
	a.mu.Lock()
	if err := a.acceptInputLocked("draft"); err != nil {
		a.mu.Unlock()
		return err
	}
	if strings.TrimSpace(a.idea) == "" {
		a.mu.Unlock()
		return domain.NewError(domain.ErrMissingInput, "write an idea first")
	}
	req := genai.DraftRequest{Idea: a.idea, Controls: a.controls, Locale: a.locale}
	epoch := a.beginLocked("draft", StagePrompt)
	a.mu.Unlock()

	drafted, err := a.gen.DraftPrompt(ctx, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.abandonedLocked("draft", epoch) {
		return errAbandoned("draft")
	}
	if err != nil {
		return a.failLocked("draft", err)
	}
	a.loading = false
	a.idea = drafted
	a.stage = StagePrompt
	return nil
}

// Generate produces the image, then the answer text and lyrics in
// parallel. The session reaches Iterate only after every task finished; any
// failure aborts the stage, discards streamed text and adds nothing to history.
func (a *CreativeAssistant) Generate(ctx context.Context) error {
	a.mu.Lock()
	if err := a.acceptInputLocked("generate"); err != nil {
		a.mu.Unlock()
		return err
	}
	idea := strings.TrimSpace(a.idea)
	if idea == "" {
		a.mu.Unlock()
		return domain.NewError(domain.ErrMissingInput, "write an idea first")
	}
	settings := a.controls
	source := a.source
	assets := append([]domain.ImageFile(nil), a.assets...)
	wantLyrics := a.generateLyrics && settings.HasGenre()
	a.text, a.lyrics = "", ""
	epoch := a.beginLocked("generate", StageContent)
	a.mu.Unlock()

	img, err := a.generateImage(ctx, idea, settings, source, assets)
	if err == nil {
		err = a.generateText(ctx, epoch, idea, settings, img, wantLyrics)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.abandonedLocked("generate", epoch) {
		return errAbandoned("generate")
	}
	if err != nil {
		a.text, a.lyrics = "", ""
		return a.failLocked("generate", err)
	}
	a.succeedLocked("generate", domain.NewImageArtifact(img), StageIterate)
	return nil
}

func (a *CreativeAssistant) generateImage(ctx context.Context, idea string, settings controls.Controls, source *domain.ImageFile, assets []domain.ImageFile) (domain.ImageFile, error) {
	prompt := genai.ImagePrompt(idea, settings)
	switch {
	case source != nil:
		return a.gen.EditImage(ctx, genai.EditRequest{Instruction: prompt, Primary: *source, Assets: assets})
	case len(assets) > 0:
		return a.gen.EditImage(ctx, genai.EditRequest{Instruction: prompt, Primary: assets[0], Assets: assets[1:]})
	default:
		return a.gen.GenerateImage(ctx, genai.ImageRequest{Prompt: idea, Controls: settings})
	}
}

// generateText runs the answer stream and, when wanted, the lyrics stream
// concurrently and waits for both.
func (a *CreativeAssistant) generateText(ctx context.Context, epoch int, idea string, settings controls.Controls, img domain.ImageFile, wantLyrics bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.stream(gctx, epoch, genai.AssistantTextRequest(idea, &img, a.locale), &a.text)
	})
	if wantLyrics {
		g.Go(func() error {
			return a.stream(gctx, epoch, genai.LyricsTextRequest(idea, settings, a.locale), &a.lyrics)
		})
	}
	return g.Wait()
}

// stream appends chunks to dst in arrival order.
func (a *CreativeAssistant) stream(ctx context.Context, epoch int, req genai.TextRequest, dst *string) error {
	for chunk, err := range a.gen.StreamText(ctx, req) {
		if err != nil {
			return err
		}
		a.mu.Lock()
		if a.epoch == epoch {
			*dst += chunk
		}
		a.mu.Unlock()
	}
	return nil
}

func (a *CreativeAssistant) Refine(ctx context.Context, instruction string) error {
	return a.refine(ctx, a.gen, instruction)
}

func (a *CreativeAssistant) StartOver() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.idea = ""
	a.source = nil
	a.assets = nil
	a.controls = controls.Defaults()
	a.generateLyrics = false
	a.text, a.lyrics = "", ""
}

func (a *CreativeAssistant) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.viewLocked()
	setSlot(&v, SlotSource, a.source)
	for _, asset := range a.assets {
		v.Assets = append(v.Assets, asset.DataURL())
	}
	settings := a.controls
	v.Controls = &settings
	v.AspectLocked = a.source != nil
	v.Idea = a.idea
	v.GenerateLyrics = a.generateLyrics
	v.Text = a.text
	v.Lyrics = a.lyrics
	return v
}

var (
	_ Workflow   = (*CreativeAssistant)(nil)
	_ Refiner    = (*CreativeAssistant)(nil)
	_ Filterable = (*CreativeAssistant)(nil)
)
