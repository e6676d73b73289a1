package workflow

import (
	"context"
	"strings"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

// BackgroundRemover cuts the subject out of a photo and then composites it
// onto a new background. The cut-out is kept in history so it can be saved
// or returned to with undo.
type BackgroundRemover struct {
	*core
	gen genai.Generator

	image      *domain.ImageFile
	background *domain.ImageFile
	cutout     *domain.ImageFile
}

func NewBackgroundRemover(deps Deps) *BackgroundRemover {
	b := &BackgroundRemover{core: newCore(ToolBackgroundRemover, StageInput, StageResult, deps), gen: deps.Generator}
	b.recover = func() Stage {
		if b.cutout != nil {
			return StageEditing
		}
		return StageInput
	}
	return b
}

func (b *BackgroundRemover) SetImage(img domain.ImageFile) error { return b.SetInput(SlotImage, img) }

// SetInput takes the photo in the input stage. A background image may also
// be chosen while editing.
func (b *BackgroundRemover) SetInput(slot Slot, img domain.ImageFile) error {
	if err := requireImage(img, string(slot)+" image"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch slot {
	case SlotImage:
		if err := b.acceptInputLocked("upload"); err != nil {
			return err
		}
		b.image = imagePtr(img)
		b.original = b.image
	case SlotBackground:
		if err := b.acceptBackgroundLocked(); err != nil {
			return err
		}
		b.background = imagePtr(img)
	default:
		return unknownSlot(b.tool, slot)
	}
	return nil
}

func (b *BackgroundRemover) ClearInput(slot Slot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch slot {
	case SlotImage:
		if err := b.acceptInputLocked("clear"); err != nil {
			return err
		}
		b.image, b.original = nil, nil
	case SlotBackground:
		if err := b.acceptBackgroundLocked(); err != nil {
			return err
		}
		b.background = nil
	default:
		return unknownSlot(b.tool, slot)
	}
	return nil
}

func (b *BackgroundRemover) acceptBackgroundLocked() error {
	if err := b.checkIdleLocked(); err != nil {
		return err
	}
	if !b.inStageLocked(StageInput, StageEditing, StageResult) {
		return stageError("background upload", b.stage)
	}
	return nil
}

func (b *BackgroundRemover) Seed(img domain.ImageFile) error { return b.SetImage(img) }

// Remove cuts the subject out and moves to the editing stage.
func (b *BackgroundRemover) Remove(ctx context.Context) error {
	return b.runImageThen(ctx, "remove_background", StageEditing, func() (imageCall, error) {
		if b.stage != StageInput {
			return nil, stageError("remove background", b.stage)
		}
		if b.image == nil {
			return nil, domain.NewError(domain.ErrMissingInput, "upload an image first")
		}
		img := *b.image
		return func(ctx context.Context) (domain.ImageFile, error) {
			return b.gen.RemoveBackground(ctx, img)
		}, nil
	}, func(cut domain.ImageFile) {
		b.cutout = imagePtr(cut)
	})
}

// Composite places the cut-out onto the uploaded background image, or onto
// a described background when no image was uploaded.
func (b *BackgroundRemover) Composite(ctx context.Context, backgroundPrompt string) error {
	return b.runImage(ctx, "composite", StageResult, func() (imageCall, error) {
		if !b.inStageLocked(StageEditing, StageResult) {
			return nil, stageError("composite", b.stage)
		}
		if b.cutout == nil {
			return nil, domain.NewError(domain.ErrInvalidStage, "remove the background first")
		}
		req := genai.CompositeRequest{Subject: *b.cutout, BackgroundPrompt: strings.TrimSpace(backgroundPrompt)}
		if b.background != nil {
			bg := *b.background
			req.Background = &bg
		}
		if req.Background == nil && req.BackgroundPrompt == "" {
			return nil, domain.NewError(domain.ErrMissingInput, "upload a background image or describe one")
		}
		return func(ctx context.Context) (domain.ImageFile, error) {
			return b.gen.Composite(ctx, req)
		}, nil
	})
}

func (b *BackgroundRemover) Refine(ctx context.Context, instruction string) error {
	return b.refine(ctx, b.gen, instruction)
}

func (b *BackgroundRemover) StartOver() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	b.image, b.background, b.cutout = nil, nil, nil
}

func (b *BackgroundRemover) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.viewLocked()
	setSlot(&v, SlotImage, b.image)
	setSlot(&v, SlotBackground, b.background)
	return v
}

var (
	_ Workflow   = (*BackgroundRemover)(nil)
	_ Refiner    = (*BackgroundRemover)(nil)
	_ Filterable = (*BackgroundRemover)(nil)
)
