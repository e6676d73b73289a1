package workflow

import (
	"context"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

// FaceSwap puts the face from one photo onto the person in another.
type FaceSwap struct {
	*core
	gen genai.Generator

	source *domain.ImageFile
	face   *domain.ImageFile
}

func NewFaceSwap(deps Deps) *FaceSwap {
	return &FaceSwap{core: newCore(ToolFaceSwap, StageInput, StageResult, deps), gen: deps.Generator}
}

func (f *FaceSwap) SetSource(img domain.ImageFile) error { return f.SetInput(SlotSource, img) }

func (f *FaceSwap) SetFace(img domain.ImageFile) error { return f.SetInput(SlotFace, img) }

func (f *FaceSwap) SetInput(slot Slot, img domain.ImageFile) error {
	if err := requireImage(img, string(slot)+" image"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.acceptInputLocked("upload"); err != nil {
		return err
	}
	switch slot {
	case SlotSource:
		f.source = imagePtr(img)
		f.original = f.source
	case SlotFace:
		f.face = imagePtr(img)
	default:
		return unknownSlot(f.tool, slot)
	}
	return nil
}

func (f *FaceSwap) ClearInput(slot Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.acceptInputLocked("clear"); err != nil {
		return err
	}
	switch slot {
	case SlotSource:
		f.source, f.original = nil, nil
	case SlotFace:
		f.face = nil
	default:
		return unknownSlot(f.tool, slot)
	}
	return nil
}

func (f *FaceSwap) Seed(img domain.ImageFile) error { return f.SetSource(img) }

// Generate swaps the face. Both images must be present.
func (f *FaceSwap) Generate(ctx context.Context) error {
	return f.runImage(ctx, "face_swap", StageResult, func() (imageCall, error) {
		if f.stage != StageInput {
			return nil, stageError("generate", f.stage)
		}
		if f.source == nil || f.face == nil {
			return nil, domain.NewError(domain.ErrMissingInput, "upload both a source image and a face image")
		}
		req := genai.FaceSwapRequest{Source: *f.source, Face: *f.face}
		return func(ctx context.Context) (domain.ImageFile, error) {
			return f.gen.SwapFace(ctx, req)
		}, nil
	})
}

func (f *FaceSwap) Refine(ctx context.Context, instruction string) error {
	return f.refine(ctx, f.gen, instruction)
}

func (f *FaceSwap) StartOver() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.source, f.face = nil, nil
}

func (f *FaceSwap) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.viewLocked()
	setSlot(&v, SlotSource, f.source)
	setSlot(&v, SlotFace, f.face)
	return v
}

var (
	_ Workflow   = (*FaceSwap)(nil)
	_ Refiner    = (*FaceSwap)(nil)
	_ Filterable = (*FaceSwap)(nil)
)
