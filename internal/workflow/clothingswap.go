package workflow

import (
	"context"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

// ClothingSwap dresses a person in a garment taken from another photo.
type ClothingSwap struct {
	*core
	gen genai.Generator

	person  *domain.ImageFile
	garment *domain.ImageFile
}

func NewClothingSwap(deps Deps) *ClothingSwap {
	return &ClothingSwap{core: newCore(ToolClothingSwap, StageInput, StageResult, deps), gen: deps.Generator}
}

func (c *ClothingSwap) SetPerson(img domain.ImageFile) error { return c.SetInput(SlotPerson, img) }

func (c *ClothingSwap) SetGarment(img domain.ImageFile) error { return c.SetInput(SlotGarment, img) }

func (c *ClothingSwap) SetInput(slot Slot, img domain.ImageFile) error {
	if err := requireImage(img, string(slot)+" image"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptInputLocked("upload"); err != nil {
		return err
	}
	switch slot {
	case SlotPerson:
		c.person = imagePtr(img)
		c.original = c.person
	case SlotGarment:
		c.garment = imagePtr(img)
	default:
		return unknownSlot(c.tool, slot)
	}
	return nil
}

func (c *ClothingSwap) ClearInput(slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptInputLocked("clear"); err != nil {
		return err
	}
	switch slot {
	case SlotPerson:
		c.person, c.original = nil, nil
	case SlotGarment:
		c.garment = nil
	default:
		return unknownSlot(c.tool, slot)
	}
	return nil
}

func (c *ClothingSwap) Seed(img domain.ImageFile) error { return c.SetPerson(img) }

// Generate performs the swap. instruction is optional extra guidance.
func (c *ClothingSwap) Generate(ctx context.Context, instruction string) error {
	return c.runImage(ctx, "clothing_swap", StageResult, func() (imageCall, error) {
		if c.stage != StageInput {
			return nil, stageError("generate", c.stage)
		}
		if c.person == nil || c.garment == nil {
			return nil, domain.NewError(domain.ErrMissingInput, "upload both a person image and a garment image")
		}
		req := genai.ClothingSwapRequest{Person: *c.person, Garment: *c.garment, Instruction: instruction}
		return func(ctx context.Context) (domain.ImageFile, error) {
			return c.gen.SwapClothing(ctx, req)
		}, nil
	})
}

func (c *ClothingSwap) Refine(ctx context.Context, instruction string) error {
	return c.refine(ctx, c.gen, instruction)
}

func (c *ClothingSwap) StartOver() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.person, c.garment = nil, nil
}

func (c *ClothingSwap) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.viewLocked()
	setSlot(&v, SlotPerson, c.person)
	setSlot(&v, SlotGarment, c.garment)
	return v
}

var (
	_ Workflow   = (*ClothingSwap)(nil)
	_ Refiner    = (*ClothingSwap)(nil)
	_ Filterable = (*ClothingSwap)(nil)
)
