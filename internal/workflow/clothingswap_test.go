package workflow

import (
	"context"
	"errors"
	"testing"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

var imgGarment = domain.ImageFile{Data: "R0FSTUVOVA==", MimeType: "image/jpeg"}

func TestClothingSwapGenerateAndRefine(t *testing.T) {
	gen := &fakeGenerator{
		swapClothing: func(_ context.Context, req genai.ClothingSwapRequest) (domain.ImageFile, error) {
			if req.Person != imgSource || req.Garment != imgGarment || req.Instruction != "tuck the shirt in" {
				t.Fatalf("unexpected request %+v", req)
			}
			return imgResultX, nil
		},
		editImage: func(_ context.Context, req genai.EditRequest) (domain.ImageFile, error) {
			if !req.Iterating || req.Primary != imgResultX || req.Instruction != "make it red" {
				t.Fatalf("unexpected refine request %+v", req)
			}
			return imgResultY, nil
		},
	}
	cs := NewClothingSwap(Deps{Generator: gen})

	if err := cs.Seed(imgSource); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := cs.Generate(context.Background(), "tuck the shirt in"); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("Generate without garment err = %v", err)
	}
	if err := cs.SetGarment(imgGarment); err != nil {
		t.Fatalf("SetGarment: %v", err)
	}
	if err := cs.Generate(context.Background(), "tuck the shirt in"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := cs.Refine(context.Background(), "make it red"); err != nil {
		t.Fatalf("Refine: %v", err)
	}

	view := cs.View()
	if view.HistoryLen != 2 || view.Current.DataURL != imgResultY.DataURL() {
		t.Fatalf("view = %+v", view)
	}
	if view.Compare == nil || view.Compare.Before != imgResultX.DataURL() {
		t.Fatalf("refined result should compare against the previous one: %+v", view.Compare)
	}
	if got := gen.Calls(); len(got) != 2 || got[0] != "swap_clothing" || got[1] != "edit_image" {
		t.Fatalf("calls = %v", got)
	}
}

func TestClothingSwapEmptyResultRecovers(t *testing.T) {
	gen := &fakeGenerator{
		swapClothing: func(context.Context, genai.ClothingSwapRequest) (domain.ImageFile, error) {
			return domain.ImageFile{}, domain.NewError(domain.ErrEmptyResult, "the model returned no image")
		},
	}
	cs := NewClothingSwap(Deps{Generator: gen})
	_ = cs.SetPerson(imgSource)
	_ = cs.SetGarment(imgGarment)

	err := cs.Generate(context.Background(), "")
	var failure *StageFailure
	if !errors.As(err, &failure) || !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("err = %v, want stage failure with empty result", err)
	}
	view := cs.View()
	if view.Stage != StageError || view.Error == nil || view.Error.Kind != "empty_result" || !view.Error.Retryable {
		t.Fatalf("view = %+v", view.Error)
	}
	if err := cs.Dismiss(); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if view := cs.View(); view.Stage != StageInput || view.Inputs[SlotGarment] != imgGarment.DataURL() {
		t.Fatalf("after dismiss = %+v", view)
	}
}
