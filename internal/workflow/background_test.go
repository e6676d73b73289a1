package workflow

import (
	"context"
	"errors"
	"testing"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

func TestBackgroundRemoverFlow(t *testing.T) {
	cutout := domain.ImageFile{Data: "Q1VU", MimeType: "image/png"}
	var compositeReq genai.CompositeRequest
	gen := &fakeGenerator{
		removeBg: func(_ context.Context, img domain.ImageFile) (domain.ImageFile, error) {
			if img != imgSource {
				t.Fatalf("remove got %+v", img)
			}
			return cutout, nil
		},
		composite: func(_ context.Context, req genai.CompositeRequest) (domain.ImageFile, error) {
			compositeReq = req
			return imgResultX, nil
		},
	}
	b := NewBackgroundRemover(Deps{Generator: gen})
	if err := b.Composite(context.Background(), "beach"); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("composite before removal err = %v", err)
	}
	if err := b.SetImage(imgSource); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if err := b.Remove(context.Background()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if view := b.View(); view.Stage != StageEditing || view.Current.DataURL != cutout.DataURL() {
		t.Fatalf("after remove = %+v", view)
	}
	if err := b.Composite(context.Background(), "  "); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("err = %v, want missing input", err)
	}
	if err := b.Composite(context.Background(), "a sunny beach"); err != nil {
		t.Fatalf("Composite: %v", err)
	}
	if compositeReq.Subject != cutout || compositeReq.BackgroundPrompt != "a sunny beach" || compositeReq.Background != nil {
		t.Fatalf("composite request = %+v", compositeReq)
	}
	view := b.View()
	if view.Stage != StageResult || view.HistoryLen != 2 {
		t.Fatalf("after composite = %+v", view)
	}

	if err := b.SetInput(SlotBackground, imgFace); err != nil {
		t.Fatalf("background upload: %v", err)
	}
	if err := b.Composite(context.Background(), ""); err != nil {
		t.Fatalf("Composite with image: %v", err)
	}
	if compositeReq.Background == nil || *compositeReq.Background != imgFace {
		t.Fatalf("background image not sent: %+v", compositeReq)
	}
}

func TestBackgroundRemoverErrorReturnsToEditing(t *testing.T) {
	gen := &fakeGenerator{
		removeBg: func(context.Context, domain.ImageFile) (domain.ImageFile, error) { return imgResultX, nil },
		composite: func(context.Context, genai.CompositeRequest) (domain.ImageFile, error) {
			return domain.ImageFile{}, domain.NewError(domain.ErrBackend, "try later")
		},
	}
	b := NewBackgroundRemover(Deps{Generator: gen})
	_ = b.SetImage(imgSource)
	_ = b.Remove(context.Background())
	if err := b.Composite(context.Background(), "forest"); err == nil {
		t.Fatalf("expected failure")
	}
	if b.View().Stage != StageError {
		t.Fatalf("stage = %s", b.View().Stage)
	}
	if err := b.Dismiss(); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if b.View().Stage != StageEditing {
		t.Fatalf("stage = %s, want editing", b.View().Stage)
	}
}

func TestBackgroundRemoverErrorWithoutCutout(t *testing.T) {
	gen := &fakeGenerator{removeBg: func(context.Context, domain.ImageFile) (domain.ImageFile, error) {
		return domain.ImageFile{}, domain.NewError(domain.ErrBackend, "nope")
	}}
	b := NewBackgroundRemover(Deps{Generator: gen})
	_ = b.SetImage(imgSource)
	_ = b.Remove(context.Background())
	_ = b.Dismiss()
	if b.View().Stage != StageInput {
		t.Fatalf("stage = %s, want input", b.View().Stage)
	}
}
