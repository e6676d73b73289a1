package workflow

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"xstream/internal/domain"
	"xstream/internal/providers/genai"
)

var (
	imgSource  = domain.ImageFile{Data: "U09VUkNF", MimeType: "image/png"}
	imgFace    = domain.ImageFile{Data: "RkFDRQ==", MimeType: "image/png"}
	imgResultX = domain.ImageFile{Data: "WA==", MimeType: "image/png"}
	imgResultY = domain.ImageFile{Data: "WQ==", MimeType: "image/png"}
)

var errNotScripted = errors.New("not scripted")

// fakeGenerator answers each operation through an optional function field.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	generateImage func(context.Context, genai.ImageRequest) (domain.ImageFile, error)
	editImage     func(context.Context, genai.EditRequest) (domain.ImageFile, error)
	swapFace      func(context.Context, genai.FaceSwapRequest) (domain.ImageFile, error)
	swapClothing  func(context.Context, genai.ClothingSwapRequest) (domain.ImageFile, error)
	removeBg      func(context.Context, domain.ImageFile) (domain.ImageFile, error)
	composite     func(context.Context, genai.CompositeRequest) (domain.ImageFile, error)
	streamText    func(context.Context, genai.TextRequest) iter.Seq2[string, error]
	draft         func(context.Context, genai.DraftRequest) (string, error)
}

func (f *fakeGenerator) record(op string) {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()
}

func (f *fakeGenerator) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, req genai.ImageRequest) (domain.ImageFile, error) {
	f.record("generate_image")
	if f.generateImage == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.generateImage(ctx, req)
}

func (f *fakeGenerator) EditImage(ctx context.Context, req genai.EditRequest) (domain.ImageFile, error) {
	f.record("edit_image")
	if f.editImage == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.editImage(ctx, req)
}

func (f *fakeGenerator) SwapFace(ctx context.Context, req genai.FaceSwapRequest) (domain.ImageFile, error) {
	f.record("swap_face")
	if f.swapFace == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.swapFace(ctx, req)
}

func (f *fakeGenerator) SwapClothing(ctx context.Context, req genai.ClothingSwapRequest) (domain.ImageFile, error) {
	f.record("swap_clothing")
	if f.swapClothing == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.swapClothing(ctx, req)
}

func (f *fakeGenerator) RemoveBackground(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error) {
	f.record("remove_background")
	if f.removeBg == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.removeBg(ctx, img)
}

func (f *fakeGenerator) Composite(ctx context.Context, req genai.CompositeRequest) (domain.ImageFile, error) {
	f.record("composite")
	if f.composite == nil {
		return domain.ImageFile{}, errNotScripted
	}
	return f.composite(ctx, req)
}

func (f *fakeGenerator) StreamText(ctx context.Context, req genai.TextRequest) iter.Seq2[string, error] {
	if req.IsLyrics() {
		f.record("stream_lyrics")
	} else {
		f.record("stream_text")
	}
	if f.streamText == nil {
		return chunks("")
	}
	return f.streamText(ctx, req)
}

func (f *fakeGenerator) DraftPrompt(ctx context.Context, req genai.DraftRequest) (string, error) {
	f.record("draft")
	if f.draft == nil {
		return "", errNotScripted
	}
	return f.draft(ctx, req)
}

// chunks yields each piece in order.
func chunks(pieces ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range pieces {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func failing(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) { yield("", err) }
}

func returns(img domain.ImageFile) func(context.Context, genai.FaceSwapRequest) (domain.ImageFile, error) {
	return func(context.Context, genai.FaceSwapRequest) (domain.ImageFile, error) { return img, nil }
}

// fakeVideo scripts the long-running video operations.
type fakeVideo struct {
	polls    []domain.VideoJob
	download func(ref, credential string) (*genai.VideoDownload, error)

	mu        sync.Mutex
	pollIndex int
	keys      []string
}

func (v *fakeVideo) SubmitVideo(_ context.Context, req genai.VideoRequest) (domain.VideoJob, error) {
	v.mu.Lock()
	v.keys = append(v.keys, req.Credential)
	v.mu.Unlock()
	return domain.VideoJob{Name: "operations/anim", Status: domain.VideoJobPending}, nil
}

func (v *fakeVideo) PollVideo(_ context.Context, job domain.VideoJob, credential string) (domain.VideoJob, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys = append(v.keys, credential)
	if v.pollIndex >= len(v.polls) {
		return job, nil
	}
	next := v.polls[v.pollIndex]
	v.pollIndex++
	return next, nil
}

func (v *fakeVideo) DownloadVideo(_ context.Context, ref, credential string) (*genai.VideoDownload, error) {
	v.mu.Lock()
	v.keys = append(v.keys, credential)
	v.mu.Unlock()
	return v.download(ref, credential)
}

type instantClock struct{}

func (instantClock) Now() time.Time { return time.Unix(0, 0) }

func (instantClock) Sleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }
