package genai

import (
	"context"
	"iter"
	"strings"
	"sync"

	"xstream/internal/domain"
	"xstream/internal/infra"
)

// KeySource supplies the ambient credential when it is not configured
// through the environment.
type KeySource interface {
	GeminiAPIKey(ctx context.Context) (string, error)
}

// Factory builds the shared client on first use. A missing credential is
// reported as domain.ErrConfiguration on each call and construction is
// retried on the next call, so a key stored later is picked up without a
// restart.
type Factory struct {
	opts   Options
	keys   KeySource
	logger *infra.Logger

	mu     sync.Mutex
	client *Client
}

// NewFactory returns a lazy factory. keys may be nil.
func NewFactory(opts Options, keys KeySource) *Factory {
	return &Factory{opts: opts, keys: keys, logger: infra.LoggerOrDiscard(opts.Logger)}
}

// Client returns the shared client, constructing it when needed.
func (f *Factory) Client(ctx context.Context) (*Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.client != nil {
		return f.client, nil
	}

	opts := f.opts
	if strings.TrimSpace(opts.APIKey) == "" && f.keys != nil {
		key, err := f.keys.GeminiAPIKey(ctx)
		if err != nil {
			f.logger.Warn().Err(err).Msg("load stored gemini key")
		}
		opts.APIKey = key
	}

	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	f.logger.Info().
		Str("image_model", client.imageModel).
		Str("edit_model", client.editModel).
		Str("text_model", client.textModel).
		Str("video_model", client.videoModel).
		Msg("gemini client ready")
	f.client = client
	return client, nil
}

func (f *Factory) GenerateImage(ctx context.Context, req ImageRequest) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.GenerateImage(ctx, req)
}

func (f *Factory) EditImage(ctx context.Context, req EditRequest) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.EditImage(ctx, req)
}

func (f *Factory) SwapFace(ctx context.Context, req FaceSwapRequest) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.SwapFace(ctx, req)
}

func (f *Factory) SwapClothing(ctx context.Context, req ClothingSwapRequest) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.SwapClothing(ctx, req)
}

func (f *Factory) RemoveBackground(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.RemoveBackground(ctx, img)
}

func (f *Factory) Composite(ctx context.Context, req CompositeRequest) (domain.ImageFile, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.ImageFile{}, err
	}
	return c.Composite(ctx, req)
}

func (f *Factory) StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error] {
	c, err := f.Client(ctx)
	if err != nil {
		return func(yield func(string, error) bool) { yield("", err) }
	}
	return c.StreamText(ctx, req)
}

func (f *Factory) DraftPrompt(ctx context.Context, req DraftRequest) (string, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return "", err
	}
	return c.DraftPrompt(ctx, req)
}

func (f *Factory) SubmitVideo(ctx context.Context, req VideoRequest) (domain.VideoJob, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.VideoJob{}, err
	}
	return c.SubmitVideo(ctx, req)
}

func (f *Factory) PollVideo(ctx context.Context, job domain.VideoJob, credential string) (domain.VideoJob, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return domain.VideoJob{}, err
	}
	return c.PollVideo(ctx, job, credential)
}

func (f *Factory) DownloadVideo(ctx context.Context, ref, credential string) (*VideoDownload, error) {
	c, err := f.Client(ctx)
	if err != nil {
		return nil, err
	}
	return c.DownloadVideo(ctx, ref, credential)
}

var (
	_ Generator    = (*Client)(nil)
	_ VideoBackend = (*Client)(nil)
	_ Generator    = (*Factory)(nil)
	_ VideoBackend = (*Factory)(nil)
)
