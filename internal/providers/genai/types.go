package genai

import (
	"context"
	"iter"

	"xstream/internal/controls"
	"xstream/internal/domain"
)

// Generator is the request/response surface the workflows use. Every
// operation fails with domain.ErrConfiguration when no credential is
// configured, domain.ErrEmptyResult when the backend answers without a usable
// artifact, and domain.ErrBackend otherwise. Nothing is retried here.
type Generator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (domain.ImageFile, error)
	EditImage(ctx context.Context, req EditRequest) (domain.ImageFile, error)
	SwapFace(ctx context.Context, req FaceSwapRequest) (domain.ImageFile, error)
	SwapClothing(ctx context.Context, req ClothingSwapRequest) (domain.ImageFile, error)
	RemoveBackground(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error)
	Composite(ctx context.Context, req CompositeRequest) (domain.ImageFile, error)
	StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error]
	DraftPrompt(ctx context.Context, req DraftRequest) (string, error)
}

// VideoBackend exposes the raw long-running video operations. Credential
// arguments override the ambient key when non-empty.
type VideoBackend interface {
	SubmitVideo(ctx context.Context, req VideoRequest) (domain.VideoJob, error)
	PollVideo(ctx context.Context, job domain.VideoJob, credential string) (domain.VideoJob, error)
	DownloadVideo(ctx context.Context, ref, credential string) (*VideoDownload, error)
}

// ImageRequest describes a fresh text-to-image generation.
type ImageRequest struct {
	Prompt   string
	Controls controls.Controls
}

// EditRequest describes an instruction applied to one primary image with
// optional auxiliary and asset images. When Iterating is set the primary
// image is a prior result and Assets are not sent.
type EditRequest struct {
	Instruction string
	Primary     domain.ImageFile
	Auxiliary   []domain.ImageFile
	Assets      []domain.ImageFile
	Iterating   bool
}

// FaceSwapRequest places the face from Face onto the person in Source.
type FaceSwapRequest struct {
	Source domain.ImageFile
	Face   domain.ImageFile
}

// ClothingSwapRequest dresses the person in Person with Garment.
type ClothingSwapRequest struct {
	Person      domain.ImageFile
	Garment     domain.ImageFile
	Instruction string
}

// CompositeRequest places a cut-out subject onto a new background, given
// either as an image or as a description.
type CompositeRequest struct {
	Subject          domain.ImageFile
	Background       *domain.ImageFile
	BackgroundPrompt string
}

// TextRequest asks for a streamed text answer.
type TextRequest struct {
	System string
	Prompt string
	Image  *domain.ImageFile
}

// DraftRequest turns a rough idea into a detailed image prompt.
type DraftRequest struct {
	Idea     string
	Controls controls.Controls
	Locale   string
}

// VideoRequest starts an image-to-video generation.
type VideoRequest struct {
	Image      domain.ImageFile
	Motion     string
	Credential string
}

// VideoDownload is the materialised payload of a finished video job.
type VideoDownload struct {
	Data     []byte
	MimeType string
}
