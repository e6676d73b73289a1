package genai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"xstream/internal/domain"
)

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage renders a fresh image from text and the creative controls.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (domain.ImageFile, error) {
	prompt := ImagePrompt(req.Prompt, req.Controls)
	if prompt == "" {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "prompt is required")
	}

	payload := imagenRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: 1, AspectRatio: req.Controls.AspectRatio},
	}

	var resp imagenResponse
	if err := c.invokeGemini(ctx, http.MethodPost, c.modelPath(c.imageModel, "predict"), "", payload, &resp); err != nil {
		c.logger.Warn().Err(err).Str("model", c.imageModel).Msg("image generation failed")
		return domain.ImageFile{}, err
	}
	for _, p := range resp.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		return domain.ImageFile{Data: p.BytesBase64Encoded, MimeType: firstNonEmpty(p.MimeType, "image/png")}, nil
	}
	return domain.ImageFile{}, domain.NewError(domain.ErrEmptyResult, "No image was returned by the model. Try rephrasing the prompt.")
}

// EditImage applies an instruction to the primary image. The primary image
// is sent first, then auxiliary images, then assets (skipped when iterating),
// then exactly one text part.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (domain.ImageFile, error) {
	if req.Primary.IsZero() {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "an image is required")
	}
	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "instruction is required")
	}

	parts := []geminiPart{inlinePart(req.Primary)}
	for _, img := range req.Auxiliary {
		if !img.IsZero() {
			parts = append(parts, inlinePart(img))
		}
	}
	if !req.Iterating {
		for _, img := range req.Assets {
			if !img.IsZero() {
				parts = append(parts, inlinePart(img))
			}
		}
	}
	parts = append(parts, geminiPart{Text: instruction})

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, http.MethodPost, c.modelPath(c.editModel, "generateContent"), "", payload, &resp); err != nil {
		c.logger.Warn().Err(err).Str("model", c.editModel).Int("images", len(parts)-1).Msg("image edit failed")
		return domain.ImageFile{}, err
	}
	img, ok := firstImage(resp)
	if !ok {
		return domain.ImageFile{}, emptyResult(resp, "image")
	}
	return img, nil
}

// SwapFace puts the face from req.Face onto the person in req.Source.
func (c *Client) SwapFace(ctx context.Context, req FaceSwapRequest) (domain.ImageFile, error) {
	if req.Source.IsZero() || req.Face.IsZero() {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "both a source image and a face image are required")
	}
	return c.EditImage(ctx, EditRequest{
		Instruction: faceSwapInstruction,
		Primary:     req.Source,
		Auxiliary:   []domain.ImageFile{req.Face},
	})
}

// SwapClothing dresses the person in req.Person with req.Garment.
func (c *Client) SwapClothing(ctx context.Context, req ClothingSwapRequest) (domain.ImageFile, error) {
	if req.Person.IsZero() || req.Garment.IsZero() {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "both a person image and a garment image are required")
	}
	instruction := clothingSwapInstruction
	if extra := strings.TrimSpace(req.Instruction); extra != "" {
		instruction += " Additional instructions: " + extra
	}
	return c.EditImage(ctx, EditRequest{
		Instruction: instruction,
		Primary:     req.Person,
		Auxiliary:   []domain.ImageFile{req.Garment},
	})
}

// RemoveBackground cuts the main subject out of img.
func (c *Client) RemoveBackground(ctx context.Context, img domain.ImageFile) (domain.ImageFile, error) {
	return c.EditImage(ctx, EditRequest{Instruction: removeBackgroundInstruction, Primary: img})
}

// Composite places a cut-out subject onto a background image or a described
// background. An image takes precedence over a description.
func (c *Client) Composite(ctx context.Context, req CompositeRequest) (domain.ImageFile, error) {
	if req.Background != nil && !req.Background.IsZero() {
		return c.EditImage(ctx, EditRequest{
			Instruction: compositeImageInstruction,
			Primary:     req.Subject,
			Auxiliary:   []domain.ImageFile{*req.Background},
		})
	}
	prompt := strings.TrimSpace(req.BackgroundPrompt)
	if prompt == "" {
		return domain.ImageFile{}, domain.NewError(domain.ErrMissingInput, "a background image or description is required")
	}
	return c.EditImage(ctx, EditRequest{
		Instruction: fmt.Sprintf(compositePromptInstruction, prompt),
		Primary:     req.Subject,
	})
}
