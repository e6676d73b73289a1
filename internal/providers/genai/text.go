package genai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"xstream/internal/domain"
)

const sseDataPrefix = "data:"

// StreamText requests a streamed answer and yields text chunks as they
// arrive. The sequence stops after the first error.
func (c *Client) StreamText(ctx context.Context, req TextRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			yield("", domain.NewError(domain.ErrMissingInput, "prompt is required"))
			return
		}

		parts := make([]geminiPart, 0, 2)
		if req.Image != nil && !req.Image.IsZero() {
			parts = append(parts, inlinePart(*req.Image))
		}
		parts = append(parts, geminiPart{Text: prompt})
		payload := geminiGenerateContentRequest{
			Contents: []geminiContent{{Role: "user", Parts: parts}},
		}
		if system := strings.TrimSpace(req.System); system != "" {
			payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
		}

		httpReq, err := c.newRequest(ctx, http.MethodPost, c.modelPath(c.textModel, "streamGenerateContent")+"?alt=sse", "", payload)
		if err != nil {
			yield("", domain.WrapError(domain.ErrBackend, err, ""))
			return
		}
		httpReq.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			yield("", transportError(err))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			yield("", statusError(resp))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			data, ok := strings.CutPrefix(line, sseDataPrefix)
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" || data == "[DONE]" {
				continue
			}
			var chunk geminiGenerateContentResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				yield("", domain.WrapError(domain.ErrBackend, fmt.Errorf("decode stream chunk: %w", err), ""))
				return
			}
			text := extractText(chunk)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", transportError(err))
		}
	}
}

// CollectText drains a text stream, calling onChunk for every piece.
func CollectText(seq iter.Seq2[string, error], onChunk func(string)) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	return b.String(), nil
}

// DraftPrompt expands a rough idea into a detailed image prompt.
func (c *Client) DraftPrompt(ctx context.Context, req DraftRequest) (string, error) {
	if strings.TrimSpace(req.Idea) == "" {
		return "", domain.NewError(domain.ErrMissingInput, "an idea is required")
	}
	payload := geminiGenerateContentRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: draftSystemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: draftUserPrompt(req)}}}},
		GenerationConfig:  &geminiGenerationConfig{Temperature: 0.8, CandidateCount: 1},
	}
	var resp geminiGenerateContentResponse
	if err := c.invokeGemini(ctx, http.MethodPost, c.modelPath(c.textModel, "generateContent"), "", payload, &resp); err != nil {
		c.logger.Warn().Err(err).Str("model", c.textModel).Msg("prompt drafting failed")
		return "", err
	}
	text := strings.Trim(strings.TrimSpace(extractText(resp)), "\"")
	if text == "" {
		return "", emptyResult(resp, "prompt")
	}
	return text, nil
}
