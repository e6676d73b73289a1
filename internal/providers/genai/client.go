package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xstream/internal/domain"
	"xstream/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	EditModel  string
	TextModel  string
	VideoModel string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini REST API. One client is shared by every
// workflow in the process.
type Client struct {
	apiKey     string
	baseURL    string
	imageModel string
	editModel  string
	textModel  string
	videoModel string
	httpClient *http.Client
	logger     *infra.Logger
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	CandidateCount     int      `json:"candidateCount,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// ErrMissingAPIKey is the configuration failure reported when no ambient
// credential is available.
var ErrMissingAPIKey = domain.NewError(domain.ErrConfiguration, "API key is not configured. Set GEMINI_API_KEY (or API_KEY) and restart.")

// NewClient constructs a Gemini client with sane defaults. It refuses to
// build a client without an API key.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		imageModel: firstNonEmpty(opts.ImageModel, "imagen-4.0-generate-001"),
		editModel:  firstNonEmpty(opts.EditModel, "gemini-2.5-flash-image-preview"),
		textModel:  firstNonEmpty(opts.TextModel, "gemini-2.5-flash"),
		videoModel: firstNonEmpty(opts.VideoModel, "veo-2.0-generate-001"),
		httpClient: client,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) modelPath(model, method string) string {
	return fmt.Sprintf("/models/%s:%s", url.PathEscape(model), method)
}

// newRequest builds an authenticated JSON request against the API.
func (c *Client) newRequest(ctx context.Context, method, path, credential string, payload any) (*http.Request, error) {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", firstNonEmpty(credential, c.apiKey))
	return req, nil
}

// invokeGemini sends payload and decodes the JSON answer into out.
func (c *Client) invokeGemini(ctx context.Context, method, path, credential string, payload any, out any) error {
	req, err := c.newRequest(ctx, method, path, credential, payload)
	if err != nil {
		return domain.WrapError(domain.ErrBackend, err, "")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(domain.ErrBackend, fmt.Errorf("decode gemini response: %w", err), "")
	}
	return nil
}

// statusError turns an error response into a backend error carrying the
// backend's own message.
func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var apiErr geminiErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return classifyBackendMessage(fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message), apiErr.Error.Message)
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return classifyBackendMessage(fmt.Errorf("gemini status %d: %s", resp.StatusCode, text), text)
	}
	return domain.WrapError(domain.ErrBackend, fmt.Errorf("gemini status %d", resp.StatusCode), "")
}

func classifyBackendMessage(err error, message string) error {
	if strings.Contains(message, domain.CredentialErrorSignature) {
		return domain.WrapError(domain.ErrCredentialRejected, err, message)
	}
	return domain.WrapError(domain.ErrBackend, err, message)
}

func transportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return domain.WrapError(domain.ErrBackend, fmt.Errorf("invoke gemini: %w", err), "")
}

func inlinePart(img domain.ImageFile) geminiPart {
	return geminiPart{InlineData: &geminiInlineData{MimeType: img.MimeType, Data: img.Data}}
}

// firstImage returns the first inline image in the response.
func firstImage(resp geminiGenerateContentResponse) (domain.ImageFile, bool) {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			if _, err := base64.StdEncoding.DecodeString(part.InlineData.Data); err != nil {
				continue
			}
			return domain.ImageFile{
				Data:     part.InlineData.Data,
				MimeType: firstNonEmpty(part.InlineData.MimeType, "image/png"),
			}, true
		}
	}
	return domain.ImageFile{}, false
}

func extractText(resp geminiGenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// emptyResult explains why no artifact came back, using whatever text or
// block reason the backend supplied.
func emptyResult(resp geminiGenerateContentResponse, what string) error {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return domain.NewError(domain.ErrEmptyResult, "The request was blocked (%s). Try a different image or instruction.", resp.PromptFeedback.BlockReason)
	}
	if text := strings.TrimSpace(extractText(resp)); text != "" {
		return domain.NewError(domain.ErrEmptyResult, "No %s was returned: %s", what, text)
	}
	return domain.NewError(domain.ErrEmptyResult, "No %s was returned by the model.", what)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
