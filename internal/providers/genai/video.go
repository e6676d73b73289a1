package genai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"xstream/internal/domain"
)

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	SampleCount int `json:"sampleCount,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type operationResponse struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const maxVideoBytes = 512 << 20

// SubmitVideo starts an image-to-video job and returns its pending handle.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (domain.VideoJob, error) {
	if req.Image.IsZero() {
		return domain.VideoJob{}, domain.NewError(domain.ErrMissingInput, "an image is required")
	}
	motion := strings.TrimSpace(req.Motion)
	if motion == "" {
		return domain.VideoJob{}, domain.NewError(domain.ErrMissingInput, "a motion description is required")
	}
	payload := veoRequest{
		Instances: []veoInstance{{
			Prompt: motion,
			Image:  &veoImage{BytesBase64Encoded: req.Image.Data, MimeType: req.Image.MimeType},
		}},
		Parameters: veoParameters{SampleCount: 1},
	}

	var op operationResponse
	if err := c.invokeGemini(ctx, http.MethodPost, c.modelPath(c.videoModel, "predictLongRunning"), req.Credential, payload, &op); err != nil {
		c.logger.Warn().Err(err).Str("model", c.videoModel).Msg("video submission failed")
		return domain.VideoJob{}, err
	}
	if op.Name == "" {
		return domain.VideoJob{}, domain.NewError(domain.ErrEmptyResult, "The video service did not return an operation.")
	}
	return operationJob(op)
}

// PollVideo refreshes a job's status.
func (c *Client) PollVideo(ctx context.Context, job domain.VideoJob, credential string) (domain.VideoJob, error) {
	if job.Name == "" {
		return domain.VideoJob{}, domain.NewError(domain.ErrMissingInput, "operation name is required")
	}
	var op operationResponse
	if err := c.invokeGemini(ctx, http.MethodGet, "/"+strings.TrimLeft(job.Name, "/"), credential, nil, &op); err != nil {
		return domain.VideoJob{}, err
	}
	if op.Name == "" {
		op.Name = job.Name
	}
	return operationJob(op)
}

func operationJob(op operationResponse) (domain.VideoJob, error) {
	if op.Error != nil && op.Error.Message != "" {
		return domain.VideoJob{}, classifyBackendMessage(fmt.Errorf("video operation %s: %s", op.Name, op.Error.Message), op.Error.Message)
	}
	job := domain.VideoJob{Name: op.Name, Status: domain.VideoJobPending}
	if !op.Done {
		return job, nil
	}
	job.Status = domain.VideoJobDone
	if op.Response != nil {
		for _, sample := range op.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video.URI != "" {
				job.DownloadRef = sample.Video.URI
				break
			}
		}
	}
	if job.DownloadRef == "" {
		return domain.VideoJob{}, domain.NewError(domain.ErrEmptyResult, "Video generation finished without a downloadable video.")
	}
	return job, nil
}

// DownloadVideo fetches the finished video. The credential is appended as
// the key query parameter.
func (c *Client) DownloadVideo(ctx context.Context, ref, credential string) (*VideoDownload, error) {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil || u.Scheme == "" {
		return nil, domain.NewError(domain.ErrBackend, "invalid video reference %q", ref)
	}
	q := u.Query()
	q.Set("key", firstNonEmpty(credential, c.apiKey))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackend, err, "")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoBytes))
	if err != nil {
		return nil, transportError(err)
	}
	if len(data) == 0 {
		return nil, domain.NewError(domain.ErrEmptyResult, "The downloaded video is empty.")
	}
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = "video/mp4"
	}
	return &VideoDownload{Data: data, MimeType: mimeType}, nil
}
