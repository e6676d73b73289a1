package domain

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// ImageFile is the unit of image exchange with the generation backend.
type ImageFile struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// ImageFileFromBytes encodes raw bytes. An empty mime type is sniffed.
func ImageFileFromBytes(data []byte, mimeType string) (ImageFile, error) {
	if len(data) == 0 {
		return ImageFile{}, NewError(ErrLocalIO, "image is empty")
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return ImageFile{}, NewError(ErrLocalIO, "unsupported file type %q", mimeType)
	}
	return ImageFile{Data: base64.StdEncoding.EncodeToString(data), MimeType: mimeType}, nil
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" string.
func ParseDataURL(raw string) (ImageFile, error) {
	raw = strings.TrimSpace(raw)
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return ImageFile{}, NewError(ErrLocalIO, "not a data url")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ImageFile{}, NewError(ErrLocalIO, "malformed data url")
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return ImageFile{}, NewError(ErrLocalIO, "data url is not base64 encoded")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return ImageFile{}, WrapError(ErrLocalIO, err, "data url payload is not valid base64")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return ImageFile{Data: payload, MimeType: mimeType}, nil
}

// IsZero reports whether no image is present.
func (f ImageFile) IsZero() bool {
	return f.Data == ""
}

// DataURL renders the image for display.
func (f ImageFile) DataURL() string {
	if f.IsZero() {
		return ""
	}
	return fmt.Sprintf("data:%s;base64,%s", f.MimeType, f.Data)
}

// Bytes decodes the base64 payload.
func (f ImageFile) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, WrapError(ErrLocalIO, err, "decode image payload")
	}
	return data, nil
}
