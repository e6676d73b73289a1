package library

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"xstream/internal/domain"
	"xstream/internal/storage"
	"xstream/pkg/zip"
)

// Export packs every saved result into a zip archive, oldest first. Video
// entries are read back from blobs; images are decoded from their data URL.
func (l *Library) Export(ctx context.Context, blobs storage.BlobStore) ([]byte, error) {
	l.mu.RLock()
	entries := append([]domain.LibraryEntry(nil), l.entries...)
	l.mu.RUnlock()

	assets := make([]zip.Asset, 0, len(entries))
	for i, entry := range entries {
		data, mimeType, err := entryPayload(ctx, entry, blobs)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", entry.ID, err)
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("%03d-%s%s", i+1, slug(entry.Kind), extension(mimeType)),
			MIME:     mimeType,
			Data:     data,
			Modified: entry.CreatedAt,
		})
	}
	return zip.ArchiveAssets(assets)
}

func entryPayload(ctx context.Context, entry domain.LibraryEntry, blobs storage.BlobStore) ([]byte, string, error) {
	if entry.Video != "" {
		if blobs == nil {
			return nil, "", domain.NewError(domain.ErrLocalIO, "no blob store for video %s", entry.Video)
		}
		return blobs.Get(ctx, entry.Video)
	}
	img, err := domain.ParseDataURL(entry.Result)
	if err != nil {
		return nil, "", err
	}
	data, err := img.Bytes()
	return data, img.MimeType, err
}

func slug(kind string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kind)), " ", "-")
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
