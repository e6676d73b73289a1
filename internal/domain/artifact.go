package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactKind enumerates artifact types.
type ArtifactKind string

const (
	ArtifactKindImage ArtifactKind = "image"
	ArtifactKindVideo ArtifactKind = "video"
)

// Artifact is a single generated output. Two artifacts are the same artifact
// only when their IDs match.
type Artifact struct {
	ID        string       `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Image     ImageFile    `json:"-"`
	DataURL   string       `json:"data_url,omitempty"`
	VideoRef  string       `json:"video_ref,omitempty"`
	Source    *ImageFile   `json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewImageArtifact wraps a generated image.
func NewImageArtifact(img ImageFile) Artifact {
	return Artifact{
		ID:        uuid.NewString(),
		Kind:      ArtifactKindImage,
		Image:     img,
		DataURL:   img.DataURL(),
		CreatedAt: time.Now().UTC(),
	}
}

// NewVideoArtifact wraps a materialised video and the image it was animated from.
func NewVideoArtifact(videoRef string, source ImageFile) Artifact {
	src := source
	return Artifact{
		ID:        uuid.NewString(),
		Kind:      ArtifactKindVideo,
		VideoRef:  videoRef,
		DataURL:   source.DataURL(),
		Source:    &src,
		CreatedAt: time.Now().UTC(),
	}
}

// LibraryEntry is a saved artifact. Entries are never mutated after creation.
type LibraryEntry struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	ArtifactID string    `json:"artifact_id"`
	Result     string    `json:"result"`
	Original   string    `json:"original,omitempty"`
	Video      string    `json:"video,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VideoJobStatus enumerates states reported by the video backend.
type VideoJobStatus string

const (
	VideoJobPending VideoJobStatus = "pending"
	VideoJobDone    VideoJobStatus = "done"
)

// VideoJob is a long-running video generation operation.
type VideoJob struct {
	Name        string         `json:"name"`
	Status      VideoJobStatus `json:"status"`
	DownloadRef string         `json:"download_ref,omitempty"`
}
