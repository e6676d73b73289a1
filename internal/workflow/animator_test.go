package workflow

import (
	"context"
	"errors"
	"testing"

	"xstream/internal/domain"
	"xstream/internal/infra/credentials"
	"xstream/internal/library"
	"xstream/internal/providers/genai"
	"xstream/internal/providers/video"
	"xstream/internal/storage"
)

func pendingThenDone(ref string) []domain.VideoJob {
	return []domain.VideoJob{
		{Name: "operations/anim", Status: domain.VideoJobPending},
		{Name: "operations/anim", Status: domain.VideoJobPending},
		{Name: "operations/anim", Status: domain.VideoJobDone, DownloadRef: ref},
	}
}

func newAnimator(t *testing.T, backend genai.VideoBackend, keys credentials.KeySelector, blobs storage.BlobStore, lib *library.Library) *CharacterAnimator {
	t.Helper()
	deps := Deps{
		Video:   backend,
		Polling: video.Options{Clock: instantClock{}},
		Blobs:   blobs,
		Keys:    keys,
		Library: lib,
	}
	a := NewCharacterAnimator(deps)
	if err := a.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestAnimatorCredentialRejectedOnDownload(t *testing.T) {
	backend := &fakeVideo{
		polls: pendingThenDone("https://files.test/R"),
		download: func(ref, credential string) (*genai.VideoDownload, error) {
			return nil, domain.WrapError(domain.ErrBackend, errors.New("gemini status 404: Requested entity was not found."), "")
		},
	}
	store := credentials.NewMemoryStore()
	keys := credentials.NewStoreSelector(store)
	if err := keys.SelectKey(context.Background(), "video-key"); err != nil {
		t.Fatalf("SelectKey: %v", err)
	}
	a := newAnimator(t, backend, keys, storage.NewMemoryStore(), nil)
	_ = a.SetImage(imgSource)
	_ = a.SetMotion("wave hello")

	err := a.Animate(context.Background())
	if !errors.Is(err, domain.ErrCredentialRejected) {
		t.Fatalf("err = %v, want credential rejected", err)
	}
	if domain.KindOf(err) != domain.ErrCredentialRejected {
		t.Fatalf("kind = %v, want credential rejected", domain.KindOf(err))
	}
	view := a.View()
	if view.Stage != StageNeedsCredential || view.Error == nil || view.Error.Kind != "credential_rejected" {
		t.Fatalf("view = %+v", view)
	}
	if view.HistoryLen != 0 {
		t.Fatalf("no artifact should be recorded")
	}
	if ok, _ := keys.HasSelectedKey(context.Background()); ok {
		t.Fatalf("rejected key should be forgotten")
	}
	for _, k := range backend.keys {
		if k != "video-key" {
			t.Fatalf("video call used %q", k)
		}
	}

	if err := a.SelectCredential(context.Background(), "fresh-key"); err != nil {
		t.Fatalf("SelectCredential: %v", err)
	}
	if view := a.View(); view.Stage != StageInput || view.Error != nil {
		t.Fatalf("after selection = %+v", view)
	}
}

func TestAnimatorProactiveCredentialCheck(t *testing.T) {
	keys := credentials.NewStoreSelector(credentials.NewMemoryStore())
	a := newAnimator(t, &fakeVideo{}, keys, nil, nil)
	if a.View().Stage != StageNeedsCredential {
		t.Fatalf("stage = %s", a.View().Stage)
	}
	if err := a.SetImage(imgSource); !errors.Is(err, domain.ErrInvalidStage) {
		t.Fatalf("upload before key selection err = %v", err)
	}
}

func TestAnimatorProducesBlobVideo(t *testing.T) {
	backend := &fakeVideo{
		polls: pendingThenDone("https://files.test/R"),
		download: func(ref, credential string) (*genai.VideoDownload, error) {
			if ref != "https://files.test/R" || credential != "" {
				t.Fatalf("download(%q, %q)", ref, credential)
			}
			return &genai.VideoDownload{Data: []byte("MP4"), MimeType: "video/mp4"}, nil
		},
	}
	blobs := storage.NewMemoryStore()
	lib := library.New()
	a := newAnimator(t, backend, nil, blobs, lib)
	if a.View().Stage != StageInput {
		t.Fatalf("without a selector the tool opens directly")
	}
	if err := a.Animate(context.Background()); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("err = %v, want missing input", err)
	}
	_ = a.SetImage(imgSource)
	_ = a.SetMotion("   ")
	if err := a.Animate(context.Background()); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("blank motion err = %v", err)
	}
	_ = a.SetMotion("spin around")
	if err := a.Animate(context.Background()); err != nil {
		t.Fatalf("Animate: %v", err)
	}

	view := a.View()
	if view.Stage != StageResult || view.Current == nil || view.Current.Kind != domain.ArtifactKindVideo {
		t.Fatalf("view = %+v", view)
	}
	if view.Video == nil || view.Video.State != video.StateResolved || view.Video.Polls != 3 {
		t.Fatalf("progress = %+v", view.Video)
	}
	data, mime, err := blobs.Get(context.Background(), view.Current.VideoRef)
	if err != nil || string(data) != "MP4" || mime != "video/mp4" {
		t.Fatalf("blob = %q %q %v", data, mime, err)
	}

	entry, created, err := a.Save()
	if err != nil || !created {
		t.Fatalf("Save = %v %v", created, err)
	}
	if entry.Kind != "Character Animation" || entry.Video != view.Current.VideoRef || entry.Result != imgSource.DataURL() {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestAnimatorGenericFailure(t *testing.T) {
	backend := &fakeVideo{
		polls: pendingThenDone("https://files.test/R"),
		download: func(string, string) (*genai.VideoDownload, error) {
			return nil, domain.NewError(domain.ErrBackend, "storage unavailable")
		},
	}
	keys := credentials.NewStoreSelector(credentials.NewMemoryStore())
	_ = keys.SelectKey(context.Background(), "k")
	a := newAnimator(t, backend, keys, nil, nil)
	_ = a.SetImage(imgSource)
	_ = a.SetMotion("jump")
	if err := a.Animate(context.Background()); !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("err = %v", err)
	}
	if a.View().Stage != StageError {
		t.Fatalf("stage = %s", a.View().Stage)
	}
	if ok, _ := keys.HasSelectedKey(context.Background()); !ok {
		t.Fatalf("generic failures must keep the selected key")
	}
}

func TestAnimatorStartRunsInBackground(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeVideo{
		polls: pendingThenDone("https://files.test/R"),
		download: func(ref, credential string) (*genai.VideoDownload, error) {
			<-release
			return &genai.VideoDownload{Data: []byte("MP4"), MimeType: "video/mp4"}, nil
		},
	}
	a := newAnimator(t, backend, nil, storage.NewMemoryStore(), nil)

	if _, err := a.Start(context.Background()); !errors.Is(err, domain.ErrMissingInput) {
		t.Fatalf("Start without input err = %v", err)
	}
	_ = a.SetImage(imgSource)
	_ = a.SetMotion("nod")

	done, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if view := a.View(); view.Stage != StageLoading || !view.Loading {
		t.Fatalf("view while running = %+v", view)
	}
	if _, err := a.Start(context.Background()); !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("second Start err = %v, want busy", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("job: %v", err)
	}
	if a.View().Stage != StageResult {
		t.Fatalf("stage = %s", a.View().Stage)
	}
}
