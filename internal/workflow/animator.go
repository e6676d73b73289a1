package workflow

import (
	"context"
	"errors"
	"strings"

	"xstream/internal/domain"
	"xstream/internal/infra/credentials"
	"xstream/internal/providers/genai"
	"xstream/internal/providers/video"
	"xstream/internal/storage"
)

const credentialRejectedMessage = "The selected API key was rejected by the video service. Select a key from a billing-enabled project and try again."

// CharacterAnimator turns a still image into a short video. Video calls
// need a separately selected credential when a selector is configured.
type CharacterAnimator struct {
	*core
	backend genai.VideoBackend
	polling video.Options
	blobs   storage.BlobStore
	keys    credentials.KeySelector

	image    *domain.ImageFile
	motion   string
	progress *VideoProgress
}

func NewCharacterAnimator(deps Deps) *CharacterAnimator {
	blobs := deps.Blobs
	if blobs == nil {
		blobs = storage.NewMemoryStore()
	}
	return &CharacterAnimator{
		core:    newCore(ToolCharacterAnimator, StageInput, StageResult, deps),
		backend: deps.Video,
		polling: deps.Polling,
		blobs:   blobs,
		keys:    deps.Keys,
	}
}

// Open runs the proactive credential check. Without a selected credential
// the session starts in the NeedsCredential stage.
func (a *CharacterAnimator) Open(ctx context.Context) error {
	if a.keys == nil {
		return nil
	}
	ok, err := a.keys.HasSelectedKey(ctx)
	if err != nil {
		return err
	}
	if !ok {
		a.mu.Lock()
		a.stage = StageNeedsCredential
		a.mu.Unlock()
	}
	return nil
}

// SelectCredential records a newly chosen video credential and returns the
// session to its input stage.
func (a *CharacterAnimator) SelectCredential(ctx context.Context, key string) error {
	if a.keys == nil {
		return domain.NewError(domain.ErrConfiguration, "credential selection is not available; video uses the configured API key")
	}
	if strings.TrimSpace(key) == "" {
		return domain.NewError(domain.ErrMissingInput, "a key is required")
	}
	a.mu.Lock()
	if err := a.checkIdleLocked(); err != nil {
		a.mu.Unlock()
		return err
	}
	a.mu.Unlock()

	if err := a.keys.SelectKey(ctx, key); err != nil {
		return domain.WrapError(domain.ErrLocalIO, err, "failed to store the selected key")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stage == StageNeedsCredential || a.stage == StageError {
		a.stage = StageInput
	}
	a.failure = nil
	a.notice = "Video key selected."
	return nil
}

func (a *CharacterAnimator) SetMotion(motion string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("edit motion"); err != nil {
		return err
	}
	a.motion = motion
	return nil
}

func (a *CharacterAnimator) SetImage(img domain.ImageFile) error { return a.SetInput(SlotImage, img) }

func (a *CharacterAnimator) SetInput(slot Slot, img domain.ImageFile) error {
	if err := requireImage(img, string(slot)+" image"); err != nil {
		return err
	}
	if slot != SlotImage {
		return unknownSlot(a.tool, slot)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("upload"); err != nil {
		return err
	}
	a.image = imagePtr(img)
	a.original = a.image
	return nil
}

func (a *CharacterAnimator) ClearInput(slot Slot) error {
	if slot != SlotImage {
		return unknownSlot(a.tool, slot)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.acceptInputLocked("clear"); err != nil {
		return err
	}
	a.image, a.original = nil, nil
	return nil
}

func (a *CharacterAnimator) Seed(img domain.ImageFile) error { return a.SetImage(img) }

// Animate submits the video job, polls it to completion, downloads the
// result with the selected credential and stores it as a local blob.
func (a *CharacterAnimator) Animate(ctx context.Context) error {
	run, err := a.begin()
	if err != nil {
		return err
	}
	return run(ctx)
}

// Start validates and begins an animation, then runs the job in the
// background. The outcome is delivered on the returned channel; progress is
// visible through View in the meantime.
func (a *CharacterAnimator) Start(ctx context.Context) (<-chan error, error) {
	run, err := a.begin()
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	return done, nil
}

func (a *CharacterAnimator) begin() (func(context.Context) error, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.checkIdleLocked(); err != nil {
		return nil, err
	}
	if a.stage != StageInput {
		return nil, stageError("animate", a.stage)
	}
	if a.image == nil || strings.TrimSpace(a.motion) == "" {
		return nil, domain.NewError(domain.ErrMissingInput, "upload an image and describe the motion")
	}
	if a.backend == nil {
		return nil, domain.NewError(domain.ErrConfiguration, "video generation is not configured")
	}
	img := *a.image
	motion := strings.TrimSpace(a.motion)
	a.progress = nil
	epoch := a.beginLocked("animate", StageLoading)

	return func(ctx context.Context) error {
		ref, err := a.animate(ctx, epoch, img, motion)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.abandonedLocked("animate", epoch) {
			return errAbandoned("animate")
		}
		if err != nil {
			if a.keys != nil && errors.Is(err, domain.ErrCredentialRejected) {
				return a.needCredentialLocked(ctx, err)
			}
			return a.failLocked("animate", err)
		}
		a.succeedLocked("animate", domain.NewVideoArtifact(ref, img), StageResult)
		return nil
	}, nil
}

var errNoCredential = domain.NewError(domain.ErrCredentialRejected, "Select an API key from a billing-enabled project to generate videos.")

func (a *CharacterAnimator) animate(ctx context.Context, epoch int, img domain.ImageFile, motion string) (string, error) {
	credential := ""
	if a.keys != nil {
		key, err := a.keys.SelectedKey(ctx)
		if err != nil {
			return "", domain.WrapError(domain.ErrLocalIO, err, "failed to read the selected key")
		}
		if key == "" {
			return "", errNoCredential
		}
		credential = key
	}

	opts := a.polling
	opts.Logger = &a.logger
	observer := opts.Observer
	opts.Observer = func(u video.Update) {
		a.mu.Lock()
		if a.epoch == epoch {
			a.progress = &VideoProgress{State: u.State, Operation: u.Job.Name, Polls: u.Polls}
		}
		a.mu.Unlock()
		if observer != nil {
			observer(u)
		}
	}
	poller := video.NewPoller(a.backend, opts)

	job, err := poller.Run(ctx, genai.VideoRequest{Image: img, Motion: motion, Credential: credential})
	if err != nil {
		return "", err
	}
	dl, err := poller.Download(ctx, job, credential)
	if err != nil {
		return "", err
	}
	ref, err := a.blobs.Put(ctx, dl.Data, dl.MimeType)
	if err != nil {
		return "", domain.WrapError(domain.ErrLocalIO, err, "failed to store the video")
	}
	return ref, nil
}

// needCredentialLocked forgets the rejected credential and asks for a new one.
func (a *CharacterAnimator) needCredentialLocked(ctx context.Context, err error) error {
	a.loading = false
	a.stage = StageNeedsCredential
	a.failure = newErrorState(err)
	if errors.Is(err, domain.ErrCredentialRejected) && !errors.Is(err, errNoCredential) {
		a.failure.Message = credentialRejectedMessage
		if resetErr := a.keys.ResetSelection(context.WithoutCancel(ctx)); resetErr != nil {
			a.logger.Warn().Err(resetErr).Msg("reset video key selection")
		}
	}
	a.logger.Warn().Err(err).Msg("video credential needs to be selected")
	return &StageFailure{Tool: a.tool, Op: "animate", Err: err}
}

func (a *CharacterAnimator) StartOver() {
	a.mu.Lock()
	defer a.mu.Unlock()
	needsKey := a.stage == StageNeedsCredential
	a.resetLocked()
	a.image = nil
	a.motion = ""
	a.progress = nil
	if needsKey {
		a.stage = StageNeedsCredential
	}
}

func (a *CharacterAnimator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := a.viewLocked()
	setSlot(&v, SlotImage, a.image)
	v.Motion = a.motion
	if a.progress != nil {
		p := *a.progress
		v.Video = &p
	}
	return v
}

var _ Workflow = (*CharacterAnimator)(nil)
