// Package workflow drives each creative tool through its stages. Sessions
// own their artifact history; the library is shared across sessions.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"xstream/internal/controls"
	"xstream/internal/domain"
	"xstream/internal/editor"
	"xstream/internal/history"
	"xstream/internal/infra"
	"xstream/internal/infra/credentials"
	"xstream/internal/library"
	"xstream/internal/providers/genai"
	"xstream/internal/providers/video"
	"xstream/internal/storage"
)

// Tool names a workflow.
type Tool string

const (
	ToolFaceSwap          Tool = "face-swap"
	ToolClothingSwap      Tool = "clothing-swap"
	ToolBackgroundRemover Tool = "background-remover"
	ToolCreativeAssistant Tool = "creative-assistant"
	ToolCharacterAnimator Tool = "character-animator"
)

// Tools lists every workflow in menu order.
var Tools = []Tool{ToolCreativeAssistant, ToolFaceSwap, ToolClothingSwap, ToolBackgroundRemover, ToolCharacterAnimator}

// ParseTool validates a tool name.
func ParseTool(raw string) (Tool, error) {
	t := Tool(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Tools {
		if t == known {
			return t, nil
		}
	}
	return "", domain.NewError(domain.ErrNotFound, "unknown tool %q", raw)
}

// LibraryKind is the tag recorded on library entries saved from the tool.
func (t Tool) LibraryKind() string {
	switch t {
	case ToolFaceSwap:
		return "Face Swap"
	case ToolClothingSwap:
		return "Clothing Swap"
	case ToolBackgroundRemover:
		return "Background Removal"
	case ToolCreativeAssistant:
		return "Creative Assistant"
	case ToolCharacterAnimator:
		return "Character Animation"
	}
	return string(t)
}

// Stage is a workflow position. Not every tool uses every stage.
type Stage string

const (
	StageInput           Stage = "input"
	StageLoading         Stage = "loading"
	StageResult          Stage = "result"
	StageError           Stage = "error"
	StageEditing         Stage = "editing"
	StagePrompt          Stage = "prompt"
	StageContent         Stage = "content"
	StageIterate         Stage = "iterate"
	StageNeedsCredential Stage = "needs_credential"
)

// Slot names an image input.
type Slot string

const (
	SlotSource     Slot = "source"
	SlotFace       Slot = "face"
	SlotPerson     Slot = "person"
	SlotGarment    Slot = "garment"
	SlotImage      Slot = "image"
	SlotBackground Slot = "background"
	SlotAsset      Slot = "asset"
)

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Generator genai.Generator
	Video     genai.VideoBackend
	Polling   video.Options
	Blobs     storage.BlobStore
	Library   *library.Library
	// Keys is the optional video credential selector. Nil means video calls
	// use the ambient credential and no selection is offered.
	Keys   credentials.KeySelector
	Logger *infra.Logger
}

// Workflow is the surface common to every tool session.
type Workflow interface {
	ID() string
	Tool() Tool
	View() View
	SetInput(slot Slot, img domain.ImageFile) error
	ClearInput(slot Slot) error
	// Seed starts the session from an image handed over from the library.
	Seed(img domain.ImageFile) error
	Undo() error
	Redo() error
	// Save publishes the current artifact. created is false when the
	// artifact had already been saved.
	Save() (entry domain.LibraryEntry, created bool, err error)
	StartOver()
	Dismiss() error
}

// Refiner is implemented by tools that iterate on a result with a new
// instruction.
type Refiner interface {
	Refine(ctx context.Context, instruction string) error
}

// Filterable is implemented by tools whose results can go through the
// local filter editor.
type Filterable interface {
	ApplyFilter(f editor.Filters) error
}

// ErrorState is the error panel shown for a failed stage.
type ErrorState struct {
	Message   string `json:"message"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

func newErrorState(err error) *ErrorState {
	return &ErrorState{Message: err.Error(), Kind: kindName(err), Retryable: domain.Retryable(err)}
}

func kindName(err error) string {
	switch domain.KindOf(err) {
	case domain.ErrConfiguration:
		return "configuration"
	case domain.ErrCredentialRejected:
		return "credential_rejected"
	case domain.ErrEmptyResult:
		return "empty_result"
	case domain.ErrLocalIO:
		return "local_io"
	case domain.ErrMissingInput:
		return "missing_input"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "backend"
}

// StageFailure is returned when a backend call failed and the session moved
// to an error state. The session view carries the same failure.
type StageFailure struct {
	Tool Tool
	Op   string
	Err  error
}

func (f *StageFailure) Error() string { return f.Err.Error() }

func (f *StageFailure) Unwrap() error { return f.Err }

// Comparison pairs the current artifact with what it replaced.
type Comparison struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after"`
}

// VideoProgress reports the state of a running animation job.
type VideoProgress struct {
	State     video.State `json:"state"`
	Operation string      `json:"operation,omitempty"`
	Polls     int         `json:"polls"`
}

// View is the render state of a session.
type View struct {
	ID             string             `json:"id"`
	Tool           Tool               `json:"tool"`
	Stage          Stage              `json:"stage"`
	Loading        bool               `json:"loading"`
	Inputs         map[Slot]string    `json:"inputs,omitempty"`
	Assets         []string           `json:"assets,omitempty"`
	Current        *domain.Artifact   `json:"current,omitempty"`
	Compare        *Comparison        `json:"compare,omitempty"`
	Cursor         int                `json:"cursor"`
	HistoryLen     int                `json:"history_len"`
	CanUndo        bool               `json:"can_undo"`
	CanRedo        bool               `json:"can_redo"`
	Saved          bool               `json:"saved"`
	Error          *ErrorState        `json:"error,omitempty"`
	Notice         string             `json:"notice,omitempty"`
	Controls       *controls.Controls `json:"controls,omitempty"`
	AspectLocked   bool               `json:"aspect_locked,omitempty"`
	Idea           string             `json:"idea,omitempty"`
	GenerateLyrics bool               `json:"generate_lyrics,omitempty"`
	Text           string             `json:"text,omitempty"`
	Lyrics         string             `json:"lyrics,omitempty"`
	Motion         string             `json:"motion,omitempty"`
	Video          *VideoProgress     `json:"video,omitempty"`
}

const alreadySavedNotice = "This result is already in your library."

var errNothingToSave = domain.NewError(domain.ErrInvalidStage, "there is no result to save yet")

// core is the state shared by every tool. Fields below mu are guarded by it.
// The lock is released while backend calls run so views stay readable.
type core struct {
	id          string
	tool        Tool
	initial     Stage
	resultStage Stage
	library     *library.Library
	logger      infra.Logger

	mu       sync.Mutex
	stage    Stage
	original *domain.ImageFile
	history  *history.History
	saved    map[string]string
	failure  *ErrorState
	loading  bool
	notice   string
	// epoch changes on every hard reset; results of calls started in an
	// earlier epoch are dropped.
	epoch int
	// recover picks the stage Dismiss returns to. Called with mu held.
	recover func() Stage
}

func newCore(tool Tool, initial, result Stage, deps Deps) *core {
	id := uuid.NewString()
	logger := infra.LoggerOrDiscard(deps.Logger).With().
		Str("session_id", id).
		Str("tool", string(tool)).
		Logger()
	lib := deps.Library
	if lib == nil {
		lib = library.New()
	}
	c := &core{
		id:          id,
		tool:        tool,
		initial:     initial,
		resultStage: result,
		library:     lib,
		logger:      logger,
		stage:       initial,
		history:     history.New(),
		saved:       map[string]string{},
	}
	c.recover = func() Stage { return c.initial }
	return c
}

func (c *core) ID() string { return c.id }

func (c *core) Tool() Tool { return c.tool }

func busyError() error {
	return domain.NewError(domain.ErrBusy, "a generation is already running for this session")
}

func stageError(op string, stage Stage) error {
	return domain.NewError(domain.ErrInvalidStage, "%s is not available in the %s stage", op, stage)
}

// checkIdleLocked rejects operations while a backend call is in flight.
func (c *core) checkIdleLocked() error {
	if c.loading {
		return busyError()
	}
	return nil
}

func (c *core) inStageLocked(stages ...Stage) bool {
	for _, s := range stages {
		if c.stage == s {
			return true
		}
	}
	return false
}

// acceptInputLocked prepares the session for a new upload. Uploads are only
// taken in the initial stage; an error panel is cleared by a new upload.
func (c *core) acceptInputLocked(op string) error {
	if err := c.checkIdleLocked(); err != nil {
		return err
	}
	if c.stage == StageError {
		c.failure = nil
		c.stage = c.initial
	}
	if c.stage != c.initial {
		return stageError(op, c.stage)
	}
	c.notice = ""
	return nil
}

// beginLocked marks the session busy and returns the epoch the call belongs to.
func (c *core) beginLocked(op string, stage Stage) int {
	c.loading = true
	c.stage = stage
	c.failure = nil
	c.notice = ""
	c.logger.Info().Str("operation", op).Str("stage", string(stage)).Msg("generation started")
	return c.epoch
}

// abandonedLocked reports whether the session was reset after epoch began.
func (c *core) abandonedLocked(op string, epoch int) bool {
	if epoch == c.epoch {
		return false
	}
	c.logger.Info().Str("operation", op).Msg("dropping result of abandoned generation")
	return true
}

func errAbandoned(op string) error {
	return domain.NewError(domain.ErrInvalidStage, "the session was reset while %s was running", op)
}

func (c *core) failLocked(op string, err error) error {
	c.loading = false
	c.stage = StageError
	c.failure = newErrorState(err)
	c.logger.Warn().Err(err).Str("operation", op).Str("kind", c.failure.Kind).Msg("generation failed")
	return &StageFailure{Tool: c.tool, Op: op, Err: err}
}

func (c *core) succeedLocked(op string, artifact domain.Artifact, next Stage) {
	c.loading = false
	c.history.Append(artifact)
	c.stage = next
	c.logger.Info().
		Str("operation", op).
		Str("artifact_id", artifact.ID).
		Int("history_len", c.history.Len()).
		Str("stage", string(next)).
		Msg("generation finished")
}

type imageCall func(ctx context.Context) (domain.ImageFile, error)

// runImage performs one image-producing backend call. prepare runs under the
// session lock, validates the stage and inputs, and captures what the call
// needs.
func (c *core) runImage(ctx context.Context, op string, next Stage, prepare func() (imageCall, error)) error {
	return c.runImageThen(ctx, op, next, prepare, nil)
}

// runImageThen is runImage with a commit hook that runs under the lock once
// the result has been recorded.
func (c *core) runImageThen(ctx context.Context, op string, next Stage, prepare func() (imageCall, error), commit func(domain.ImageFile)) error {
	c.mu.Lock()
	if err := c.checkIdleLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	call, err := prepare()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.beginLocked(op, StageLoading)
	c.mu.Unlock()

	img, err := call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.abandonedLocked(op, epoch) {
		return errAbandoned(op)
	}
	if err != nil {
		return c.failLocked(op, err)
	}
	c.succeedLocked(op, domain.NewImageArtifact(img), next)
	if commit != nil {
		commit(img)
	}
	return nil
}

// currentImageLocked returns the current artifact when it is an image.
func (c *core) currentImageLocked(op string) (domain.Artifact, error) {
	cur, ok := c.history.Current()
	if !ok || cur.Kind != domain.ArtifactKindImage {
		return domain.Artifact{}, domain.NewError(domain.ErrInvalidStage, "%s needs an image result", op)
	}
	return cur, nil
}

// refine iterates on the current image. Asset images are never sent along.
func (c *core) refine(ctx context.Context, gen genai.Generator, instruction string) error {
	return c.runImage(ctx, "refine", c.resultStage, func() (imageCall, error) {
		if c.stage != c.resultStage {
			return nil, stageError("refine", c.stage)
		}
		instruction = strings.TrimSpace(instruction)
		if instruction == "" {
			return nil, domain.NewError(domain.ErrMissingInput, "describe the change you want")
		}
		cur, err := c.currentImageLocked("refine")
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context) (domain.ImageFile, error) {
			return gen.EditImage(ctx, genai.EditRequest{Instruction: instruction, Primary: cur.Image, Iterating: true})
		}, nil
	})
}

// ApplyFilter runs the local filter editor on the current image and records
// the output as a new history entry.
func (c *core) ApplyFilter(f editor.Filters) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIdleLocked(); err != nil {
		return err
	}
	if c.stage != c.resultStage {
		return stageError("filter", c.stage)
	}
	cur, err := c.currentImageLocked("filter")
	if err != nil {
		return err
	}
	edited, err := editor.Apply(cur.Image, f)
	if err != nil {
		return err
	}
	c.notice = ""
	c.succeedLocked("filter", domain.NewImageArtifact(edited), c.resultStage)
	return nil
}

func (c *core) Undo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIdleLocked(); err != nil {
		return err
	}
	c.history.Undo()
	c.notice = ""
	return nil
}

func (c *core) Redo() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIdleLocked(); err != nil {
		return err
	}
	c.history.Redo()
	c.notice = ""
	return nil
}

func (c *core) Save() (domain.LibraryEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkIdleLocked(); err != nil {
		return domain.LibraryEntry{}, false, err
	}
	cur, ok := c.history.Current()
	if !ok {
		return domain.LibraryEntry{}, false, errNothingToSave
	}
	if entryID, done := c.saved[cur.ID]; done {
		c.notice = alreadySavedNotice
		entry, err := c.library.Get(entryID)
		return entry, false, err
	}

	entry := domain.LibraryEntry{
		Kind:       c.tool.LibraryKind(),
		ArtifactID: cur.ID,
		Result:     cur.DataURL,
		Video:      cur.VideoRef,
	}
	if c.original != nil {
		entry.Original = c.original.DataURL()
	}
	entry = c.library.Save(entry)
	c.saved[cur.ID] = entry.ID
	c.notice = "Saved to library."
	c.logger.Info().Str("artifact_id", cur.ID).Str("entry_id", entry.ID).Msg("artifact saved")
	return entry, true, nil
}

// resetLocked is the hard reset behind Start Over.
func (c *core) resetLocked() {
	c.epoch++
	c.loading = false
	c.history.Reset()
	c.saved = map[string]string{}
	c.failure = nil
	c.notice = ""
	c.original = nil
	c.stage = c.initial
	c.logger.Info().Msg("session reset")
}

func (c *core) Dismiss() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stage != StageError {
		return stageError("dismiss", c.stage)
	}
	c.failure = nil
	c.stage = c.recover()
	return nil
}

// viewLocked fills the fields common to every tool.
func (c *core) viewLocked() View {
	v := View{
		ID:         c.id,
		Tool:       c.tool,
		Stage:      c.stage,
		Loading:    c.loading,
		Cursor:     c.history.Cursor(),
		HistoryLen: c.history.Len(),
		CanUndo:    c.history.CanUndo(),
		CanRedo:    c.history.CanRedo(),
		Notice:     c.notice,
		Inputs:     map[Slot]string{},
	}
	if c.failure != nil {
		failure := *c.failure
		v.Error = &failure
	}
	if cur, ok := c.history.Current(); ok {
		v.Current = &cur
		_, v.Saved = c.saved[cur.ID]
		v.Compare = &Comparison{After: artifactRef(cur)}
		if c.history.Cursor() == 0 {
			if c.original != nil {
				v.Compare.Before = c.original.DataURL()
			}
		} else if prev, ok := c.history.Previous(); ok {
			v.Compare.Before = artifactRef(prev)
		}
	}
	return v
}

func artifactRef(a domain.Artifact) string {
	if a.Kind == domain.ArtifactKindVideo {
		return a.VideoRef
	}
	return a.DataURL
}

func setSlot(v *View, slot Slot, img *domain.ImageFile) {
	if img != nil && !img.IsZero() {
		v.Inputs[slot] = img.DataURL()
	}
}

func imagePtr(img domain.ImageFile) *domain.ImageFile {
	return &img
}

func unknownSlot(tool Tool, slot Slot) error {
	return domain.NewError(domain.ErrNotFound, "%s has no %q input", tool, slot)
}

func requireImage(img domain.ImageFile, what string) error {
	if img.IsZero() {
		return domain.NewError(domain.ErrMissingInput, "%s is required", what)
	}
	return nil
}

func describe(w Workflow) string {
	return fmt.Sprintf("%s/%s", w.Tool(), w.ID())
}
