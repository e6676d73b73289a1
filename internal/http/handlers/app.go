// Package handlers exposes the workflow sessions and the library over
// JSON. Sessions are addressed by id; every mutating call answers with the
// session view so clients never track stage transitions themselves.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"xstream/internal/controls"
	"xstream/internal/domain"
	"xstream/internal/infra"
	"xstream/internal/storage"
	"xstream/internal/workflow"
)

// maxBodyBytes bounds request bodies; uploads arrive as base64 data URLs.
const maxBodyBytes = 32 << 20

type App struct {
	Sessions *workflow.Registry
	Blobs    storage.BlobStore
	Catalog  controls.Catalog
	Logger   *infra.Logger
	// Background is the parent context for work that outlives a request,
	// such as video jobs. Defaults to context.Background.
	Background context.Context
}

func NewApp(sessions *workflow.Registry, blobs storage.BlobStore, logger *infra.Logger) *App {
	return &App{
		Sessions:   sessions,
		Blobs:      blobs,
		Catalog:    controls.DefaultCatalog(),
		Logger:     logger,
		Background: context.Background(),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// fail maps err onto the HTTP error envelope.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		a.log(r).Error().Err(err).Str("code", code).Msg("request failed")
	}
	a.error(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, controls.ErrAspectLocked):
		return http.StatusConflict, "aspect_locked"
	case errors.Is(err, controls.ErrInvalidOption), errors.Is(err, controls.ErrUnknownField):
		return http.StatusBadRequest, "invalid_option"
	case errors.Is(err, context.Canceled):
		return 499, "cancelled"
	}
	switch domain.KindOf(err) {
	case domain.ErrBusy:
		return http.StatusConflict, "busy"
	case domain.ErrInvalidStage:
		return http.StatusConflict, "invalid_stage"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrMissingInput:
		return http.StatusBadRequest, "missing_input"
	case domain.ErrLocalIO:
		return http.StatusBadRequest, "local_io"
	case domain.ErrConfiguration:
		return http.StatusServiceUnavailable, "configuration"
	case domain.ErrCredentialRejected:
		return http.StatusForbidden, "credential_rejected"
	case domain.ErrEmptyResult:
		return http.StatusBadGateway, "empty_result"
	}
	return http.StatusBadGateway, "backend"
}

// respond answers with the session view. A StageFailure is not an HTTP
// error: the view already carries the error panel.
func (a *App) respond(w http.ResponseWriter, r *http.Request, s workflow.Workflow, err error) {
	var failure *workflow.StageFailure
	if err != nil && !errors.As(err, &failure) {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.View())
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (workflow.Workflow, bool) {
	s, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return s, true
}

func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return infra.LoggerOrDiscard(a.Logger)
}

func (a *App) background(r *http.Request) context.Context {
	parent := a.Background
	if parent == nil {
		parent = context.Background()
	}
	return zerolog.Ctx(r.Context()).WithContext(parent)
}

func unsupported(tool workflow.Tool, op string) error {
	return domain.NewError(domain.ErrInvalidStage, "%s does not support %s", tool.LibraryKind(), op)
}
