package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"xstream/internal/controls"
	"xstream/internal/domain"
	"xstream/internal/editor"
	"xstream/internal/middleware"
	"xstream/internal/workflow"
)

type createSessionRequest struct {
	Tool string `json:"tool"`
}

func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !a.decode(w, r, &req) {
		return
	}
	tool, err := workflow.ParseTool(req.Tool)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s, err := a.Sessions.Create(r.Context(), tool, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, s.View())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, s.View())
}

// CloseSession is "back to menu": the session and its history are dropped.
func (a *App) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Close(chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type inputRequest struct {
	DataURL string `json:"data_url"`
}

func (a *App) SetInput(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req inputRequest
	if !a.decode(w, r, &req) {
		return
	}
	img, err := domain.ParseDataURL(req.DataURL)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.respond(w, r, s, s.SetInput(workflow.Slot(chi.URLParam(r, "slot")), img))
}

// ClearInput removes an upload. For the asset slot an index query
// parameter removes a single asset instead of all of them.
func (a *App) ClearInput(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	slot := workflow.Slot(chi.URLParam(r, "slot"))
	if raw := r.URL.Query().Get("index"); raw != "" && slot == workflow.SlotAsset {
		assistant, ok := s.(*workflow.CreativeAssistant)
		if !ok {
			a.fail(w, r, unsupported(s.Tool(), "asset images"))
			return
		}
		index, err := strconv.Atoi(raw)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "index must be a number")
			return
		}
		a.respond(w, r, s, assistant.RemoveAsset(index))
		return
	}
	a.respond(w, r, s, s.ClearInput(slot))
}

type controlRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (a *App) SetControl(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	assistant, ok := s.(*workflow.CreativeAssistant)
	if !ok {
		a.fail(w, r, unsupported(s.Tool(), "creative controls"))
		return
	}
	var req controlRequest
	if !a.decode(w, r, &req) {
		return
	}
	a.respond(w, r, s, assistant.SetControl(controls.Field(req.Field), req.Value))
}

type textRequest struct {
	Idea   *string `json:"idea"`
	Motion *string `json:"motion"`
	Lyrics *bool   `json:"lyrics"`
}

// SetText updates the free-text inputs: the assistant idea and lyrics
// toggle, or the animator motion description.
func (a *App) SetText(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !a.decode(w, r, &req) {
		return
	}
	var err error
	switch s := s.(type) {
	case *workflow.CreativeAssistant:
		if req.Idea != nil {
			err = s.SetIdea(*req.Idea)
		}
		if err == nil && req.Lyrics != nil {
			err = s.SetGenerateLyrics(*req.Lyrics)
		}
	case *workflow.CharacterAnimator:
		if req.Motion != nil {
			err = s.SetMotion(*req.Motion)
		}
	default:
		err = unsupported(s.Tool(), "text inputs")
	}
	a.respond(w, r, s, err)
}

func (a *App) Draft(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	assistant, ok := s.(*workflow.CreativeAssistant)
	if !ok {
		a.fail(w, r, unsupported(s.Tool(), "prompt drafting"))
		return
	}
	a.respond(w, r, s, assistant.Draft(r.Context()))
}

type generateRequest struct {
	Instruction      string `json:"instruction"`
	BackgroundPrompt string `json:"background_prompt"`
}

// Generate runs the tool's main step. The background remover cuts out the
// subject first and composites on the second call. Animation is accepted
// with 202 and runs in the background; poll the session view for progress.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	var req generateRequest
	if !a.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	var err error
	switch s := s.(type) {
	case *workflow.FaceSwap:
		err = s.Generate(ctx)
	case *workflow.ClothingSwap:
		err = s.Generate(ctx, req.Instruction)
	case *workflow.BackgroundRemover:
		switch s.View().Stage {
		case workflow.StageEditing, workflow.StageResult:
			err = s.Composite(ctx, req.BackgroundPrompt)
		default:
			err = s.Remove(ctx)
		}
	case *workflow.CreativeAssistant:
		err = s.Generate(ctx)
	case *workflow.CharacterAnimator:
		a.animate(w, r, s)
		return
	default:
		err = unsupported(s.Tool(), "generation")
	}
	a.respond(w, r, s, err)
}

func (a *App) animate(w http.ResponseWriter, r *http.Request, s *workflow.CharacterAnimator) {
	done, err := s.Start(a.background(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	logger := a.log(r).With().Str("session_id", s.ID()).Logger()
	go func() {
		if err := <-done; err != nil {
			logger.Warn().Err(err).Msg("animation finished with error")
		}
	}()
	a.json(w, http.StatusAccepted, s.View())
}

type refineRequest struct {
	Instruction string `json:"instruction"`
}

func (a *App) Refine(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	refiner, ok := s.(workflow.Refiner)
	if !ok {
		a.fail(w, r, unsupported(s.Tool(), "refinement"))
		return
	}
	var req refineRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Instruction) == "" {
		a.error(w, http.StatusBadRequest, "missing_input", "describe the change to make")
		return
	}
	a.respond(w, r, s, refiner.Refine(r.Context(), req.Instruction))
}

func (a *App) Filter(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	filterable, ok := s.(workflow.Filterable)
	if !ok {
		a.fail(w, r, unsupported(s.Tool(), "filters"))
		return
	}
	var req editor.Filters
	if !a.decode(w, r, &req) {
		return
	}
	a.respond(w, r, s, filterable.ApplyFilter(req))
}

func (a *App) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.respond(w, r, s, s.Undo())
}

func (a *App) Redo(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.respond(w, r, s, s.Redo())
}

func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	s.StartOver()
	a.respond(w, r, s, nil)
}

func (a *App) Dismiss(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	a.respond(w, r, s, s.Dismiss())
}

type saveResponse struct {
	Entry   domain.LibraryEntry `json:"entry"`
	Created bool                `json:"created"`
	View    workflow.View       `json:"view"`
}

func (a *App) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	entry, created, err := s.Save()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.json(w, status, saveResponse{Entry: entry, Created: created, View: s.View()})
}

type credentialRequest struct {
	Key string `json:"key"`
}

func (a *App) SelectCredential(w http.ResponseWriter, r *http.Request) {
	s, ok := a.session(w, r)
	if !ok {
		return
	}
	animator, ok := s.(*workflow.CharacterAnimator)
	if !ok {
		a.fail(w, r, unsupported(s.Tool(), "credential selection"))
		return
	}
	var req credentialRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		a.error(w, http.StatusBadRequest, "missing_input", "key is required")
		return
	}
	a.respond(w, r, s, animator.SelectCredential(r.Context(), strings.TrimSpace(req.Key)))
}
