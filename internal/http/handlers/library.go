package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"xstream/internal/controls"
	"xstream/internal/middleware"
	"xstream/internal/storage"
	"xstream/internal/workflow"
)

// ListLibrary returns saved results, most recent first.
func (a *App) ListLibrary(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"items": a.Sessions.Library().List()})
}

func (a *App) ExportLibrary(w http.ResponseWriter, r *http.Request) {
	archive, err := a.Sessions.Library().Export(r.Context(), a.Blobs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=xstream-library-%s.zip", time.Now().UTC().Format("20060102-150405")))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

type handoffRequest struct {
	Tool string `json:"tool"`
}

// Handoff opens a new session for the requested tool seeded with a saved
// library result.
func (a *App) Handoff(w http.ResponseWriter, r *http.Request) {
	var req handoffRequest
	if !a.decode(w, r, &req) {
		return
	}
	tool, err := workflow.ParseTool(req.Tool)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s, err := a.Sessions.Handoff(r.Context(), chi.URLParam(r, "id"), tool, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, s.View())
}

// Blob serves a materialised video.
func (a *App) Blob(w http.ResponseWriter, r *http.Request) {
	if a.Blobs == nil {
		a.error(w, http.StatusNotFound, "not_found", "no blob storage configured")
		return
	}
	data, mime, err := a.Blobs.Get(r.Context(), storage.NormalizeRef(chi.URLParam(r, "id")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type controlOptions struct {
	Field   controls.Field `json:"field"`
	Default string         `json:"default"`
	Options []string       `json:"options"`
}

// Controls lists the creative control options in display order.
func (a *App) Controls(w http.ResponseWriter, r *http.Request) {
	items := make([]controlOptions, 0, len(controls.Fields))
	for _, field := range controls.Fields {
		items = append(items, controlOptions{
			Field:   field,
			Default: a.Catalog.Default(field),
			Options: a.Catalog[field],
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
