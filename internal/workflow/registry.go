package workflow

import (
	"context"
	"sync"

	"xstream/internal/domain"
	"xstream/internal/infra"
	"xstream/internal/library"
)

// Registry tracks open sessions. Closing a session (back to menu) drops it.
type Registry struct {
	deps   Deps
	logger *infra.Logger

	mu       sync.RWMutex
	sessions map[string]Workflow
}

func NewRegistry(deps Deps) *Registry {
	if deps.Library == nil {
		deps.Library = library.New()
	}
	return &Registry{
		deps:     deps,
		logger:   infra.LoggerOrDiscard(deps.Logger),
		sessions: map[string]Workflow{},
	}
}

// Library returns the library shared by every session.
func (r *Registry) Library() *library.Library {
	return r.deps.Library
}

// Create opens a new session for tool. locale selects the language of
// generated text where the tool produces any.
func (r *Registry) Create(ctx context.Context, tool Tool, locale string) (Workflow, error) {
	var w Workflow
	switch tool {
	case ToolFaceSwap:
		w = NewFaceSwap(r.deps)
	case ToolClothingSwap:
		w = NewClothingSwap(r.deps)
	case ToolBackgroundRemover:
		w = NewBackgroundRemover(r.deps)
	case ToolCreativeAssistant:
		w = NewCreativeAssistant(r.deps, locale)
	case ToolCharacterAnimator:
		animator := NewCharacterAnimator(r.deps)
		if err := animator.Open(ctx); err != nil {
			return nil, err
		}
		w = animator
	default:
		return nil, domain.NewError(domain.ErrNotFound, "unknown tool %q", tool)
	}

	r.mu.Lock()
	r.sessions[w.ID()] = w
	r.mu.Unlock()
	r.logger.Info().Str("session_id", w.ID()).Str("tool", string(tool)).Msg("session opened")
	return w, nil
}

func (r *Registry) Get(id string) (Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.sessions[id]
	if !ok {
		return nil, domain.NewError(domain.ErrNotFound, "session %q not found", id)
	}
	return w, nil
}

// Close abandons a session. A generation still running for it finishes in
// the background and its result is dropped.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	w, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return domain.NewError(domain.ErrNotFound, "session %q not found", id)
	}
	w.StartOver()
	r.logger.Info().Str("session", describe(w)).Msg("session closed")
	return nil
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Handoff opens a session for tool seeded with a saved library result, as
// if the image had just been uploaded.
func (r *Registry) Handoff(ctx context.Context, entryID string, tool Tool, locale string) (Workflow, error) {
	entry, err := r.deps.Library.Get(entryID)
	if err != nil {
		return nil, domain.NewError(domain.ErrNotFound, "library entry %q not found", entryID)
	}
	img, err := domain.ParseDataURL(entry.Result)
	if err != nil {
		return nil, err
	}
	w, err := r.Create(ctx, tool, locale)
	if err != nil {
		return nil, err
	}
	if err := w.Seed(img); err != nil {
		_ = r.Close(w.ID())
		return nil, err
	}
	r.logger.Info().Str("entry_id", entryID).Str("session", describe(w)).Msg("library entry handed off")
	return w, nil
}
