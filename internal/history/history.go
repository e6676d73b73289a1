// Package history implements the linear undo/redo sequence of artifacts
// owned by one workflow session.
package history

import "xstream/internal/domain"

// History is a linear version list with a cursor. The cursor is -1 exactly
// when the list is empty. Appending after an undo discards the redo tail.
type History struct {
	items  []domain.Artifact
	cursor int
}

// New returns an empty history.
func New() *History {
	return &History{cursor: -1}
}

// Append truncates everything after the cursor and adds a at the tail.
func (h *History) Append(a domain.Artifact) {
	h.items = append(h.items[:h.cursor+1], a)
	h.cursor = len(h.items) - 1
}

// Undo moves the cursor back one entry. It is a no-op at the first entry.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	return true
}

// Redo moves the cursor forward one entry. It is a no-op at the tail.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	return true
}

// JumpToLatest moves the cursor to the tail.
func (h *History) JumpToLatest() {
	h.cursor = len(h.items) - 1
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.items)-1 }

// Current returns the entry under the cursor.
func (h *History) Current() (domain.Artifact, bool) {
	if h.cursor < 0 {
		return domain.Artifact{}, false
	}
	return h.items[h.cursor], true
}

// Previous returns the entry immediately before the cursor, which is what the
// current entry is compared against. It reports false at the first entry.
func (h *History) Previous() (domain.Artifact, bool) {
	if h.cursor < 1 {
		return domain.Artifact{}, false
	}
	return h.items[h.cursor-1], true
}

// Reset empties the history.
func (h *History) Reset() {
	h.items = nil
	h.cursor = -1
}

func (h *History) Cursor() int { return h.cursor }

func (h *History) Len() int { return len(h.items) }

// Items returns a copy of the entries.
func (h *History) Items() []domain.Artifact {
	out := make([]domain.Artifact, len(h.items))
	copy(out, h.items)
	return out
}
