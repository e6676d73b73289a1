// Package library holds artifacts saved during the application session.
// Entries live in memory and disappear when the process exits.
package library

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"xstream/internal/domain"
)

// Library is an append-only collection shared by every workflow. Callers are
// responsible for not saving the same artifact twice.
type Library struct {
	mu      sync.RWMutex
	entries []domain.LibraryEntry
}

// New returns an empty library.
func New() *Library {
	return &Library{}
}

// Save appends entry, assigning an ID and timestamp when missing.
func (l *Library) Save(entry domain.LibraryEntry) domain.LibraryEntry {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return entry
}

// List returns entries most-recent-first.
func (l *Library) List() []domain.LibraryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.LibraryEntry, len(l.entries))
	for i, entry := range l.entries {
		out[len(l.entries)-1-i] = entry
	}
	return out
}

// Get looks an entry up by ID.
func (l *Library) Get(id string) (domain.LibraryEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, entry := range l.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return domain.LibraryEntry{}, domain.ErrNotFound
}

// Len reports the number of saved entries.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
