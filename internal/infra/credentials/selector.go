package credentials

import (
	"context"
	"strings"
)

// KeySelector is the credential-selection capability used by the character
// animator. A nil KeySelector means the host offers no selection and video
// calls use the ambient credential.
type KeySelector interface {
	// HasSelectedKey reports whether a video credential has been chosen.
	HasSelectedKey(ctx context.Context) (bool, error)
	// SelectedKey returns the chosen credential, or "" when none is set.
	SelectedKey(ctx context.Context) (string, error)
	// SelectKey records a newly chosen credential.
	SelectKey(ctx context.Context, key string) error
	// ResetSelection forgets the credential after the backend rejected it.
	ResetSelection(ctx context.Context) error
}

// StoreSelector implements KeySelector on top of a TokenStore.
type StoreSelector struct {
	store TokenStore
}

func NewStoreSelector(store TokenStore) *StoreSelector {
	return &StoreSelector{store: store}
}

func (s *StoreSelector) HasSelectedKey(ctx context.Context) (bool, error) {
	key, err := s.SelectedKey(ctx)
	return key != "", err
}

func (s *StoreSelector) SelectedKey(ctx context.Context) (string, error) {
	key, err := s.store.Token(ctx, ProviderGeminiVideo)
	return strings.TrimSpace(key), err
}

func (s *StoreSelector) SelectKey(ctx context.Context, key string) error {
	return s.store.SetToken(ctx, ProviderGeminiVideo, key)
}

func (s *StoreSelector) ResetSelection(ctx context.Context) error {
	return s.store.DeleteToken(ctx, ProviderGeminiVideo)
}

var _ KeySelector = (*StoreSelector)(nil)
