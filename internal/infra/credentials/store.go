package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"xstream/internal/infra"
	"xstream/internal/sqlinline"
)

const (
	// ProviderGemini holds the ambient credential used by every backend call.
	ProviderGemini = "gemini"
	// ProviderGeminiVideo holds the user-selected, billing-enabled credential
	// required for video generation.
	ProviderGeminiVideo = "gemini-video"
)

// TokenStore persists credentials by provider.
type TokenStore interface {
	Token(ctx context.Context, provider string) (string, error)
	SetToken(ctx context.Context, provider, token string) error
	DeleteToken(ctx context.Context, provider string) error
}

// Store keeps credentials in the integration_tokens table.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " api key is required")
	}
	raw, err := json.Marshal(map[string]any{"source": "user"})
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

func (s *Store) DeleteToken(ctx context.Context, provider string) error {
	_, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider)
	return err
}

// MemoryStore keeps credentials for the lifetime of the process. It is used
// when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: map[string]string{}}
}

func (m *MemoryStore) Token(_ context.Context, provider string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[provider], nil
}

func (m *MemoryStore) SetToken(_ context.Context, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(provider + " api key is required")
	}
	m.mu.Lock()
	m.tokens[provider] = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteToken(_ context.Context, provider string) error {
	m.mu.Lock()
	delete(m.tokens, provider)
	m.mu.Unlock()
	return nil
}

var (
	_ TokenStore = (*Store)(nil)
	_ TokenStore = (*MemoryStore)(nil)
)
