package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/sqlinline"
)

// Provider identifiers stored in integration_tokens.provider.
const (
	ProviderFal     = "fal"
	ProviderOpenAI  = "openai"
	ProviderGateway = "gateway"
	ProviderGemini  = "gemini"
	ProviderQwen    = "qwen"
)

// EnvVars maps each provider to the environment variable holding its key.
var EnvVars = map[string]string{
	ProviderFal:     "FAL_KEY",
	ProviderOpenAI:  "OPENAI_API_KEY",
	ProviderGateway: "GATEWAY_API_KEY",
	ProviderGemini:  "GEMINI_API_KEY",
	ProviderQwen:    "DASHSCOPE_API_KEY",
}

// Store reads and writes provider API keys kept in Postgres.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// Token returns the stored key for provider, or "" when none was saved.
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

// SetToken upserts the key for a known provider.
func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := EnvVars[provider]; !ok {
		return fmt.Errorf("unknown provider %q", provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New(provider + " api key is required")
	}
	return s.upsert(ctx, provider, key, map[string]any{"source": "providerkey"})
}

// DeleteToken removes the stored key and reports whether one existed.
func (s *Store) DeleteToken(ctx context.Context, provider string) (bool, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := EnvVars[provider]; !ok {
		return false, fmt.Errorf("unknown provider %q", provider)
	}
	tag, err := s.sql.Exec(ctx, sqlinline.QDeleteIntegrationToken, provider)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

// Resolver looks up a provider key at call time: the environment first, then
// the optional store.
type Resolver struct {
	Provider string
	Store    *Store
	Getenv   func(string) string
}

// NewResolver builds a resolver for provider. store may be nil.
func NewResolver(provider string, store *Store) *Resolver {
	return &Resolver{Provider: provider, Store: store, Getenv: os.Getenv}
}

// APIKey returns the key for the provider. When neither the environment nor
// the store holds one it returns an error wrapping domain.ErrMissingAPIKey.
func (r *Resolver) APIKey(ctx context.Context) (string, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if name, ok := EnvVars[r.Provider]; ok {
		if key := strings.TrimSpace(getenv(name)); key != "" {
			return key, nil
		}
	}
	if r.Store == nil {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingAPIKey, r.Provider)
	}
	key, err := r.Store.Token(ctx, r.Provider)
	if err != nil {
		return "", fmt.Errorf("load %s key: %w", r.Provider, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingAPIKey, r.Provider)
	}
	return key, nil
}
