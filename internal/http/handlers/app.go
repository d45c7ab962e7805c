package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

// KeyResolver supplies the upstream API key for one invocation.
type KeyResolver interface {
	APIKey(ctx context.Context) (string, error)
}

// Journal records finished generations. It is optional.
type Journal interface {
	Create(ctx context.Context, job *domain.Job) error
	Recent(ctx context.Context, limit int) ([]domain.Job, error)
	OutcomeCounts(ctx context.Context) (map[domain.JobStatus]int64, error)
}

type App struct {
	Backend image.Backend
	Keys    KeyResolver
	Journal Journal
	Logger  *infra.Logger
	// GenerateTimeout bounds one backend call. Zero leaves it to the backend.
	GenerateTimeout time.Duration

	journalTimeout time.Duration
	timeoutGrace   time.Duration
	now            func() time.Time
}

func NewApp(backend image.Backend, keys KeyResolver, journal Journal, logger *infra.Logger) *App {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &App{
		Backend:        backend,
		Keys:           keys,
		Journal:        journal,
		Logger:         logger,
		journalTimeout: 5 * time.Second,
		timeoutGrace:   250 * time.Millisecond,
		now:            time.Now,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}
