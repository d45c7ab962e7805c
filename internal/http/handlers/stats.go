package handlers

import (
	"net/http"
	"strconv"

	"github.com/aryanguptajsm/fluxora/internal/domain"
)

type jobView struct {
	ID         string `json:"id"`
	RequestID  string `json:"request_id,omitempty"`
	Backend    string `json:"backend"`
	Status     string `json:"status"`
	ImageCount int    `json:"image_count"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Country    string `json:"country,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// StatsSummary reports journal outcomes for the last 24 hours together with
// the most recent jobs. Prompts are not exposed.
func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		a.error(w, http.StatusServiceUnavailable, "generation journal is not configured")
		return
	}
	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	counts, err := a.Journal.OutcomeCounts(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats: count outcomes")
		a.error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	jobs, err := a.Journal.Recent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stats: recent jobs")
		a.error(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	recent := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		recent = append(recent, jobView{
			ID:         j.ID,
			RequestID:  j.RequestID,
			Backend:    j.Backend,
			Status:     string(j.Status),
			ImageCount: j.ImageCount,
			ErrorKind:  string(j.ErrorKind),
			Country:    j.Country,
			DurationMS: j.Duration.Milliseconds(),
			CreatedAt:  j.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	a.json(w, http.StatusOK, map[string]any{
		"succeeded_last_24h": counts[domain.JobStatusSucceeded],
		"failed_last_24h":    counts[domain.JobStatusFailed],
		"recent":             recent,
	})
}
