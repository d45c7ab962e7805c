package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

type stubBackend struct {
	calls   int
	last    image.Request
	result  domain.GenerationResult
	panicky bool
}

func (s *stubBackend) Name() string             { return "stub" }
func (s *stubBackend) Strategy() image.Strategy { return image.StrategySyncSubscribe }
func (s *stubBackend) Generate(_ context.Context, req image.Request) domain.GenerationResult {
	s.calls++
	s.last = req
	if s.panicky {
		panic("boom")
	}
	return s.result
}

type stubKeys struct {
	key string
	err error
}

func (s stubKeys) APIKey(context.Context) (string, error) { return s.key, s.err }

type memJournal struct {
	jobs   []domain.Job
	err    error
	counts map[domain.JobStatus]int64
}

func (m *memJournal) Create(_ context.Context, job *domain.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, *job)
	return nil
}

func (m *memJournal) Recent(_ context.Context, limit int) ([]domain.Job, error) {
	if limit < len(m.jobs) {
		return m.jobs[:limit], nil
	}
	return m.jobs, nil
}

func (m *memJournal) OutcomeCounts(context.Context) (map[domain.JobStatus]int64, error) {
	return m.counts, nil
}

func postGenerate(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate-image", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.GenerateImage(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestGenerateImageRejectsMissingPrompt(t *testing.T) {
	for _, body := range []string{`{}`, `{"prompt":""}`, `{"prompt":"   "}`, `not json`, ``} {
		backend := &stubBackend{}
		app := NewApp(backend, stubKeys{key: "k"}, nil, nil)
		rec := postGenerate(t, app, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, rec.Code)
		}
		if got := decodeBody(t, rec)["error"]; got != domain.MsgPromptRequired {
			t.Fatalf("body %q: error = %v", body, got)
		}
		if backend.calls != 0 {
			t.Fatalf("body %q: backend called", body)
		}
	}
}

func TestGenerateImageMissingKey(t *testing.T) {
	for _, keys := range []stubKeys{
		{},
		{err: fmt.Errorf("%w: fal", domain.ErrMissingAPIKey)},
		{err: errors.New("store down")},
	} {
		backend := &stubBackend{}
		app := NewApp(backend, keys, nil, nil)
		rec := postGenerate(t, app, `{"prompt":"a cat"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if got := decodeBody(t, rec)["error"]; got != domain.MsgAPIKeyMissing {
			t.Fatalf("error = %v", got)
		}
		if backend.calls != 0 {
			t.Fatal("upstream must not be contacted without a key")
		}
	}
}

func TestGenerateImageSuccess(t *testing.T) {
	backend := &stubBackend{result: domain.Success([]domain.ImageRef{{URL: "https://x/1.png"}}).WithRequestID("req-9")}
	journal := &memJournal{}
	app := NewApp(backend, stubKeys{key: "secret"}, journal, nil)

	rec := postGenerate(t, app, `{"prompt":"  a red fox  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Images) != 1 || resp.Images[0].URL != "https://x/1.png" || resp.RequestID != "req-9" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if backend.last.Prompt != "a red fox" || backend.last.APIKey != "secret" {
		t.Fatalf("backend got %+v", backend.last)
	}
	if len(journal.jobs) != 1 || journal.jobs[0].Status != domain.JobStatusSucceeded || journal.jobs[0].ImageCount != 1 {
		t.Fatalf("journal = %+v", journal.jobs)
	}
}

func TestGenerateImageEmptyListIsSuccess(t *testing.T) {
	backend := &stubBackend{result: domain.Success(nil)}
	app := NewApp(backend, stubKeys{key: "k"}, nil, nil)
	rec := postGenerate(t, app, `{"prompt":"nothing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"images":[]`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGenerateImageFailureMapping(t *testing.T) {
	cases := []struct {
		name   string
		result domain.GenerationResult
		status int
		msg    string
	}{
		{"rate limited", domain.Failure(domain.KindRateLimited, domain.MsgRateLimited), http.StatusTooManyRequests, domain.MsgRateLimited},
		{"payment", domain.Failure(domain.KindPaymentRequired, domain.MsgPaymentRequired), http.StatusPaymentRequired, domain.MsgPaymentRequired},
		{"timeout", domain.Failure(domain.KindTimeout, "Request timed out after 2 minutes"), http.StatusInternalServerError, "Request timed out after 2 minutes"},
		{"upstream", domain.Failure(domain.KindUpstream, "Fal.ai API error: 503"), http.StatusInternalServerError, "Fal.ai API error: 503"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			journal := &memJournal{}
			app := NewApp(&stubBackend{result: tc.result}, stubKeys{key: "k"}, journal, nil)
			rec := postGenerate(t, app, `{"prompt":"p"}`)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if got := decodeBody(t, rec)["error"]; got != tc.msg {
				t.Fatalf("error = %v, want %q", got, tc.msg)
			}
			if len(journal.jobs) != 1 || journal.jobs[0].Status != domain.JobStatusFailed {
				t.Fatalf("journal = %+v", journal.jobs)
			}
		})
	}
}

func TestGenerateImageBackendPanic(t *testing.T) {
	app := NewApp(&stubBackend{panicky: true}, stubKeys{key: "k"}, nil, nil)
	rec := postGenerate(t, app, `{"prompt":"p"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != domain.MsgGenerationFailed {
		t.Fatalf("error = %v", got)
	}
}

func TestGenerateImageJournalFailureDoesNotAffectResponse(t *testing.T) {
	app := NewApp(&stubBackend{result: domain.Success([]domain.ImageRef{{URL: "u"}})}, stubKeys{key: "k"}, &memJournal{err: errors.New("db down")}, nil)
	rec := postGenerate(t, app, `{"prompt":"p"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatsSummary(t *testing.T) {
	app := NewApp(&stubBackend{}, stubKeys{}, nil, nil)
	rec := httptest.NewRecorder()
	app.StatsSummary(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without journal = %d", rec.Code)
	}

	journal := &memJournal{
		counts: map[domain.JobStatus]int64{domain.JobStatusSucceeded: 3, domain.JobStatusFailed: 1},
		jobs: []domain.Job{
			{ID: "a", Backend: "fal-queue", Status: domain.JobStatusSucceeded, Prompt: "secret prompt", Duration: 1500 * time.Millisecond},
			{ID: "b", Backend: "fal-queue", Status: domain.JobStatusFailed, ErrorKind: domain.KindTimeout},
		},
	}
	app = NewApp(&stubBackend{}, stubKeys{}, journal, nil)
	rec = httptest.NewRecorder()
	app.StatsSummary(rec, httptest.NewRequest(http.MethodGet, "/v1/stats?limit=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["succeeded_last_24h"].(float64) != 3 || body["failed_last_24h"].(float64) != 1 {
		t.Fatalf("counts = %v", body)
	}
	recent := body["recent"].([]any)
	if len(recent) != 1 {
		t.Fatalf("recent = %v", recent)
	}
	if strings.Contains(rec.Body.String(), "secret prompt") {
		t.Fatal("prompts must not be exposed")
	}
	if recent[0].(map[string]any)["duration_ms"].(float64) != 1500 {
		t.Fatalf("duration = %v", recent[0])
	}
}

func TestHealth(t *testing.T) {
	app := NewApp(&stubBackend{}, stubKeys{}, nil, nil)
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	body := decodeBody(t, rec)
	if body["status"] != "ok" || body["backend"] != "stub" || body["strategy"] != string(image.StrategySyncSubscribe) {
		t.Fatalf("body = %v", body)
	}
}
