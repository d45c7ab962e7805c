package domain

import "time"

// JobStatus enumerates the terminal states recorded for a proxy invocation.
type JobStatus string

const (
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the journal record of one proxy invocation.
type Job struct {
	ID           string
	RequestID    string
	Backend      string
	Strategy     string
	Prompt       string
	Status       JobStatus
	ImageCount   int
	ErrorKind    ErrorKind
	ErrorMessage string
	Country      string
	Duration     time.Duration
	CreatedAt    time.Time
}

// NewJob derives a journal record from a finished generation.
func NewJob(id, backend, strategy, prompt string, res GenerationResult, took time.Duration) Job {
	job := Job{
		ID:         id,
		RequestID:  res.RequestID,
		Backend:    backend,
		Strategy:   strategy,
		Prompt:     prompt,
		Status:     JobStatusSucceeded,
		ImageCount: len(res.Images),
		Duration:   took,
		CreatedAt:  time.Now().UTC(),
	}
	if !res.Succeeded() {
		job.Status = JobStatusFailed
		job.ErrorKind = res.Kind
		job.ErrorMessage = res.Message
	}
	return job
}
