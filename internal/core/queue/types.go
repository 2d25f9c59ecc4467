package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"   // Waiting for the worker
	JobStatusExecuting JobStatus = "executing" // Being processed
	JobStatusCompleted JobStatus = "completed" // Processed, Result holds the reply
	JobStatusFailed    JobStatus = "failed"    // Processing returned an error
)

// Job is one queued utterance.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Utterance string    `json:"utterance"`
	Status    JobStatus `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewJob creates a new job with pending status
func NewJob(source, utterance string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Source:    source,
		Utterance: utterance,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusExecuting},
	JobStatusExecuting: {JobStatusCompleted, JobStatusFailed},
}

// CanTransitionTo checks if a status transition is valid
func (j *Job) CanTransitionTo(newStatus JobStatus) bool {
	for _, status := range validTransitions[j.Status] {
		if status == newStatus {
			return true
		}
	}
	return false
}

// TransitionStatus updates the job status if the transition is valid
func (j *Job) TransitionStatus(newStatus JobStatus) bool {
	if !j.CanTransitionTo(newStatus) {
		return false
	}
	j.Status = newStatus
	j.UpdatedAt = time.Now()
	return true
}

// Finished reports whether the job reached a terminal status.
func (j *Job) Finished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
