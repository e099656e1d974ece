// Package models contains shared data models used across the NetHub codebase.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "Queued"
	JobStatusRunning   JobStatus = "Running"
	JobStatusCompleted JobStatus = "Completed"
	JobStatusFailed    JobStatus = "Failed"
)

// Defaults applied by producers when a request leaves a field empty.
const (
	DefaultJobType         = "Simulation"
	DefaultDurationSeconds = 10
)

// Valid reports whether s is one of the four known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is Completed or Failed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo reports whether a job in status s may be moved to next.
// Status only advances along Queued -> Running -> {Completed, Failed}; a
// Queued job may skip straight to a terminal status. Writing the current
// status again is allowed so retried updates stay idempotent.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	switch s {
	case JobStatusQueued:
		return next != JobStatusQueued
	case JobStatusRunning:
		return next.IsTerminal()
	}
	return false
}

// ParseJobStatus converts a user supplied string into a JobStatus.
func ParseJobStatus(v string) (JobStatus, error) {
	s := JobStatus(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown job status %q", v)
	}
	return s, nil
}

// Job is a unit of simulated compute work. Producers create it with NewJob;
// the queue stores it as JSON under jobs:data:<id> and workers advance its
// Status until it reaches Completed or Failed.
type Job struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Status          JobStatus `json:"status"`
	JobType         string    `json:"jobType"`
	DurationSeconds int       `json:"durationSeconds"`
}

// NewJob returns a Queued job with a fresh id and creation time.
func NewJob(jobType string, durationSeconds int) *Job {
	return &Job{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		Status:          JobStatusQueued,
		JobType:         jobType,
		DurationSeconds: durationSeconds,
	}
}

// Duration is the simulated workload length for a given time unit.
func (j *Job) Duration(unit time.Duration) time.Duration {
	if j.DurationSeconds <= 0 {
		return 0
	}
	return time.Duration(j.DurationSeconds) * unit
}
