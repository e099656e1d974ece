package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gh1989/nethub/internal/api/response"
	"github.com/gh1989/nethub/internal/queue"
	"github.com/gh1989/nethub/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxJobTypeLen  = 64
	maxBodyBytes   = 1 << 20
	defaultPerPage = 50
	maxPerPage     = 200
)

// JobEnqueuer is what POST /api/jobs needs from the queue.
type JobEnqueuer interface {
	EnqueueJob(ctx context.Context, job *models.Job) error
}

// JobGetter is what GET /api/jobs/{id} needs from the queue.
type JobGetter interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// JobLister is what GET /api/jobs needs from the queue.
type JobLister interface {
	GetAllJobs(ctx context.Context) ([]*models.Job, error)
}

// StatsReader is what GET /api/jobs/stats needs from the queue.
type StatsReader interface {
	Stats(ctx context.Context) (*queue.Stats, error)
}

type createJobRequest struct {
	JobType         *string `json:"jobType"`
	DurationSeconds *int    `json:"durationSeconds"`
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/jobs.
// Omitted fields take the producer defaults; an empty body is a default job.
func NewCreateJobHandler(svc JobEnqueuer, maxDuration int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		jobType := models.DefaultJobType
		if req.JobType != nil {
			if t := strings.TrimSpace(*req.JobType); t != "" {
				jobType = t
			}
		}
		duration := models.DefaultDurationSeconds
		if req.DurationSeconds != nil {
			duration = *req.DurationSeconds
		}

		details := map[string]string{}
		if utf8.RuneCountInString(jobType) > maxJobTypeLen {
			details["jobType"] = fmt.Sprintf("must be at most %d characters", maxJobTypeLen)
		}
		if duration < 0 || duration > maxDuration {
			details["durationSeconds"] = fmt.Sprintf("must be between 0 and %d", maxDuration)
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid job parameters", details)
			return
		}

		job := models.NewJob(jobType, duration)
		if err := svc.EnqueueJob(r.Context(), job); err != nil {
			writeQueueError(w, r, err)
			return
		}

		response.Created(w, "/api/jobs/"+job.ID.String(), job)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /api/jobs/{id}.
func NewGetJobHandler(svc JobGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_ID", "Job id must be a UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), id)
		if err != nil {
			writeQueueError(w, r, err)
			return
		}

		response.JSON(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /api/jobs. It lists
// the jobs still waiting in the queue, newest first, paged by the
// optional page and limit query parameters.
func NewListJobsHandler(svc JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r, "page", 1)
		if err != nil || page < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return
		}
		limit, err := queryInt(r, "limit", defaultPerPage)
		if err != nil || limit < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return
		}
		if limit > maxPerPage {
			limit = maxPerPage
		}

		jobs, err := svc.GetAllJobs(r.Context())
		if err != nil {
			writeQueueError(w, r, err)
			return
		}

		if jobs == nil {
			jobs = []*models.Job{}
		}
		total := len(jobs)
		start := total
		if page-1 < (total+limit-1)/limit {
			start = (page - 1) * limit
		}
		end := start + min(limit, total-start)

		response.Collection(w, jobs[start:end], response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: end < total,
		})
	}
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/jobs/stats.
func NewStatsHandler(svc StatsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			writeQueueError(w, r, err)
			return
		}
		response.JSON(w, st)
	}
}

func writeQueueError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found", nil)
	case errors.Is(err, queue.ErrQueueFailure):
		slog.Error("queue unavailable", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE",
			"The job queue is temporarily unavailable", nil)
	default:
		slog.Error("queue request failed", "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
