package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/webextract/internal/chat"
	"github.com/JakeFAU/webextract/internal/crawler"
	"github.com/JakeFAU/webextract/internal/export"
)

const maxRequestBytes = 1 << 20

type scrapeRequest struct {
	URL                string  `json:"url"`
	MaxPages           *int    `json:"max_pages"`
	CustomInstructions *string `json:"custom_instructions"`
}

type submitResponse struct {
	JobID   string            `json:"job_id"`
	Status  crawler.JobStatus `json:"status"`
	Message string            `json:"message"`
}

type jobResponse struct {
	JobID    string             `json:"job_id"`
	Status   crawler.JobStatus  `json:"status"`
	Progress int                `json:"progress"`
	Message  string             `json:"message"`
	Result   *crawler.JobResult `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type jobSummary struct {
	JobID     string            `json:"job_id"`
	URL       string            `json:"url"`
	Status    crawler.JobStatus `json:"status"`
	Progress  int               `json:"progress"`
	CreatedAt time.Time         `json:"created_at"`
}

type chatRequest struct {
	Question string `json:"question"`
}

func (s *Server) submitScrape(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, false)
}

func (s *Server) submitTestScrape(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, true)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, singlePage bool) {
	var req scrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.toJobParameters(req, singlePage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jobID, err := s.enqueueJob(r.Context(), params)
	if err != nil {
		s.logger.Error("submit job failed", zap.String("url", params.URL), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, crawler.ErrQueueFull) || errors.Is(err, crawler.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		JobID:   jobID,
		Status:  crawler.JobStatusPending,
		Message: "Job queued",
	})
}

func (s *Server) toJobParameters(req scrapeRequest, singlePage bool) (crawler.JobParameters, error) {
	target, err := crawler.ValidateTargetURL(req.URL)
	if err != nil {
		return crawler.JobParameters{}, err
	}
	params := crawler.JobParameters{
		URL:        target.String(),
		MaxPages:   s.cfg.Crawler.MaxPagesDefault,
		SinglePage: singlePage,
	}
	if req.CustomInstructions != nil {
		params.CustomInstructions = strings.TrimSpace(*req.CustomInstructions)
	}
	if singlePage {
		params.MaxPages = 1
		return params, nil
	}
	if req.MaxPages != nil {
		limit := s.cfg.Crawler.MaxPagesLimit
		if *req.MaxPages < 1 || (limit > 0 && *req.MaxPages > limit) {
			return crawler.JobParameters{}, fmt.Errorf("max_pages must be between 1 and %d", limit)
		}
		params.MaxPages = *req.MaxPages
	}
	if params.MaxPages < 1 {
		params.MaxPages = 1
	}
	return params, nil
}

func (s *Server) enqueueJob(ctx context.Context, params crawler.JobParameters) (string, error) {
	jobID, err := s.deps.IDGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.deps.Clock.Now()
	job := crawler.Job{
		ID:         jobID,
		Status:     crawler.JobStatusPending,
		Message:    "Job queued",
		Parameters: params,
		Pages:      []crawler.PageResult{},
		CreatedAt:  now,
	}
	if err := s.deps.JobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	item := crawler.QueueItem{
		JobID:     jobID,
		Params:    params,
		Submitted: now.Unix(),
	}
	if err := s.deps.Enqueuer.Enqueue(ctx, item); err != nil {
		if delErr := s.deps.JobStore.DeleteJob(context.WithoutCancel(ctx), jobID); delErr != nil {
			s.logger.Warn("remove unqueued job failed", zap.String("job_id", jobID), zap.Error(delErr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	s.logger.Info("job accepted",
		zap.String("job_id", jobID),
		zap.String("url", params.URL),
		zap.Int("max_pages", params.MaxPages),
		zap.Bool("single_page", params.SinglePage),
	)
	return jobID, nil
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.deps.JobStore.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	out := make([]jobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobSummary{
			JobID:     job.ID,
			URL:       job.Parameters.URL,
			Status:    job.Status,
			Progress:  job.Progress,
			CreatedAt: job.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	resp := jobResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
		Error:    job.Error,
	}
	if job.Status == crawler.JobStatusCompleted {
		resp.Result = job.Result
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.deps.JobStore.DeleteJob(r.Context(), jobID); err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	s.logger.Info("job deleted", zap.String("job_id", jobID))
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "deleted": true})
}

func (s *Server) exportJSON(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	pretty, _ := strconv.ParseBool(r.URL.Query().Get("pretty"))
	data, err := export.JSON(job, s.deps.Clock.Now(), pretty)
	if err != nil {
		writeExportError(w, err)
		return
	}
	writeAttachment(w, export.ContentTypeJSON, export.FileName(job.ID, "json"), data)
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	data, err := export.CSV(job)
	if err != nil {
		writeExportError(w, err)
		return
	}
	writeAttachment(w, export.ContentTypeCSV+"; charset=utf-8", export.FileName(job.ID, "csv"), data)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if s.deps.Answerer == nil {
		writeError(w, http.StatusServiceUnavailable, crawler.ErrTextGenerationUnavailable.Error())
		return
	}
	answer, err := s.deps.Answerer.Answer(r.Context(), job, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, crawler.ErrJobNotCompleted):
			writeError(w, http.StatusConflict, "job is not completed")
		case errors.Is(err, crawler.ErrTextGenerationUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			s.logger.Warn("chat failed", zap.String("job_id", job.ID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "failed to generate answer")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) loadJob(w http.ResponseWriter, r *http.Request) (crawler.Job, bool) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.deps.JobStore.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, crawler.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return crawler.Job{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return crawler.Job{}, false
	}
	return job, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, crawler.ErrJobNotCompleted) {
		writeError(w, http.StatusConflict, "job is not completed")
		return
	}
	writeError(w, http.StatusInternalServerError, "export failed")
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Error("write attachment failed", zap.Error(err))
	}
}
