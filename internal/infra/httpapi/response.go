package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	OK          bool `json:"ok"`
	ModelLoaded bool `json:"modelLoaded"`
}

type JobResponse struct {
	ID            string          `json:"job_id"`
	UserID        string          `json:"user_id"`
	Status        string          `json:"status"`
	VideoKey      string          `json:"video_key"`
	ResultKey     string          `json:"result_key,omitempty"`
	ArchiveKey    string          `json:"archive_key,omitempty"`
	VideoDuration float64         `json:"video_duration_sec,omitempty"`
	Attempt       int             `json:"attempt"`
	MaxAttempts   int             `json:"max_attempts"`
	Error         string          `json:"error,omitempty"`
	Summary       *entity.Summary `json:"analysis_summary,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

func newJobResponse(job *entity.Job, samplingRate float64) JobResponse {
	resp := JobResponse{
		ID:            job.ID.String(),
		UserID:        job.UserID,
		Status:        string(job.Status),
		VideoKey:      job.VideoKey,
		ResultKey:     job.ResultKey,
		ArchiveKey:    job.ArchiveKey,
		VideoDuration: job.VideoDuration,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
		Error:         job.ErrorMessage,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		CompletedAt:   job.CompletedAt,
	}
	if job.Status == entity.JobStatusCompleted {
		s := entity.Summary{TotalFrames: job.FrameCount, FaceFrames: job.FaceFrameCount}
		if samplingRate > 0 {
			s.DurationSec = float64(job.FrameCount) / samplingRate
		}
		resp.Summary = &s
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
