package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/oenmin/affect-analyzer/internal/usecase"
	"go.uber.org/zap"
)

// UploadField is the multipart field carrying the video.
const UploadField = "videoFile"

// multipart parts beyond this size spill to temp files.
const maxMemory = 32 << 20

type JobSubmitter interface {
	Submit(ctx context.Context, in usecase.SubmitJobInput) (*entity.Job, error)
}

type JobReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	OpenResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)
}

type Config struct {
	TempDir        string
	MaxUploadBytes int64
	SamplingRate   float64
}

type Handler struct {
	cfg       Config
	analyzer  usecase.VideoAnalyzer
	readiness port.ModelReadiness
	submitter JobSubmitter
	jobs      JobReader
	logger    *zap.Logger
}

func NewHandler(cfg Config, analyzer usecase.VideoAnalyzer, readiness port.ModelReadiness, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, analyzer: analyzer, readiness: readiness, logger: logger}
}

// WithJobs enables the asynchronous job routes.
func (h *Handler) WithJobs(submitter JobSubmitter, jobs JobReader) *Handler {
	h.submitter = submitter
	h.jobs = jobs
	return h
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recoverMiddleware, h.logMiddleware)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.handleUpload).Methods(http.MethodPost)

	if h.submitter != nil && h.jobs != nil {
		r.HandleFunc("/jobs", h.handleSubmitJob).Methods(http.MethodPost)
		r.HandleFunc("/jobs/{id}", h.handleGetJob).Methods(http.MethodGet)
		r.HandleFunc("/jobs/{id}/result", h.handleGetResult).Methods(http.MethodGet)
	}
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{OK: true, ModelLoaded: h.readiness.Ready()})
}

// handleUpload runs the whole pipeline synchronously and answers with the
// AnalysisRun as a JSON array.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	defer removeMultipart(r, h.logger)
	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if !h.readiness.Ready() {
		sendErrorResponse(w, "model_not_ready", "Model not loaded yet, try again shortly.", http.StatusServiceUnavailable)
		return
	}

	workDir := filepath.Join(h.cfg.TempDir, uuid.NewString())
	defer os.RemoveAll(workDir)

	log := h.logger.With(zap.String("upload", header.Filename), zap.String("work_dir", workDir))

	videoPath, framesDir, err := stageUpload(file, header, workDir)
	if err != nil {
		log.Error("failed to store upload", zap.Error(err))
		sendErrorResponse(w, "internal_error", "internal error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	analysis, err := h.analyzer.Execute(r.Context(), videoPath, framesDir, nil)
	if err != nil {
		log.Error("video analysis failed", zap.Error(err))
		sendErrorResponse(w, "internal_error", "internal error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info("upload analyzed", zap.Int("frames", len(analysis.Run)))
	writeJSON(w, http.StatusOK, analysis.Run)
}

func (h *Handler) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	defer removeMultipart(r, h.logger)
	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	job, err := h.submitter.Submit(r.Context(), usecase.SubmitJobInput{
		UserID:      r.FormValue("user_id"),
		UserEmail:   r.FormValue("email"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Video:       file,
	})
	if err != nil {
		h.logger.Error("job submission failed", zap.Error(err))
		sendErrorResponse(w, "internal_error", "internal error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/jobs/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, newJobResponse(job, h.cfg.SamplingRate))
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(job, h.cfg.SamplingRate))
}

func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := jobID(w, r)
	if !ok {
		return
	}

	rc, err := h.jobs.OpenResult(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("result stream interrupted", zap.String("job_id", id.String()), zap.Error(err))
	}
}

func (h *Handler) jobError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, port.ErrJobNotFound):
		sendErrorResponse(w, "job_not_found", "No job with that id.", http.StatusNotFound)
	case errors.Is(err, usecase.ErrJobNotCompleted):
		sendErrorResponse(w, "job_not_completed", err.Error(), http.StatusConflict)
	default:
		h.logger.Error("job lookup failed", zap.Error(err))
		sendErrorResponse(w, "internal_error", "internal error: "+err.Error(), http.StatusInternalServerError)
	}
}

// formFile parses the multipart body and returns the uploaded video. On
// failure it has already written the response.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendErrorResponse(w, "file_too_large", fmt.Sprintf("Upload exceeds %d bytes.", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return nil, nil, false
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return nil, nil, false
		}
	}

	file, header, err := r.FormFile(UploadField)
	if err != nil {
		sendErrorResponse(w, "missing_file", "No file uploaded.", http.StatusBadRequest)
		return nil, nil, false
	}
	return file, header, true
}

// removeMultipart deletes the temp files ParseMultipartForm spilled to disk.
func removeMultipart(r *http.Request, logger *zap.Logger) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logger.Warn("failed to remove multipart temp files", zap.Error(err))
	}
}

func stageUpload(src io.Reader, header *multipart.FileHeader, workDir string) (string, string, error) {
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create work dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	videoPath := filepath.Join(workDir, "input"+ext)
	dst, err := os.Create(videoPath)
	if err != nil {
		return "", "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", "", fmt.Errorf("close upload file: %w", err)
	}
	return videoPath, framesDir, nil
}

func jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		sendErrorResponse(w, "invalid_job_id", "Job id must be a UUID.", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				h.logger.Error("panic in handler", zap.Any("panic", rv), zap.String("path", r.URL.Path))
				sendErrorResponse(w, "internal_error", fmt.Sprintf("internal error: %v", rv), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
