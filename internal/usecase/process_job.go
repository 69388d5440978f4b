package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/oenmin/affect-analyzer/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// VideoAnalyzer runs the full frame pipeline over a local video file.
type VideoAnalyzer interface {
	Execute(ctx context.Context, videoPath, framesDir string, progress ProgressFunc) (*VideoAnalysis, error)
}

type ProcessJobUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	analyzer  VideoAnalyzer
	archiver  port.FrameArchiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
	archive   bool
}

type ProcessJobConfig struct {
	TempDir       string
	MaxRetries    int
	ArchiveFrames bool
}

func NewProcessJobUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	analyzer VideoAnalyzer,
	archiver port.FrameArchiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessJobConfig,
) *ProcessJobUseCase {
	return &ProcessJobUseCase{
		repo:      repo,
		storage:   storage,
		analyzer:  analyzer,
		archiver:  archiver,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
		archive:   cfg.ArchiveFrames,
	}
}

// Execute handles one analysis.requested message. A nil return acks the
// message; an error asks the consumer to requeue it.
func (uc *ProcessJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessJobUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.AnalysisRequestedMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if errors.Is(err, port.ErrJobNotFound) {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	} else if err != nil {
		log.Error("failed to load job", zap.Error(err))
		return fmt.Errorf("load job: %w", err)
	}

	if job.Status == entity.JobStatusCompleted {
		log.Info("job already completed, dropping duplicate message")
		return nil
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", log)
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}
	uc.publishStatus(ctx, job, log)

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessJobUseCase) runPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	framesDir := filepath.Join(workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create workdir: "+err.Error(), log)
	}
	defer os.RemoveAll(workDir)

	dlStart := time.Now()
	dlCtx, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	err := uc.storage.DownloadVideo(dlCtx, msg.VideoKey, videoPath)
	spanDl.End()
	if err != nil {
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	analysis, err := uc.analyzer.Execute(ctx, videoPath, framesDir, LogProgress(log, 20))
	if err != nil {
		log.Error("video analysis failed", zap.Error(err))
		if errors.Is(err, port.ErrFrameExtraction) {
			// A video ffmpeg cannot read will not get better on retry.
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "analyze_video: "+err.Error(), log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze_video: "+err.Error(), log)
	}

	upStart := time.Now()
	upCtx, spanUp := tracer.Start(ctx, "upload_result")
	resultKey := fmt.Sprintf("%s/%s.json", job.UserID, job.ID)
	body, err := json.Marshal(analysis.Run)
	if err == nil {
		err = uc.storage.UploadResult(upCtx, resultKey, bytes.NewReader(body), int64(len(body)))
	}
	spanUp.End()
	if err != nil {
		log.Error("result upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_result: "+err.Error(), log)
	}
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	archiveKey := ""
	if uc.archive {
		archiveKey, err = uc.uploadArchive(ctx, job, workDir, analysis.FramePaths)
		if err != nil {
			log.Error("frame archive failed", zap.Error(err))
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "archive_frames: "+err.Error(), log)
		}
	}

	job.MarkCompleted(resultKey, archiveKey, analysis.Summary, analysis.VideoDuration)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("frame_count", analysis.Summary.TotalFrames),
		zap.Int("face_frame_count", analysis.Summary.FaceFrames),
		zap.Float64("duration_secs", analysis.VideoDuration),
		zap.String("result_key", resultKey),
	)
	return nil
}

func (uc *ProcessJobUseCase) uploadArchive(ctx context.Context, job *entity.Job, workDir string, framePaths []string) (string, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "archive_frames")
	defer span.End()
	start := time.Now()

	zipPath := filepath.Join(workDir, "frames.zip")
	if err := uc.archiver.ArchiveFrames(ctx, framePaths, zipPath); err != nil {
		return "", err
	}

	f, err := os.Open(zipPath)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}

	key := fmt.Sprintf("%s/%s_frames.zip", job.UserID, job.ID)
	if err := uc.storage.UploadArchive(ctx, key, f, info.Size()); err != nil {
		return "", err
	}
	metrics.StageDuration.WithLabelValues("archive").Observe(time.Since(start).Seconds())
	return key, nil
}

func (uc *ProcessJobUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessJobUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestedMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkAbandoned(errMsg)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to record job failure", zap.Error(err))
	}

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}
	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job)
	}
	return nil
}

func (uc *ProcessJobUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	data, err := json.Marshal(entity.AnalysisStatusMessage{
		JobID:          job.ID,
		UserID:         job.UserID,
		Status:         job.Status,
		VideoKey:       job.VideoKey,
		ResultKey:      job.ResultKey,
		ArchiveKey:     job.ArchiveKey,
		FrameCount:     job.FrameCount,
		FaceFrameCount: job.FaceFrameCount,
		Duration:       job.VideoDuration,
		ErrorMessage:   job.ErrorMessage,
		Attempt:        job.Attempt,
		MaxAttempts:    job.MaxAttempts,
	})
	if err != nil {
		log.Error("failed to marshal status", zap.Error(err))
		return
	}
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
