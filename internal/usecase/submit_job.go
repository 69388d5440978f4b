package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type SubmitJobInput struct {
	UserID      string
	UserEmail   string
	FileName    string
	ContentType string
	Size        int64
	Video       io.Reader
}

// SubmitJobUseCase stores an uploaded video and queues it for analysis.
type SubmitJobUseCase struct {
	repo       port.JobRepository
	storage    port.VideoStorage
	publisher  port.RequestPublisher
	logger     *zap.Logger
	maxRetries int
}

func NewSubmitJobUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	publisher port.RequestPublisher,
	logger *zap.Logger,
	maxRetries int,
) *SubmitJobUseCase {
	return &SubmitJobUseCase{
		repo:       repo,
		storage:    storage,
		publisher:  publisher,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

func (uc *SubmitJobUseCase) Submit(ctx context.Context, in SubmitJobInput) (*entity.Job, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "SubmitJobUseCase.Submit")
	defer span.End()

	if in.UserID == "" {
		in.UserID = "anonymous"
	}

	job := entity.NewJob(in.UserID, "", in.Size, uc.maxRetries)
	job.VideoKey = videoKey(in.UserID, job, in.FileName)
	span.SetAttributes(attribute.String("job.id", job.ID.String()))

	if err := uc.storage.UploadVideo(ctx, job.VideoKey, in.Video, in.Size, in.ContentType); err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	msg, err := json.Marshal(entity.AnalysisRequestedMessage{
		JobID:     job.ID,
		UserID:    job.UserID,
		VideoKey:  job.VideoKey,
		FileSize:  job.FileSize,
		UserEmail: in.UserEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if err := uc.publisher.PublishRequest(ctx, msg); err != nil {
		return nil, fmt.Errorf("publish request: %w", err)
	}

	uc.logger.Info("analysis job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID),
		zap.String("video_key", job.VideoKey),
		zap.Int64("size", job.FileSize),
	)
	return job, nil
}

func videoKey(userID string, job *entity.Job, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s/%s%s", userID, job.ID, ext)
}
