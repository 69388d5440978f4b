package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
)

// ErrJobNotCompleted is returned when a result is asked for before the job finished.
var ErrJobNotCompleted = errors.New("job not completed")

type GetJobUseCase struct {
	repo    port.JobRepository
	storage port.VideoStorage
}

func NewGetJobUseCase(repo port.JobRepository, storage port.VideoStorage) *GetJobUseCase {
	return &GetJobUseCase{repo: repo, storage: storage}
}

func (uc *GetJobUseCase) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return uc.repo.FindByID(ctx, id)
}

// OpenResult streams the stored AnalysisRun JSON of a completed job.
func (uc *GetJobUseCase) OpenResult(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	job, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != entity.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status %s", ErrJobNotCompleted, job.Status)
	}
	return uc.storage.OpenResult(ctx, job.ResultKey)
}
