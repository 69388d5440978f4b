package port

import (
	"context"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
)

// FailureNotifier tells a submitter that their analysis job failed for good.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, job *entity.Job) error
}
