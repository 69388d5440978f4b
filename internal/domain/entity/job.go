package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one asynchronous video analysis.
type Job struct {
	ID             uuid.UUID
	UserID         string
	VideoKey       string
	ResultKey      string
	ArchiveKey     string
	Status         JobStatus
	FrameCount     int
	FaceFrameCount int
	FileSize       int64
	VideoDuration  float64
	Attempt        int
	MaxAttempts    int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(resultKey, archiveKey string, summary Summary, duration float64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ResultKey = resultKey
	j.ArchiveKey = archiveKey
	j.FrameCount = summary.TotalFrames
	j.FaceFrameCount = summary.FaceFrames
	j.VideoDuration = duration
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

// MarkAbandoned fails the job and rules out any further attempt.
func (j *Job) MarkAbandoned(errMsg string) {
	if j.MaxAttempts > j.Attempt {
		j.MaxAttempts = j.Attempt
	}
	j.MarkFailed(errMsg)
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	return j.Status == JobStatusCompleted || (j.Status == JobStatusFailed && !j.CanRetry())
}
