package entity

import "github.com/google/uuid"

// AnalysisRequestedMessage is the inbound message from the analysis.requested queue.
type AnalysisRequestedMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// AnalysisStatusMessage is the outbound message published to the analysis.status queue.
type AnalysisStatusMessage struct {
	JobID          uuid.UUID `json:"job_id"`
	UserID         string    `json:"user_id"`
	Status         JobStatus `json:"status"`
	VideoKey       string    `json:"video_key"`
	ResultKey      string    `json:"result_key,omitempty"`
	ArchiveKey     string    `json:"archive_key,omitempty"`
	FrameCount     int       `json:"frame_count,omitempty"`
	FaceFrameCount int       `json:"face_frame_count,omitempty"`
	Duration       float64   `json:"duration_seconds,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"max_attempts"`
}
