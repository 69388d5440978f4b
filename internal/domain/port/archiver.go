package port

import "context"

// FrameArchiver bundles the sampled frames of a run into a single file.
type FrameArchiver interface {
	ArchiveFrames(ctx context.Context, framePaths []string, outputPath string) error
}
