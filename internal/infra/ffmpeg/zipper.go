package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FrameArchiver writes sampled frames into a ZIP. Frames are already compressed
// images, so entries are stored rather than deflated.
type FrameArchiver struct{}

func NewFrameArchiver() *FrameArchiver {
	return &FrameArchiver{}
}

func (a *FrameArchiver) ArchiveFrames(ctx context.Context, framePaths []string, outputPath string) (err error) {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(out)
	for _, fp := range framePaths {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := storeFile(zw, fp); err != nil {
			zw.Close()
			return fmt.Errorf("add %s to archive: %w", fp, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func storeFile(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(filename)
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, file)
	return err
}
