package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"github.com/oenmin/affect-analyzer/internal/domain/port"
)

type fakeDecoder struct {
	fail map[string]error
}

func (d *fakeDecoder) Decode(_ context.Context, path string) (entity.RGBImage, error) {
	if err := d.fail[path]; err != nil {
		return entity.RGBImage{}, err
	}
	// Carry the path through so the detector can key on it.
	return entity.RGBImage{Pix: []byte(path), Width: 1, Height: 1}, nil
}

// fakeDetector returns faces keyed by the frame path stored in img.Pix.
type fakeDetector struct {
	faces map[string][]entity.Face
	errs  map[string]error
	panic map[string]bool
}

func (d *fakeDetector) Detect(_ context.Context, img entity.RGBImage) ([]entity.Face, error) {
	key := string(img.Pix)
	if d.panic[key] {
		panic("detector crashed")
	}
	if err := d.errs[key]; err != nil {
		return nil, err
	}
	return d.faces[key], nil
}

type fakeExtractor struct {
	rate     float64
	result   *port.FrameExtractionResult
	err      error
	gotVideo string
	gotDir   string
}

func (e *fakeExtractor) ExtractFrames(_ context.Context, videoPath, outputDir string) (*port.FrameExtractionResult, error) {
	e.gotVideo, e.gotDir = videoPath, outputDir
	return e.result, e.err
}

func (e *fakeExtractor) FrameRate() float64 { return e.rate }

type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.Job
	updates []entity.Job
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return port.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	r.updates = append(r.updates, *job)
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, port.ErrJobNotFound
	}
	return &job, nil
}

type fakeStorage struct {
	mu          sync.Mutex
	videos      map[string][]byte
	results     map[string][]byte
	archives    map[string][]byte
	downloadErr error
	uploadErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		videos:   map[string][]byte{},
		results:  map[string][]byte{},
		archives: map[string][]byte{},
	}
}

func (s *fakeStorage) UploadVideo(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[key] = b
	return nil
}

func (s *fakeStorage) DownloadVideo(_ context.Context, key, dest string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	s.mu.Lock()
	b, ok := s.videos[key]
	s.mu.Unlock()
	if !ok {
		return errors.New("no such object")
	}
	return os.WriteFile(dest, b, 0o644)
}

func (s *fakeStorage) UploadResult(_ context.Context, key string, r io.Reader, _ int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[key] = b
	return nil
}

func (s *fakeStorage) UploadArchive(_ context.Context, key string, r io.Reader, _ int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[key] = b
	return nil
}

func (s *fakeStorage) OpenResult(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.results[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	reasons  []string
	err      error
}

func (p *recordingPublisher) record(msg []byte, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	p.reasons = append(p.reasons, reason)
	return nil
}

func (p *recordingPublisher) PublishRequest(_ context.Context, msg []byte) error {
	return p.record(msg, "")
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg []byte) error {
	return p.record(msg, "")
}

func (p *recordingPublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	return p.record(msg, reason)
}

type fakeNotifier struct {
	to   []string
	jobs []entity.Job
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	n.to = append(n.to, userEmail)
	n.jobs = append(n.jobs, *job)
	return nil
}

type fakeArchiver struct {
	err error
}

func (a *fakeArchiver) ArchiveFrames(_ context.Context, framePaths []string, outputPath string) error {
	if a.err != nil {
		return a.err
	}
	var buf bytes.Buffer
	for _, p := range framePaths {
		buf.WriteString(p + "\n")
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0o644)
}
