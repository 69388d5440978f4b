package landmarker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oenmin/affect-analyzer/internal/domain/entity"
	"go.uber.org/zap"
)

// ErrNotReady is returned by Detect before the model finished loading or after
// the worker process died.
var ErrNotReady = errors.New("face landmarker not ready")

type Config struct {
	Command   string
	Script    string
	ModelPath string
	NumFaces  int
}

// Landmarker drives a face landmarker worker process. Requests go to the
// worker's stdin, responses come back on fd 3 so that library chatter on
// stdout cannot corrupt the stream. One frame is in flight at a time.
type Landmarker struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	dataPipe io.ReadCloser
	stderr   *syncBuffer

	ready    atomic.Bool
	loadOnce sync.Once
	loadErr  error
}

func New(cfg Config, logger *zap.Logger) *Landmarker {
	if cfg.NumFaces <= 0 {
		cfg.NumFaces = 1
	}
	return &Landmarker{cfg: cfg, logger: logger}
}

// Ready reports whether the worker has loaded its model and is accepting frames.
func (l *Landmarker) Ready() bool {
	return l.ready.Load()
}

// Load starts the worker and waits for its handshake. Only the first call does
// any work; later calls return the same result.
func (l *Landmarker) Load(ctx context.Context) error {
	l.loadOnce.Do(func() {
		l.loadErr = l.start(ctx)
	})
	return l.loadErr
}

func (l *Landmarker) start(ctx context.Context) error {
	args := []string{l.cfg.Script, l.cfg.ModelPath, strconv.Itoa(l.cfg.NumFaces)}
	cmd := exec.Command(l.cfg.Command, args...)

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create data pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{w}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		w.Close()
		r.Close()
		return fmt.Errorf("start landmarker worker: %w", err)
	}
	// Only the child keeps the write end, so its exit shows up as EOF here.
	w.Close()

	l.mu.Lock()
	l.cmd = cmd
	l.stdin = stdin
	l.dataPipe = r
	l.stderr = stderr
	l.mu.Unlock()

	l.logger.Info("landmarker worker started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("model", l.cfg.ModelPath),
	)

	done := make(chan error, 1)
	go func() {
		body, err := readFrame(r)
		if err != nil {
			done <- fmt.Errorf("read handshake: %w", err)
			return
		}
		resp, err := decodeResponse(body)
		if err != nil {
			done <- fmt.Errorf("model load: %w", err)
			return
		}
		if !resp.Ready {
			done <- errors.New("worker handshake did not report ready")
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			l.abort()
			return l.withStderr(err)
		}
	case <-ctx.Done():
		l.abort()
		return ctx.Err()
	}

	l.ready.Store(true)
	l.logger.Info("face landmarker model loaded")
	return nil
}

// Detect sends one frame to the worker and returns the faces it found.
// Transport failures mark the landmarker as not ready; an error reported by the
// worker for this frame does not.
func (l *Landmarker) Detect(ctx context.Context, img entity.RGBImage) ([]entity.Face, error) {
	if !l.ready.Load() {
		return nil, ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Close may have run since the ready check.
	if l.stdin == nil || l.dataPipe == nil {
		return nil, ErrNotReady
	}

	if err := writeFrame(l.stdin, payload); err != nil {
		l.ready.Store(false)
		return nil, l.withStderr(fmt.Errorf("send frame: %w", err))
	}
	body, err := readFrame(l.dataPipe)
	if err != nil {
		l.ready.Store(false)
		return nil, l.withStderr(fmt.Errorf("read result: %w", err))
	}

	resp, err := decodeResponse(body)
	if err != nil {
		return nil, fmt.Errorf("landmarker: %w", err)
	}
	return resp.Faces, nil
}

// Close stops the worker. Safe to call more than once.
func (l *Landmarker) Close() error {
	l.ready.Store(false)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stdin != nil {
		l.stdin.Close()
		l.stdin = nil
	}
	if l.dataPipe != nil {
		l.dataPipe.Close()
		l.dataPipe = nil
	}
	if l.cmd == nil {
		return nil
	}

	cmd := l.cmd
	l.cmd = nil
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			l.logger.Debug("landmarker worker exited", zap.Int("code", exitErr.ExitCode()))
			return nil
		}
		return fmt.Errorf("wait for landmarker worker: %w", err)
	}
	return nil
}

// abort kills a worker that failed to start properly and reaps it.
func (l *Landmarker) abort() {
	l.mu.Lock()
	if l.cmd != nil && l.cmd.Process != nil {
		_ = l.cmd.Process.Kill()
	}
	l.mu.Unlock()
	if err := l.Close(); err != nil {
		l.logger.Warn("failed to reap landmarker worker", zap.Error(err))
	}
}

func (l *Landmarker) withStderr(err error) error {
	if l.stderr == nil {
		return err
	}
	tail := strings.TrimSpace(l.stderr.String())
	if tail == "" {
		return err
	}
	const keep = 2048
	if len(tail) > keep {
		tail = tail[len(tail)-keep:]
	}
	return fmt.Errorf("%w; worker stderr: %s", err, tail)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
