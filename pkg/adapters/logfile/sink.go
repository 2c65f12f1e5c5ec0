package logfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
)

const DefaultFileMode fs.FileMode = 0o644

// WriteError reports a failed append. Op is the step that failed
// (open, lock, write, close).
type WriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("append %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Reason classifies the underlying error for metrics labels.
func (e *WriteError) Reason() string {
	switch {
	case errors.Is(e.Err, fs.ErrPermission):
		return "permission"
	case errors.Is(e.Err, fs.ErrNotExist):
		return "not_exist"
	case errors.Is(e.Err, syscall.ENOSPC):
		return "no_space"
	default:
		return "other"
	}
}

// Sink appends visit lines to a single flat file. Every append opens the
// file, takes an exclusive advisory lock, writes one line and closes again,
// so externally rotated files are picked up on the next visit.
type Sink struct {
	path string
	mode fs.FileMode
	mu   sync.Mutex
}

type Option func(*Sink)

func WithFileMode(mode fs.FileMode) Option {
	return func(s *Sink) {
		if mode != 0 {
			s.mode = mode
		}
	}
}

// NewSink checks that the parent directory of path exists. The file itself
// is created on first append.
func NewSink(path string, opts ...Option) (*Sink, error) {
	if path == "" {
		return nil, errors.New("log file path is required")
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("log directory %s is not a directory", dir)
	}

	s := &Sink{path: path, mode: DefaultFileMode}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Sink) Path() string { return s.path }

// Append writes visit.Line() in a single write under the file lock.
func (s *Sink) Append(_ context.Context, visit domain.Visit) error {
	line := []byte(visit.Line())

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.mode)
	if err != nil {
		return &WriteError{Path: s.path, Op: "open", Err: err}
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return &WriteError{Path: s.path, Op: "lock", Err: err}
	}

	n, err := f.Write(line)
	if err == nil && n < len(line) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(line))
	}
	unlockFile(f)
	if err != nil {
		f.Close()
		return &WriteError{Path: s.path, Op: "write", Err: err}
	}

	if err := f.Close(); err != nil {
		return &WriteError{Path: s.path, Op: "close", Err: err}
	}
	return nil
}

// Healthy reports whether the log directory still accepts new files.
func (s *Sink) Healthy() error {
	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, ".beacon-health-*")
	if err != nil {
		return fmt.Errorf("log directory %s not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
