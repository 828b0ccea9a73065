package output

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// FileSink appends report lines to a file, holding an advisory lock for the
// lifetime of the sink so concurrent monitor processes do not interleave
// partial lines.
type FileSink struct {
	file *os.File
	lock *flock.Flock
}

// NewFileSink opens (or creates) path for appending and acquires its lock.
// It fails immediately when another process holds the lock.
func NewFileSink(path string) (*FileSink, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking report file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("report file %s is locked by another process", path)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening report file: %w", err)
	}
	return &FileSink{file: file, lock: lock}, nil
}

func (s *FileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Close flushes the file and releases the lock.
func (s *FileSink) Close() error {
	err := s.file.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}
