package dicom

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mrsinham/studyforge/internal/failure"
)

// Sink persists encoded records.
type Sink interface {
	// Prepare creates the destination. It is called once per study.
	Prepare(ctx context.Context, dest string) error
	// Write stores rec under name and returns where it was written.
	// It must be safe for concurrent use.
	Write(ctx context.Context, name string, rec *Record) (string, error)
}

// FileSink writes records as files below a directory.
type FileSink struct {
	dir string
}

// NewFileSink returns a FileSink. Prepare selects its directory.
func NewFileSink() *FileSink {
	return &FileSink{}
}

// Prepare creates dest and its parents.
func (s *FileSink) Prepare(_ context.Context, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return &failure.DirectoryCreateError{Path: dest, Reason: err.Error()}
	}
	s.dir = dest
	return nil
}

// Write encodes rec into dir/name.
func (s *FileSink) Write(_ context.Context, name string, rec *Record) (string, error) {
	path := filepath.Join(s.dir, name)
	data, err := rec.Bytes()
	if err != nil {
		return "", &failure.FileWriteError{Path: path, Reason: err.Error()}
	}
	if err := writeFile(path, data); err != nil {
		return "", &failure.FileWriteError{Path: path, Reason: err.Error()}
	}
	return path, nil
}

// writeFile writes data to a new file at path.
func writeFile(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
