package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DirSaver saves exported files into a directory on disk.
type DirSaver struct {
	dir    string
	logger *slog.Logger
}

// NewDirSaver creates a saver writing into dir (created on first save)
func NewDirSaver(dir string, logger *slog.Logger) *DirSaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSaver{dir: dir, logger: logger}
}

// Dir returns the target directory
func (s *DirSaver) Dir() string {
	return s.dir
}

// Save writes data to dir/filename via a temp file and rename, so a
// reader never sees a partially written export.
func (s *DirSaver) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid export filename %q", filename)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+filename+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}

	target := filepath.Join(s.dir, filename)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save %s: %w", filename, err)
	}

	s.logger.Info("saved export file", "path", target, "bytes", len(data))
	return nil
}
