package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/mmcdole/tadb/internal/domain"
)

// DirSource reads data/<type>.json from a site file tree.
type DirSource struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewDirSource creates a source over fsys (usually os.DirFS(siteRoot))
func NewDirSource(fsys fs.FS, logger *slog.Logger) *DirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSource{fsys: fsys, logger: logger}
}

func (s *DirSource) Fetch(ctx context.Context, t domain.DataType) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDataType, t)
	}

	path := t.StaticPath()
	s.logger.Debug("reading static file", "path", path)

	data, err := fs.ReadFile(s.fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
