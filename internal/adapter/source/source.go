package source

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mmcdole/tadb/internal/adapter"
	"github.com/mmcdole/tadb/internal/domain"
)

// New creates the static source selected by the config.
// SourceTypeNone yields a nil source: every static load is "not found".
func New(cfg *adapter.SourceConfig, logger *slog.Logger) (domain.StaticSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}

	switch cfg.Type {
	case adapter.SourceTypeNone, "":
		return nil, nil

	case adapter.SourceTypeDir:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("source directory is required")
		}
		return NewDirSource(os.DirFS(cfg.Dir), logger), nil

	case adapter.SourceTypeHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("source URL is required")
		}
		return NewHTTPSource(cfg.URL, cfg.Timeout, cfg.CacheBust, logger), nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}
