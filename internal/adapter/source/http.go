package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/tadb/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "tadb/1.0"
)

// HTTPSource fetches data/<type>.json relative to a site base URL.
type HTTPSource struct {
	baseURL    string
	cacheBust  bool
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewHTTPSource creates a source for the site at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration, cacheBust bool, logger *slog.Logger) *HTTPSource {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cacheBust: cacheBust,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, t domain.DataType) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDataType, t)
	}

	reqURL := s.baseURL + "/" + t.StaticPath()
	if s.cacheBust {
		query := url.Values{}
		query.Set("t", strconv.FormatInt(s.now().UnixMilli(), 10))
		reqURL = reqURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	s.logger.Debug("static request", "url", reqURL)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrSourceNotFound, t.StaticPath(), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
