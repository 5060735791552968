// Package fetch downloads documents on behalf of a print request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gaiazov/PrintService/internal/domain"
	"github.com/gaiazov/PrintService/internal/observability"
)

// Config holds download settings.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Retry     RetryConfig
}

// Fetcher implements domain.Fetcher over HTTP. The request's cookies are sent
// with the GET so documents behind a session can be printed.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
	logger     *observability.Logger
}

// New creates a new fetcher
func New(cfg Config, logger *observability.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if logger == nil {
		logger = observability.Nop()
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.WithOperation("fetch"),
	}
}

// Fetch downloads rawURL and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, cookies []domain.Cookie) (domain.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.ValidationError(fmt.Sprintf("invalid document url %q", rawURL), err)
	}

	resp, err := f.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/pdf")
		if f.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", f.cfg.UserAgent)
		}
		for _, c := range cookies {
			req.AddCookie(&http.Cookie{Name: c.Key, Value: c.Value})
		}
		return f.httpClient.Do(req)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, domain.FetchError(fmt.Sprintf("failed to download %s", u.Redacted()), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, domain.FetchError(fmt.Sprintf("not authorized to download %s (HTTP %d)", u.Redacted(), resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.FetchError(fmt.Sprintf("download of %s returned HTTP %d", u.Redacted(), resp.StatusCode), nil)
	}

	if resp.ContentLength > f.cfg.MaxBytes {
		return nil, domain.FetchError(fmt.Sprintf("document of %d bytes exceeds %d bytes", resp.ContentLength, f.cfg.MaxBytes), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, domain.FetchError("failed to read document body", err)
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, domain.FetchError(fmt.Sprintf("document exceeds %d bytes", f.cfg.MaxBytes), nil)
	}
	if len(body) == 0 {
		return nil, domain.FetchError("document body is empty", nil)
	}

	f.logger.WithContext(ctx).Info().
		Str("url", u.Redacted()).
		Int("bytes", len(body)).
		Int("cookies", len(cookies)).
		Msg("Document downloaded")

	return body, nil
}
