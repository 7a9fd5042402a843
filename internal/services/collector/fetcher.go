package collector

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
	"github.com/ternarybob/harvester/internal/models"
)

// Fetcher retrieves page HTML with per-platform HTTP policy applied.
type Fetcher struct {
	client      *http.Client
	logger      arbor.ILogger
	userAgent   string
	maxBodySize int64
}

// NewFetcher creates a fetcher sharing one HTTP client across requests
func NewFetcher(logger arbor.ILogger, config *common.Config) *Fetcher {
	maxBody := int64(config.Collector.MaxBodySize)
	if maxBody <= 0 {
		maxBody = 10 * 1024 * 1024
	}

	return &Fetcher{
		client: &http.Client{
			// Per-request timeouts come from the platform policy via
			// context; the client timeout is only a hard upper bound.
			Timeout: 60 * time.Second,
		},
		logger:      logger,
		userAgent:   config.Collector.UserAgent,
		maxBodySize: maxBody,
	}
}

// Fetch retrieves the page body for a URL. Transport failures and non-2xx
// responses come back as a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, policy HTTPPolicy, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = policy.Timeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Err: err}
	}

	userAgent := policy.UserAgent
	if userAgent == "" {
		userAgent = f.userAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	for key, value := range policy.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug().
			Str("url", pageURL).
			Err(err).
			Msg("Fetch transport failure")
		return "", &models.FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Debug().
			Str("url", pageURL).
			Int("status_code", resp.StatusCode).
			Msg("Fetch returned non-2xx status")
		return "", &models.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Err: err}
	}

	f.logger.Debug().
		Str("url", pageURL).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Fetched page")

	return string(body), nil
}
