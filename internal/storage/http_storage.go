package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "go-roof-inspector/internal/errors"
)

// maxPayloadBytes bounds a single provider response.
const maxPayloadBytes = 32 << 20

// Fetcher downloads one provider payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// HTTPFetcher performs single-attempt GETs against imagery and metadata endpoints.
// A failed candidate is never retried; callers move on to the next one.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher with a pooled transport shared by all providers.
func NewHTTPFetcher(userAgent string) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        32,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 << 10,
	}

	if userAgent == "" {
		userAgent = "go-roof-inspector/1.0"
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// NewHTTPFetcherWithClient wraps an existing client, typically an httptest server's.
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: "go-roof-inspector/1.0"}
}

// Fetch issues one GET bounded by timeout. Non-200 responses and transport
// errors are reported as provider_unavailable; deadline expiry as timeout.
func (h *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid provider URL", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, application/json, */*")
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewTimeoutError("provider request timed out", err)
		}
		return nil, apperrors.NewProviderUnavailableError("provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, apperrors.NewProviderUnavailableError(fmt.Sprintf("provider returned status code %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes+1))
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewTimeoutError("provider response timed out", err)
		}
		return nil, apperrors.NewProviderUnavailableError("failed to read provider response", err)
	}
	if len(data) > maxPayloadBytes {
		return nil, apperrors.NewProviderUnavailableError("provider response too large", nil)
	}
	if len(data) == 0 {
		return nil, apperrors.NewProviderUnavailableError("provider returned empty body", nil)
	}
	return data, nil
}
