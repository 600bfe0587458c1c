package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/naveenspark/portal/internal/metrics"
	"github.com/naveenspark/portal/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// Option configures a Client or Auth.
type Option func(*transport)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(t *transport) {
		if hc != nil {
			t.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(t *transport) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// WithRateLimit throttles outbound requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(t *transport) {
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(t *transport) {
		t.log = l.With().Str("component", "client").Logger()
	}
}

// transport sends one JSON request and decodes one JSON response. It knows
// nothing about refresh; the caller decides which token to attach.
type transport struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

func newTransport(baseURL string, opts []Option) *transport {
	t := &transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *transport) send(ctx context.Context, r Request, tok *oauth2.Token, out any) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var reqBody io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	target := t.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil && tok.AccessToken != "" {
		tok.SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("do request: %w", ctx.Err())
		}
		metrics.Requests.WithLabelValues("network_error").Inc()
		t.log.Debug().Err(err).Str("request_id", reqID).Str("method", r.Method).Str("path", r.Path).Msg("request failed")
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	t.log.Debug().
		Str("request_id", reqID).
		Str("method", r.Method).
		Str("path", r.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if resp.StatusCode >= 400 {
		metrics.Requests.WithLabelValues("http_error").Inc()
		return decodeError(resp)
	}
	metrics.Requests.WithLabelValues("ok").Inc()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
