package agents

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"QuantPulse/internal/domain/models"
	xhttp "QuantPulse/pkg/http"
)

// HTTPServiceBase is the shared JSON-over-HTTP client for upstream model services.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds a client with a per-request timeout.
func NewHTTPServiceBase(baseURL string, timeout time.Duration) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts payload to path under baseURL and decodes the JSON reply into dest.
// Failures are mapped onto the upstream sentinel errors.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%w: upstream url not configured", models.ErrUpstreamUnavailable)
	}
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: payload,
	}, dest)
	if err != nil {
		return classifyHTTP(path, err)
	}
	return nil
}

func classifyHTTP(path string, err error) error {
	var se *xhttp.StatusError
	switch {
	case errors.Is(err, xhttp.ErrDecode):
		return fmt.Errorf("%w: post %s: %v", models.ErrMalformedUpstream, path, err)
	case errors.As(err, &se):
		return fmt.Errorf("%w: post %s: status %d", models.ErrUpstreamUnavailable, path, se.Code)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: post %s: %w", models.ErrUpstreamUnavailable, path, context.DeadlineExceeded)
	}
	return fmt.Errorf("%w: post %s: %w", models.ErrUpstreamUnavailable, path, err)
}
