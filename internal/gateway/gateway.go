// Package gateway holds the typed request/response wrappers over the
// Inventory, Reclamation, ClientDirectory, Notification and PDF-renderer
// collaborators. Every call forwards the caller's bearer token and runs
// under a bounded timeout; a non-2xx response or transport fault is
// translated into a typed failure instead of leaking upstream details.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type tokenKey struct{}

// WithToken attaches the caller's bearer token to the context so gateway
// calls made on their behalf carry their credential.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom extracts the forwarded bearer token, empty when absent.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type base struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func newBase(baseURL string, timeout time.Duration, logger *zap.Logger) base {
	return base{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil. The HTTP status is returned even on
// non-2xx so callers can map 404/403 to their own taxonomy.
func (b *base) doJSON(ctx context.Context, method, path string, body, out interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response from %s: %w", path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
