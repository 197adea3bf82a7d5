package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aaronwang/auction-platform/shared/apperror"
)

// ServiceClient calls a JSON-over-HTTP backend service
type ServiceClient struct {
	name    string
	baseURL string
	http    *http.Client
}

// NewServiceClient creates a client for the service at baseURL. A zero
// timeout means calls have no deadline beyond the caller's context.
func NewServiceClient(name, baseURL string, timeout time.Duration) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Name returns the service name used in error messages
func (c *ServiceClient) Name() string { return c.name }

// Do sends in (if non-nil) as JSON and decodes a 2xx response into out (if
// non-nil). Error responses come back as *apperror.Error carrying the
// backend's status and body; transport failures as UpstreamUnavailable.
func (c *ServiceClient) Do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, apperror.Internal(fmt.Errorf("marshal %s request: %w", c.name, err))
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, apperror.Internal(fmt.Errorf("build %s request: %w", c.name, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, apperror.Upstream(c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, apperror.Upstream(c.name, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, apperror.FromResponse(resp.StatusCode, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, apperror.Upstream(c.name, fmt.Errorf("decode response: %w", err))
		}
	}
	return resp.StatusCode, nil
}
