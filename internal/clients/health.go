package clients

import (
	"context"
	"net/http"
	"time"
)

type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckHealth probes the health endpoint of the upstream behind c.
func CheckHealth(ctx context.Context, c *Client, path string) HealthResult {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := c.Do(ctx, http.MethodGet, path, "", nil, nil)
	if err != nil {
		return HealthResult{Name: c.Name, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	return HealthResult{Name: c.Name, OK: ok, StatusCode: resp.StatusCode}
}
