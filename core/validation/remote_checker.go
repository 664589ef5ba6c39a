package validation

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ConnectivityResult is the outcome of a remote endpoint probe.
type ConnectivityResult struct {
	Reachable bool
	Latency   time.Duration
	Message   string
	Error     error
}

// AuthResult is the outcome of a remote credential check.
type AuthResult struct {
	Valid   bool
	Message string
	Error   error
}

// RemoteChecker probes the OpenAI-compatible backend endpoint before the
// service commits to using it. Checks are only run when the remote backend
// is selected.
type RemoteChecker struct {
	client  *http.Client
	timeout time.Duration
}

// NewRemoteChecker creates a RemoteChecker with a 10 second timeout.
func NewRemoteChecker() *RemoteChecker {
	timeout := 10 * time.Second
	return &RemoteChecker{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// WithTimeout sets the probe timeout.
func (c *RemoteChecker) WithTimeout(timeout time.Duration) *RemoteChecker {
	c.timeout = timeout
	c.client.Timeout = timeout
	return c
}

// modelsURL joins the endpoint base with the models listing path.
func modelsURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/models"
}

// CheckConnectivity issues a GET against the endpoint's models listing and
// reports reachability plus latency. Any HTTP response, including an auth
// rejection, proves the endpoint is reachable.
func (c *RemoteChecker) CheckConnectivity(baseURL string) ConnectivityResult {
	if err := ValidateBaseURL(baseURL); err != nil {
		return ConnectivityResult{
			Reachable: false,
			Message:   "Endpoint URL invalid",
			Error:     err,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(baseURL), nil)
	if err != nil {
		return ConnectivityResult{Reachable: false, Message: "Probe request invalid", Error: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return ConnectivityResult{
			Reachable: false,
			Latency:   latency,
			Message:   "Endpoint unreachable",
			Error:     err,
		}
	}
	resp.Body.Close()

	return ConnectivityResult{
		Reachable: true,
		Latency:   latency,
		Message:   fmt.Sprintf("Endpoint reachable (HTTP %d)", resp.StatusCode),
	}
}

// CheckAuthentication issues an authenticated GET against the models
// listing and reports whether the API key is accepted.
func (c *RemoteChecker) CheckAuthentication(baseURL, apiKey string) AuthResult {
	if apiKey == "" {
		return AuthResult{
			Valid:   false,
			Message: "API key missing",
			Error:   fmt.Errorf("remote backend requires an API key"),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL(baseURL), nil)
	if err != nil {
		return AuthResult{Valid: false, Message: "Probe request invalid", Error: err}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return AuthResult{Valid: false, Message: "Endpoint unreachable", Error: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return AuthResult{
			Valid:   false,
			Message: "API key rejected",
			Error:   fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return AuthResult{
			Valid:   false,
			Message: "Endpoint error",
			Error:   fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode),
		}
	default:
		return AuthResult{Valid: true, Message: "API key accepted"}
	}
}
