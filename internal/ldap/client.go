// Package ldap implements the client for the external credential verifier.
package ldap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"supplydesk/internal/models"
)

// DefaultTimeout bounds how long a credential check may take.
const DefaultTimeout = 10 * time.Second

// Identity is the canonical identity returned by the verifier on success.
type Identity struct {
	Username    string
	DisplayName string
}

// Client calls the external authentication endpoint. It is the only
// outbound network dependency of the application.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient returns a Client for the given verifier URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// Authenticate checks the credentials against the external verifier.
// It returns an UNAUTHORIZED error for rejected credentials, an
// UPSTREAM_TIMEOUT error when the verifier does not answer in time, and an
// INTERNAL_ERROR for transport or decoding failures.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	body, err := json.Marshal(authRequest{Username: username, Password: password})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewUpstreamTimeoutError("Authentication provider timed out")
		}
		return nil, models.NewInternalError(fmt.Errorf("credential verifier request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, models.NewInternalError(fmt.Errorf("credential verifier returned status %d", resp.StatusCode))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode credential verifier response: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest || !parsed.Success {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}

	return &Identity{
		Username:    parsed.Username,
		DisplayName: parsed.FullName,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
