// Package remote reads the user collection from the upstream HTTP endpoint.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/odyssey-erp/userdir/internal/directory"
)

// DefaultEndpoint serves the public sample user collection.
const DefaultEndpoint = "https://jsonplaceholder.typicode.com/users"

// ErrUnexpectedStatus is returned for non-2xx upstream responses.
var ErrUnexpectedStatus = errors.New("remote: unexpected status")

// Client performs the collection read.
type Client struct {
	Endpoint string
	HTTP     *http.Client
}

// NewClient creates a client for the endpoint, falling back to DefaultEndpoint.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{Endpoint: endpoint, HTTP: httpClient}
}

// FetchUsers issues one GET for the full collection.
func (c *Client) FetchUsers(ctx context.Context) ([]directory.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch users: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var users []directory.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("remote: decode users: %w", err)
	}
	return users, nil
}
