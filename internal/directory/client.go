// Package directory provides the client for the external mentor directory
// service.  The directory is consulted only to check mentor existence at
// booking creation; this core never mutates directory state.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client answers the single question the booking manager asks: does a mentor
// exist at this address, and under what registered name.
type Client interface {
	Exists(ctx context.Context, address string) (name string, ok bool, err error)
}

// HTTPClient queries the directory over its JSON API.  A lookup failure is
// an error, not a "does not exist": booking creation must not proceed on a
// directory outage.
type HTTPClient struct {
	base string
	hc   *http.Client
}

// NewHTTPClient returns a client for the directory at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		base: baseURL,
		hc:   &http.Client{Timeout: 3 * time.Second},
	}
}

// Exists performs GET {base}/v1/mentors/{address} and interprets 404 as
// "not registered".
func (c *HTTPClient) Exists(ctx context.Context, address string) (string, bool, error) {
	u := fmt.Sprintf("%s/v1/mentors/%s", c.base, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("directory: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, err
	}
	return body.Name, true, nil
}

// Static is a fixed in-memory directory used in tests and local development.
type Static map[string]string // address -> name

// Exists implements Client.
func (s Static) Exists(ctx context.Context, address string) (string, bool, error) {
	name, ok := s[address]
	return name, ok, nil
}
