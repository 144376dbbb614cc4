// Package geo suggests place names for job postings via a
// Nominatim-compatible geocoding endpoint.
package geo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const maxSuggestions = 5

type Suggestion struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Importance  float64 `json:"importance"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Suggest returns up to five place suggestions for the query.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	if query == "" {
		return nil, nil
	}

	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, errors.Wrap(err, "parse geocoder url")
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "5")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", "gighop/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "geocoder request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("geocoder returned %d", resp.StatusCode)
	}

	var out []Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "decode geocoder response")
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out, nil
}
