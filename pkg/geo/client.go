package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/franmoretti/tiendabot-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://maps.googleapis.com/maps/api/geocode"
	responseBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("geocoder api key is required")

// Exactness levels Google reports that are precise enough for
// billing-relevant distance computation.
var exactLocationTypes = map[string]bool{
	"ROOFTOP":            true,
	"RANGE_INTERPOLATED": true,
}

// Client wraps the Google Geocoding API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	region     string
	language   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured Geocoding base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRegion biases results toward the given ccTLD region code.
func WithRegion(region string) Option {
	return func(c *Client) {
		c.region = strings.TrimSpace(region)
	}
}

// WithLanguage sets the response language.
func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

// NewClient builds the geocoder client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Location is the normalized geocode result. Exact reports whether the
// match is confident enough to bill a delivery fee against.
type Location struct {
	Lat   float64
	Lng   float64
	Exact bool
}

// Geocode resolves a free-text address. A nil Location with nil error
// means the address produced no results at all.
func (c *Client) Geocode(ctx context.Context, address string) (*Location, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geocoder client not configured")
	}
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}

	query := url.Values{}
	query.Set("address", strings.TrimSpace(address))
	query.Set("key", c.apiKey)
	if c.region != "" {
		query.Set("region", c.region)
	}
	if c.language != "" {
		query.Set("language", c.language)
	}

	endpoint := fmt.Sprintf("%s/json?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build geocode request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "geocode request failed")
	}

	var apiResp struct {
		Status  string `json:"status"`
		Results []struct {
			PartialMatch bool `json:"partial_match"`
			Geometry     struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
				LocationType string `json:"location_type"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode geocode response")
	}

	switch apiResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("geocode status %s", apiResp.Status), "geocode request rejected")
	}

	if len(apiResp.Results) == 0 {
		return nil, nil
	}

	best := apiResp.Results[0]
	return &Location{
		Lat:   best.Geometry.Location.Lat,
		Lng:   best.Geometry.Location.Lng,
		Exact: !best.PartialMatch && exactLocationTypes[best.Geometry.LocationType],
	}, nil
}
