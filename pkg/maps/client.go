package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/landmarklens/landmark-api/pkg/errors"
)

const (
	defaultBaseURL             = "https://maps.googleapis.com/maps/api"
	reverseGeocodePath         = "geocode/json"
	statusOK                   = "OK"
	responseBodyReadLimit int64 = 1024
)

var (
	errAPIKeyRequired = errors.New("google maps api key is required")
)

// Client wraps the Google Geocoding API used to turn landmark coordinates
// into postal addresses.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
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

// WithBaseURL overrides the Maps API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Google Maps client given an API key.
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

	return client, nil
}

// LatLng is a latitude/longitude pair in decimal degrees.
type LatLng struct {
	Latitude  float64
	Longitude float64
}

// AddressComponent mirrors Google's address component payload.
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// GeocodeResult is one candidate address. The service orders candidates
// best match first.
type GeocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	PlaceID           string             `json:"place_id"`
	Types             []string           `json:"types"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// GeocodingError reports a response that was not both HTTP 200 and status OK.
type GeocodingError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *GeocodingError) Error() string {
	msg := fmt.Sprintf("geocoding failed: http %d", e.HTTPStatus)
	if e.Status != "" {
		msg += ", status " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Results      []GeocodeResult `json:"results"`
}

// ReverseGeocode resolves a coordinate into the service's ordered list of
// candidate addresses. An OK response with no results yields an empty slice.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) ([]GeocodeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "google maps client not configured")
	}

	params := url.Values{}
	params.Set("latlng", formatLatLng(lat, lng))
	params.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(reverseGeocodePath)+"?"+params.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build reverse geocode request")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute reverse geocode request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		geoErr := &GeocodingError{HTTPStatus: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
		var payload geocodeResponse
		if json.Unmarshal(msg, &payload) == nil && payload.Status != "" {
			geoErr.Status = payload.Status
			geoErr.Message = payload.ErrorMessage
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, geoErr, "reverse geocode request failed")
	}

	var apiResp geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode reverse geocode response")
	}

	if apiResp.Status != statusOK {
		geoErr := &GeocodingError{
			HTTPStatus: resp.StatusCode,
			Status:     apiResp.Status,
			Message:    apiResp.ErrorMessage,
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, geoErr, "reverse geocode rejected")
	}

	if apiResp.Results == nil {
		return []GeocodeResult{}, nil
	}
	return apiResp.Results, nil
}

func formatLatLng(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
