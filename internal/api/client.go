package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.aladhan.com/v1"

// MethodDiyanet is the Diyanet İşleri Başkanlığı calculation method.
const MethodDiyanet = 13

// ErrNotFound is returned when the API has no timings for the request,
// e.g. an unknown city.
var ErrNotFound = errors.New("prayer times not found")

// NetworkError reports a transport failure or an unexpected status.
type NetworkError struct {
	Endpoint   string
	StatusCode int // zero when the request never got a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("time source %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("time source %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Query selects the day and calculation parameters. Method and School are
// omitted from the request when negative.
type Query struct {
	Date    time.Time
	Lat     float64
	Lon     float64
	City    string
	Country string
	Method  int
	School  int
}

// Client talks to the Al Adhan prayer times API.
type Client struct {
	httpClient *http.Client
	// BaseURL is exported so tests can point it at httptest.
	BaseURL string
}

// NewClient creates a client with a 10 second timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    defaultBaseURL,
	}
}

// FetchDay fetches one day of timings. A City in q selects the
// timingsByCity endpoint, otherwise coordinates are used.
func (c *Client) FetchDay(ctx context.Context, q Query) (*Day, error) {
	dateStr := q.Date.Format("02-01-2006")

	params := url.Values{}
	var endpoint string
	if q.City != "" {
		endpoint = fmt.Sprintf("%s/timingsByCity/%s", c.BaseURL, dateStr)
		params.Set("city", q.City)
		params.Set("country", q.Country)
	} else {
		endpoint = fmt.Sprintf("%s/timings/%s", c.BaseURL, dateStr)
		params.Set("latitude", strconv.FormatFloat(q.Lat, 'f', 6, 64))
		params.Set("longitude", strconv.FormatFloat(q.Lon, 'f', 6, 64))
	}
	if q.Method >= 0 {
		params.Set("method", strconv.Itoa(q.Method))
	}
	if q.School >= 0 {
		params.Set("school", strconv.Itoa(q.School))
	}

	return c.do(ctx, endpoint, params)
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*Day, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", endpoint, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: errors.New(string(body))}
	}

	var apiResp Response
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	switch apiResp.Code {
	case http.StatusOK:
		return &apiResp.Data, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return nil, fmt.Errorf("%s (%s): %w", endpoint, apiResp.Status, ErrNotFound)
	default:
		return nil, &NetworkError{Endpoint: endpoint, StatusCode: apiResp.Code, Err: errors.New(apiResp.Status)}
	}
}
