// Package geocode resolves free-text place names to coordinates through geocode.xyz.
package geocode

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

	"github.com/rs/zerolog"

	"globe/earth/geo"
)

// API docs: https://geocode.xyz/api
// Sample request: https://geocode.xyz/New%20York?json=1
const (
	DefaultBaseURL = "https://geocode.xyz"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

var (
	// ErrNotFound means the service reported no match.
	ErrNotFound = errors.New("geocode: location not found")
	// ErrNetwork covers transport failures, bad status codes and malformed bodies.
	ErrNetwork = errors.New("geocode: network error")
	// ErrInvalidCoordinate means latt/longt were not usable numbers.
	ErrInvalidCoordinate = errors.New("geocode: invalid coordinate")
)

// Resolver turns a query into a coordinate.
type Resolver interface {
	Resolve(ctx context.Context, query string) (geo.Coordinate, error)
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	log        zerolog.Logger
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Resolve looks query up. It blocks for one HTTP round trip and honours ctx.
func (c *Client) Resolve(ctx context.Context, query string) (geo.Coordinate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return geo.Coordinate{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}

	u := c.baseURL + "/" + url.PathEscape(query) + "?json=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: building request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log := c.log.With().Str("query", query).Logger()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: failed to fetch: %w", ErrNetwork, err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	log.Debug().Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("geocode response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return geo.Coordinate{}, fmt.Errorf("%w: status %d: %s", ErrNetwork, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp APIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&apiResp); err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: failed to decode response: %w", ErrNetwork, err)
	}

	return decode(&apiResp)
}

// decode validates a parsed response.
func decode(r *APIResponse) (geo.Coordinate, error) {
	if r.HasError() {
		return geo.Coordinate{}, fmt.Errorf("%w: %s", ErrNotFound, r.APIError())
	}
	if r.Latt == nil || r.Longt == nil {
		return geo.Coordinate{}, fmt.Errorf("%w: response has no latt/longt", ErrNetwork)
	}

	lat, err := r.Latt.Float()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: latt: %w", ErrInvalidCoordinate, err)
	}
	lon, err := r.Longt.Float()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: longt: %w", ErrInvalidCoordinate, err)
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%w: %s out of range", ErrInvalidCoordinate, c)
	}
	return c, nil
}
