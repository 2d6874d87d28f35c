// Package places implements the client for the external places-of-interest
// oracle. The oracle is an opaque HTTP GET endpoint keyed by location, radius
// and credential; its JSON response carries a top-level results array
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/els0r/geoherd/pkg/defaults"
	"github.com/els0r/telemetry/logging"
	"github.com/fako1024/httpc"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var j = jsoniter.ConfigCompatibleWithStandardLibrary

// Client issues lookups against the places oracle
type Client struct {
	client  *http.Client
	timeout time.Duration

	baseURL string
	key     string

	requestLogging bool
}

// Option configures the client
type Option func(*Client)

// WithRequestTimeout sets the timeout for every oracle round trip
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRequestLogging enables logging of oracle requests
func WithRequestLogging(b bool) Option {
	return func(c *Client) {
		c.requestLogging = b
	}
}

// New creates a client for the oracle at baseURL, authenticating with key
func New(baseURL, key string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		key:     key,
		timeout: defaults.PlacesTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.client = &http.Client{
		// trace propagation is enabled by default
		Transport: &transport{
			rt:             otelhttp.NewTransport(http.DefaultTransport),
			requestLogging: c.requestLogging,
		},
	}
	return c
}

// Nearby looks up places within radiusMeters of the given position and
// returns the oracle response re-serialized with human-readable indentation,
// its results array truncated to at most limit entries. The latitude and
// longitude halves are passed verbatim from the stored record; explicit '+'
// signs are stripped for the oracle
func (c *Client) Nearby(ctx context.Context, lat, lon string, radiusMeters float64, limit int) ([]byte, error) {
	var payload map[string]json.RawMessage

	req := httpc.NewWithClient(http.MethodGet, c.baseURL, c.client).
		QueryParams(httpc.Params{
			"location": strings.TrimPrefix(lat, "+") + "," + strings.TrimPrefix(lon, "+"),
			"radius":   strconv.FormatFloat(radiusMeters, 'f', -1, 64),
			"key":      c.key,
		}).
		ParseJSON(&payload).
		Timeout(c.timeout)

	err := req.RunWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run oracle request: %w", err)
	}

	return truncate(payload, limit)
}

// truncate caps the results array at limit entries and re-serializes the
// whole response with two-space indentation
func truncate(payload map[string]json.RawMessage, limit int) ([]byte, error) {
	raw, exists := payload["results"]
	if !exists {
		return nil, fmt.Errorf("oracle response carries no results array")
	}

	var results []json.RawMessage
	err := j.Unmarshal(raw, &results)
	if err != nil {
		return nil, fmt.Errorf("failed to decode oracle results: %w", err)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	payload["results"], err = j.Marshal(results)
	if err != nil {
		return nil, err
	}

	return j.MarshalIndent(payload, "", "  ")
}

type transport struct {
	rt             http.RoundTripper
	requestLogging bool
}

// RoundTrip implements the http.RoundTripper interface, adding logging (if
// enabled) to an oracle request
func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.rt.RoundTrip(r)
	duration := time.Since(start)

	if t.requestLogging {
		logger := logging.FromContext(r.Context()).With("req", slog.GroupValue(
			slog.String("method", r.Method),
			slog.String("host", r.URL.Host),
			slog.Duration("duration", duration),
		))

		switch {
		case err != nil:
			logger.Errorf("failed to send oracle request: %v", err)
		case resp == nil:
			logger.Error("empty oracle response")
		case 200 <= resp.StatusCode && resp.StatusCode < 300:
			logger.With("status_code", resp.StatusCode).Debug("completed oracle request")
		default:
			logger.With("status_code", resp.StatusCode).Error("oracle returned error status")
		}
	}
	return resp, err
}
