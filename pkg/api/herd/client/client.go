// Package client provides a client for the geoherd status API
package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/els0r/geoherd/pkg/api"
	herdapi "github.com/els0r/geoherd/pkg/api/herd"
	"github.com/fako1024/httpc"
)

const defaultRequestTimeout = 30 * time.Second

// Client calls the status API of a single herd member
type Client struct {
	client  *http.Client
	timeout time.Duration

	scheme   string
	hostAddr string
}

// Option configures the client
type Option func(*Client)

// WithRequestTimeout sets the timeout for every request
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithScheme sets the scheme for client requests. http is the default
func WithScheme(scheme string) Option {
	return func(c *Client) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// New creates a new status API client
func New(addr string, opts ...Option) *Client {
	c := &Client{
		client:   http.DefaultClient,
		timeout:  defaultRequestTimeout,
		scheme:   "http://",
		hostAddr: addr,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newURL synthesizes a new URL for a given path depending on how the client
// was configured
func (c *Client) newURL(path string) string {
	if strings.HasPrefix(c.hostAddr, "http") {
		return c.hostAddr + path
	}
	return c.scheme + c.hostAddr + path
}

func (c *Client) get(ctx context.Context, url string, res any) error {
	return httpc.NewWithClient(http.MethodGet, url, c.client).
		ParseJSON(res).
		Timeout(c.timeout).
		RunWithContext(ctx)
}

// Info returns the service info of the queried server
func (c *Client) Info(ctx context.Context) (*api.ServiceInfo, error) {
	var res = new(api.ServiceInfo)

	err := c.get(ctx, c.newURL(api.InfoRoute), res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Clients returns the queried server's registry snapshot
func (c *Client) Clients(ctx context.Context) (*herdapi.ClientsResponse, error) {
	var res = new(herdapi.ClientsResponse)

	err := c.get(ctx, c.newURL(herdapi.ClientsRoute), res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Client returns the queried server's live record for a single client
func (c *Client) Client(ctx context.Context, clientID string) (*herdapi.ClientRecord, error) {
	var res = new(herdapi.ClientRecord)

	err := c.get(ctx, c.newURL(herdapi.ClientsRoute+"/"+clientID), res)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Topology returns the queried server's view of the herd
func (c *Client) Topology(ctx context.Context) (*herdapi.TopologyResponse, error) {
	var res = new(herdapi.TopologyResponse)

	err := c.get(ctx, c.newURL(herdapi.TopologyRoute), res)
	if err != nil {
		return nil, err
	}
	return res, nil
}
