// Package server implements the geoherd status API server
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/els0r/geoherd/cmd/geoherd/config"
	"github.com/els0r/geoherd/pkg/api"
	herdapi "github.com/els0r/geoherd/pkg/api/herd"
	"github.com/els0r/geoherd/pkg/registry"
	"github.com/els0r/geoherd/pkg/topology"
	"github.com/els0r/telemetry/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Option denotes a functional option for the status API server
type Option func(*Server)

// Server serves the read-only status API of one herd member
type Server struct {
	name     string
	topo     *topology.Topology
	registry *registry.Registry

	metrics bool
	debug   bool

	addr string

	srv    *http.Server
	router *gin.Engine
}

// WithMetrics enables prometheus metrics endpoints
func WithMetrics(enabled bool) Option {
	return func(server *Server) {
		server.metrics = enabled
	}
}

// WithDebugMode runs the gin server in debug mode (e.g. not setting the release mode)
func WithDebugMode(enabled bool) Option {
	return func(server *Server) {
		server.debug = enabled
	}
}

// New creates a new status API server
func New(addr, name string, topo *topology.Topology, reg *registry.Registry, opts ...Option) *Server {
	server := &Server{
		name:     name,
		topo:     topo,
		registry: reg,
		addr:     addr,
	}
	for _, opt := range opts {
		opt(server)
	}

	// Set Gin release / debug mode according to debug flag (must happen _before_ call to gin.New())
	if !server.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	server.router = router

	server.registerMiddlewares()
	server.registerRoutes()

	return server
}

func (server *Server) registerMiddlewares() {
	server.router.Use(
		api.TraceIDMiddleware(),
		api.RequestLoggingMiddleware(),
	)
}

func (server *Server) registerRoutes() {
	server.router.GET(api.HealthRoute, api.HealthHandler())
	server.router.GET(api.ReadyRoute, api.ReadyHandler())
	server.router.GET(api.InfoRoute, api.ServiceInfoHandler(config.ServiceName))

	clientRoutes := server.router.Group(herdapi.ClientsRoute)
	clientRoutes.GET("", server.getClients)
	clientRoutes.GET("/:"+clientKey, server.getClient)

	server.router.GET(herdapi.TopologyRoute, server.getTopology)

	if server.metrics {
		metrics.NewPrometheus(config.ServiceName, "api", nil).Register(server.router)
	}
}

const headerTimeout = 30 * time.Second

// Serve starts the status API server
func (server *Server) Serve() error {
	server.srv = &http.Server{
		Addr:              server.addr,
		Handler:           server.router.Handler(),
		ReadHeaderTimeout: headerTimeout,
	}
	return server.srv.ListenAndServe()
}

// Shutdown shuts down the status API server
func (server *Server) Shutdown(ctx context.Context) error {
	return server.srv.Shutdown(ctx)
}
