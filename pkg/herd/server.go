// Package herd implements the per-server protocol engine: the TCP accept
// loop, ordered per-connection command dispatch, the location handlers and
// the inter-server flooder
package herd

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/els0r/geoherd/pkg/places"
	"github.com/els0r/geoherd/pkg/protocol"
	"github.com/els0r/geoherd/pkg/registry"
	"github.com/els0r/geoherd/pkg/topology"
	"github.com/els0r/telemetry/logging"
)

const (
	// lines are bounded by available memory, not by protocol policy; the
	// scanner still needs a hard cap to hand out buffers
	maxLineSize = 64 << 20 // 64 MiB

	initialBufferSize = 4096
)

// Server is one member of the herd. It accepts client and peer connections
// on its configured port and shares one registry with all of them
type Server struct {
	name string
	topo *topology.Topology

	registry *registry.Registry
	oracle   *places.Client
}

// New creates the protocol engine for the named server
func New(name string, topo *topology.Topology, reg *registry.Registry, oracle *places.Client) *Server {
	return &Server{
		name:     name,
		topo:     topo,
		registry: reg,
		oracle:   oracle,
	}
}

// Name returns the server's well-known name
func (s *Server) Name() string {
	return s.name
}

// Run binds the configured loopback port and serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.topo.Addr(s.name))
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections from listener until ctx is cancelled. Open
// connections and in-flight flood attempts are dropped on shutdown, there
// is no graceful drain
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	logger := logging.FromContext(ctx)
	logger.With("addr", listener.Addr().String()).Infof("server %s listening", s.name)

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			logger.Errorf("failed to close listener: %v", err)
		}
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Errorf("failed to accept connection: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn drives one inbound connection: messages are processed strictly
// in received order, the connection lives until either side drops it
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	openConnections.Inc()
	defer openConnections.Dec()
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.FromContext(ctx).Errorf("failed to close connection: %v", err)
		}
	}()

	ctx = logging.WithFields(ctx, slog.String("remote", conn.RemoteAddr().String()))
	logger := logging.FromContext(ctx)
	logger.Debug("new inbound connection")

	cc := &clientConn{Conn: conn}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)
	scanner.Split(protocol.ScanLines)

	for scanner.Scan() {
		s.dispatch(ctx, cc, scanner.Text())
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Errorf("failed to read from connection: %v", err)
	}
	logger.Debug("connection dropped")
}

// dispatch parses and handles a single line. A handler may write to the
// connection inline; WHATSAT completion writes arrive asynchronously through
// the same clientConn
func (s *Server) dispatch(ctx context.Context, conn *clientConn, line string) {
	logger := logging.FromContext(ctx)
	logger.With("line", line).Debug("received message")

	msg, err := protocol.Parse(line)
	if err != nil {
		s.reject(ctx, conn, line, err)
		return
	}

	switch m := msg.(type) {
	case protocol.IAmAt:
		s.handleIAmAt(ctx, conn, m)
	case protocol.WhatsAt:
		s.handleWhatsAt(ctx, conn, line, m)
	case protocol.At:
		s.handleAt(ctx, conn, m)
	}
}

// reject answers a line that failed validation. The connection stays open
// and continues to be read
func (s *Server) reject(ctx context.Context, conn *clientConn, line string, err error) {
	malformedLines.Inc()
	logging.FromContext(ctx).With("line", line).Errorf("rejecting message: %v", err)

	if werr := conn.writeString("? " + line + "\n"); werr != nil {
		logging.FromContext(ctx).Errorf("failed to write rejection reply: %v", werr)
	}
}

// clientConn serializes writers onto one inbound connection: the inline
// handlers and any asynchronous WHATSAT completions must not interleave
// partial replies
type clientConn struct {
	net.Conn
	sync.Mutex
}

func (c *clientConn) writeString(s string) error {
	c.Lock()
	defer c.Unlock()

	_, err := io.WriteString(c.Conn, s)
	return err
}
