package herd

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/els0r/geoherd/pkg/defaults"
	"github.com/els0r/geoherd/pkg/protocol"
	"github.com/els0r/telemetry/logging"
)

// flood fans a location update out to every neighbor not yet on the trail.
// Each neighbor send runs independently and never blocks the originating
// handler. Because every hop appends the current custodian to the trail and
// the server set is finite, any update visits each server at most once
func (s *Server) flood(ctx context.Context, msg protocol.At) {
	line := msg.Record.String() + " " + strings.Join(msg.Trail, " ") + "\n"

	for _, neighbor := range s.topo.Neighbors(s.name) {
		if onTrail(msg.Trail, neighbor) {
			continue
		}
		go s.sendUpdate(ctx, neighbor, line, msg.Record.ClientID)
	}
}

// sendUpdate performs one outbound flood attempt: dial, send, await a short
// confirmation, close. A failed attempt is logged and dropped; there is no
// retry and no queue
func (s *Server) sendUpdate(ctx context.Context, neighbor, line, clientID string) {
	ctx = logging.WithFields(ctx, slog.String("peer", neighbor))
	logger := logging.FromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, defaults.FloodTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.topo.Addr(neighbor))
	if err != nil {
		floodsFailed.Inc()
		logger.Errorf("could not connect to neighboring server: %v", err)
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && ctx.Err() == nil {
			logger.Errorf("failed to close peer connection: %v", cerr)
		}
	}()

	// abandon the attempt if the timeout fires or the process shuts down
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			logger.Errorf("failed to set peer deadline: %v", err)
			return
		}
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Infof("sending updated location for %s", clientID)
	if _, err := io.WriteString(conn, line); err != nil {
		floodsFailed.Inc()
		logger.Errorf("failed to send update: %v", err)
		return
	}

	// any reply byte confirms receipt; the content is logged, not parsed
	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil {
		floodsFailed.Inc()
		logger.Errorf("no confirmation from peer: %v", err)
		return
	}
	floodsSent.Inc()
	logger.With("confirmation", strings.TrimSpace(string(buf[:n]))).Debug("peer confirmed update, closing connection")
}
