package herd

import (
	"context"
	"fmt"
	"time"

	"github.com/els0r/geoherd/pkg/protocol"
	"github.com/els0r/telemetry/logging"
)

// handleIAmAt admits a client position report. The reply always echoes the
// record that is live after the update attempt; only an admitted candidate
// is handed to the flooder
func (s *Server) handleIAmAt(ctx context.Context, conn *clientConn, msg protocol.IAmAt) {
	logger := logging.FromContext(ctx).With("client", msg.ClientID)

	candidate := protocol.NewRecord(s.name, msg.ClientID, msg.Coords, msg.Timestamp, time.Now())

	live, accepted, err := s.registry.Update(candidate)
	if err != nil {
		// cannot be reached for a validated IAMAT
		logger.Errorf("failed to update registry: %v", err)
		return
	}

	if werr := conn.writeString(live.String() + "\n"); werr != nil {
		logger.Errorf("failed to write reply: %v", werr)
	}

	if !accepted {
		admissionsStale.Inc()
		logger.Debug("stale position report, not flooding")
		return
	}
	admissionsAccepted.Inc()

	// the origin goes on its own trail so it never receives an echo from
	// a neighbor
	s.flood(ctx, protocol.At{Record: live, Trail: []string{s.name}})
}

// handleAt applies a gossiped update from a peer and forwards it to all
// neighbors not yet on the trail. Forwarding happens whether or not the
// registry changed: the trail filter keeps already-seen updates from
// cycling, and re-forwarding makes delivery idempotent on any graph
func (s *Server) handleAt(ctx context.Context, conn *clientConn, msg protocol.At) {
	logger := logging.FromContext(ctx).With("client", msg.Record.ClientID, "origin", msg.Record.Origin)

	_, accepted, err := s.registry.Update(msg.Record)
	if err != nil {
		// malformed peer traffic is dropped here, after token-count
		// validation admitted it
		logger.Errorf("discarding peer update: %v", err)
		return
	}
	if accepted {
		peerUpdatesAccepted.Inc()
	} else {
		peerUpdatesStale.Inc()
		logger.Debug("stale or duplicate peer update")
	}

	trail := msg.Trail
	if !onTrail(trail, s.name) {
		trail = append(trail, s.name)
	}
	s.flood(ctx, protocol.At{Record: msg.Record, Trail: trail})

	// the sender closes its connection on any reply data
	confirmation := fmt.Sprintf("%s received updated location for %s", s.name, msg.Record.ClientID)
	if werr := conn.writeString(confirmation); werr != nil {
		logger.Errorf("failed to write confirmation: %v", werr)
	}
}

// handleWhatsAt issues an asynchronous proximity lookup around a client's
// last known position. The composite reply is written on the originating
// connection once the oracle responds; on oracle failure no reply is sent
// and the connection remains usable
func (s *Server) handleWhatsAt(ctx context.Context, conn *clientConn, line string, msg protocol.WhatsAt) {
	rec, exists := s.registry.Get(msg.ClientID)
	if !exists {
		s.reject(ctx, conn, line, fmt.Errorf("no known location for client %q", msg.ClientID))
		return
	}

	logger := logging.FromContext(ctx).With("client", msg.ClientID)

	lat, lon, err := protocol.SplitCoords(rec.Coords)
	if err != nil {
		// possible for a record gossiped by a misbehaving peer
		oracleFailures.Inc()
		logger.Errorf("stored coordinates unusable: %v", err)
		return
	}

	radiusMeters := msg.RadiusKm * 1000

	go func() {
		body, err := s.oracle.Nearby(ctx, lat, lon, radiusMeters, msg.Bound)
		if err != nil {
			oracleFailures.Inc()
			logger.Errorf("places lookup failed: %v", err)
			return
		}
		if werr := conn.writeString(rec.String() + "\n" + string(body) + "\n\n"); werr != nil {
			logger.Errorf("failed to write places reply: %v", werr)
		}
	}()
}

func onTrail(trail []string, name string) bool {
	for _, t := range trail {
		if t == name {
			return true
		}
	}
	return false
}
