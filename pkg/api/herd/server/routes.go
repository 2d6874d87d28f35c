package server

import (
	"net/http"

	herdapi "github.com/els0r/geoherd/pkg/api/herd"
	"github.com/els0r/geoherd/pkg/protocol"
	"github.com/gin-gonic/gin"
)

const clientKey = "client"

func toClientRecord(rec protocol.Record) herdapi.ClientRecord {
	return herdapi.ClientRecord{
		Origin:    rec.Origin,
		Skew:      rec.Skew,
		ClientID:  rec.ClientID,
		Coords:    rec.Coords,
		Timestamp: rec.Timestamp,
		AT:        rec.String(),
	}
}

// getClients returns a snapshot of all live location records
func (server *Server) getClients(c *gin.Context) {
	snapshot := server.registry.Snapshot()

	resp := herdapi.ClientsResponse{
		Server:  server.name,
		Count:   len(snapshot),
		Clients: make(map[string]herdapi.ClientRecord, len(snapshot)),
	}
	for id, rec := range snapshot {
		resp.Clients[id] = toClientRecord(rec)
	}

	c.JSON(http.StatusOK, resp)
}

// getClient returns the live location record of a single client
func (server *Server) getClient(c *gin.Context) {
	clientID := c.Param(clientKey)

	rec, exists := server.registry.Get(clientID)
	if !exists {
		c.JSON(http.StatusNotFound, herdapi.Error{
			StatusCode: http.StatusNotFound,
			Error:      "no known location for client " + clientID,
		})
		return
	}

	c.JSON(http.StatusOK, toClientRecord(rec))
}

// getTopology returns this server's view of the herd
func (server *Server) getTopology(c *gin.Context) {
	resp := herdapi.TopologyResponse{
		Server:     server.name,
		ListenAddr: server.topo.ListenAddr,
		Neighbors:  server.topo.Neighbors(server.name),
		Peers:      make(map[string]uint16, len(server.topo.Servers)),
	}
	for name, srv := range server.topo.Servers {
		resp.Peers[name] = srv.Port
	}

	c.JSON(http.StatusOK, resp)
}
