// Package herd defines the routes and response shapes of the geoherd status
// API. The API is read-only: it exposes the registry and topology of one
// server for operators and tests, peers never speak it
package herd

const (
	// DefaultServerAddress is the default address of the status API
	DefaultServerAddress = "localhost:8155"

	// ClientsRoute denotes the route to the registry snapshot endpoints
	ClientsRoute = "/clients"

	// TopologyRoute denotes the route to the topology endpoint
	TopologyRoute = "/topology"
)

// ClientRecord is the JSON rendering of one live location record
type ClientRecord struct {
	Origin    string `json:"origin"`
	Skew      string `json:"skew"`
	ClientID  string `json:"client_id"`
	Coords    string `json:"coords"`
	Timestamp string `json:"timestamp"`

	// AT carries the record's wire serialization
	AT string `json:"at"`
}

// ClientsResponse is returned by the registry snapshot endpoint
type ClientsResponse struct {
	Server  string                  `json:"server"`
	Count   int                     `json:"count"`
	Clients map[string]ClientRecord `json:"clients"`
}

// TopologyResponse is returned by the topology endpoint
type TopologyResponse struct {
	Server     string            `json:"server"`
	ListenAddr string            `json:"listen_addr"`
	Neighbors  []string          `json:"neighbors"`
	Peers      map[string]uint16 `json:"peers"`
}

// Error is the generic error response of the status API
type Error struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}
