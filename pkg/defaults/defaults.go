// Package defaults holds process-wide default settings shared between the
// herd server and its tooling
package defaults

import "time"

const (

	// ListenAddr denotes the loopback address every herd server binds to
	ListenAddr = "127.0.0.1"

	// PlacesBaseURL denotes the default places-of-interest endpoint
	PlacesBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

	// FloodTimeout bounds a single outbound flood attempt (dial, send and
	// confirmation read)
	FloodTimeout = 10 * time.Second

	// PlacesTimeout bounds a single places lookup round trip
	PlacesTimeout = 30 * time.Second

	// APIShutdownGracePeriod denotes how long the status API server may take
	// to drain on shutdown
	APIShutdownGracePeriod = 30 * time.Second
)
