package herd

import (
	"github.com/els0r/geoherd/cmd/geoherd/config"
	"github.com/prometheus/client_golang/prometheus"
)

const herdSubsystem = "herd"

var admissionsAccepted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "admissions_accepted_total",
	Help:      "Number of client position reports admitted into the registry",
})
var admissionsStale = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "admissions_stale_total",
	Help:      "Number of client position reports rejected as stale or duplicate",
})
var peerUpdatesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "peer_updates_accepted_total",
	Help:      "Number of gossiped peer updates admitted into the registry",
})
var peerUpdatesStale = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "peer_updates_stale_total",
	Help:      "Number of gossiped peer updates dropped as stale or duplicate",
})
var malformedLines = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "malformed_lines_total",
	Help:      "Number of inbound lines rejected by the validator",
})
var floodsSent = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "flood_messages_sent_total",
	Help:      "Number of confirmed outbound flood messages",
})
var floodsFailed = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "flood_attempts_failed_total",
	Help:      "Number of outbound flood attempts that failed or went unconfirmed",
})
var oracleFailures = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "oracle_failures_total",
	Help:      "Number of failed places oracle lookups",
})

var openConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: config.ServiceName,
	Subsystem: herdSubsystem,
	Name:      "open_connections",
	Help:      "Number of currently open inbound connections",
})

func init() {
	prometheus.MustRegister(
		admissionsAccepted,
		admissionsStale,
		peerUpdatesAccepted,
		peerUpdatesStale,
		malformedLines,
		floodsSent,
		floodsFailed,
		oracleFailures,
		openConnections,
	)
}
