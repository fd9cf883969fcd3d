package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutations counts committed state-machine operations by kind.
var Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roomstatus_mutations_total",
	Help: "Committed room status mutations by operation.",
}, []string{"op"})

// EventsBroadcast counts events fanned out on the live channel by type.
var EventsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "roomstatus_events_broadcast_total",
	Help: "Events broadcast to connected sessions by type.",
}, []string{"type"})

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
