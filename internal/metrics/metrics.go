// Package metrics exposes the layout engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "garden"

var (
	// Ticks counts simulation steps across all runs.
	Ticks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "simulation",
		Name:      "ticks_total",
		Help:      "Total force simulation ticks executed",
	})

	// RunTicks records how many ticks each run took to settle.
	RunTicks = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "simulation",
		Name:      "run_ticks",
		Help:      "Ticks per simulation run until settle or cap",
		Buckets:   []float64{10, 50, 100, 200, 400, 800, 1600, 3200},
	})

	// Movement is the aggregate velocity of the last tick.
	Movement = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "simulation",
		Name:      "movement",
		Help:      "Aggregate |vx|+|vy| of the most recent tick",
	})

	// Rebuilds counts graph rebuilds. Labels: reason (load, mutation, reload)
	Rebuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "rebuilds_total",
		Help:      "Total graph rebuilds by reason",
	}, []string{"reason"})

	// Dropped counts relationships skipped because an endpoint was missing.
	Dropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "dropped_relationships_total",
		Help:      "Relationships dropped at build time for a missing endpoint",
	})

	Nodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "nodes",
		Help:      "Nodes in the current working set",
	})

	Edges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "graph",
		Name:      "edges",
		Help:      "Edges in the current working set",
	})

	// Frames counts scenes pushed to viewer connections.
	Frames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "frames_broadcast_total",
		Help:      "Scenes broadcast to websocket viewers",
	})

	// Viewers is the number of open websocket connections.
	Viewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "viewers",
		Help:      "Connected websocket viewers",
	})

	// Commands counts viewer commands. Labels: command, status (ok, error)
	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "commands_total",
		Help:      "Viewer commands handled by command and status",
	}, []string{"command", "status"})
)

// ObserveBuild records the outcome of one graph build.
func ObserveBuild(reason string, nodes, edges, dropped int) {
	Rebuilds.WithLabelValues(reason).Inc()
	Nodes.Set(float64(nodes))
	Edges.Set(float64(edges))
	if dropped > 0 {
		Dropped.Add(float64(dropped))
	}
}

// ObserveTick records one simulation step.
func ObserveTick(movement float64) {
	Ticks.Inc()
	Movement.Set(movement)
}
