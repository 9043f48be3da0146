// Package metrics defines and registers all custom Prometheus metrics for
// the staffdesk ops API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default Prometheus registry at package init;
// the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "staffdesk"

// ── Offline fetch metrics ─────────────────────────────────────────────────────

// FetchTierTotal counts fetch calls by the tier that satisfied them.
// Label:
//   - tier: "memory", "local", "server", "stale", or "failed"
var FetchTierTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_tier_total",
		Help:      "Total number of fetch calls, labelled by the tier that resolved them.",
	},
	[]string{"tier"},
)

// FetchRetriesTotal counts individual failed server attempts inside the
// retry loop, including the final one.
var FetchRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_retries_total",
		Help:      "Total number of failed remote fetch attempts.",
	},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SignInsTotal counts sign-in attempts by outcome.
// Label:
//   - result: "ok", "error", or "offline" (succeeded with degraded role)
var SignInsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of sign-in attempts, labelled by outcome.",
	},
	[]string{"result"},
)

// ── Document metrics ──────────────────────────────────────────────────────────

// DocumentTransitionsTotal counts document lifecycle transitions.
// Label:
//   - status: the status applied ("SIGNED" or "REJECTED")
var DocumentTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "document_transitions_total",
		Help:      "Total number of document status transitions, by target status.",
	},
	[]string{"status"},
)
