// Package metrics defines and registers all custom Prometheus metrics for the
// exchange API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init via promauto; /metrics exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exchange"

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrderTransitionsTotal counts committed ledger writes.
// Label:
//   - status: the status the order moved into ("pending" for creation)
var OrderTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Total number of committed order lifecycle transitions.",
	},
	[]string{"status"},
)

// OrderRejectionsTotal counts lifecycle commands refused by a precondition.
// Labels:
//   - operation: create, accept, request_verification, complete, cancel, send_message
//   - code: the wire error code (e.g. "ALREADY_ACCEPTED")
var OrderRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_rejections_total",
		Help:      "Total number of lifecycle commands rejected, by operation and error code.",
	},
	[]string{"operation", "code"},
)

// OrdersByStatus is refreshed by the stats job from the ledger.
var OrdersByStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "orders_by_status",
		Help:      "Number of orders currently in each status.",
	},
	[]string{"status"},
)

// MessagesSentTotal counts persisted chat messages.
var MessagesSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of chat messages stored.",
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsTotal counts delivery attempts.
// Labels:
//   - event: NEW_ORDER, ORDER_ACCEPTED, …
//   - result: "delivered", "offline" (no channel) or "dropped" (closed or slow channel)
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Total number of notification delivery attempts, by event and result.",
	},
	[]string{"event", "result"},
)

// ConnectionsActive tracks registered channels.
var ConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "Current number of registered notification channels.",
	},
)

// ConnectionsSupersededTotal counts channels closed because the same user connected again.
var ConnectionsSupersededTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_connections_superseded_total",
		Help:      "Total number of channels closed by a newer session of the same user.",
	},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailTotal counts outbound mail by result: "sent", "failed" or "dropped" (queue full).
var MailTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_total",
		Help:      "Total number of outbound mails, by result.",
	},
	[]string{"result"},
)

// MailQueueDepth tracks the current number of mails waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of mails pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailDeliveryDuration measures how long a single send takes.
var MailDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single outbound mail send.",
		Buckets:   prometheus.DefBuckets,
	},
)
