package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rednote_http_requests_total",
			Help: "Total number of HTTP requests processed by the rednote service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rednote_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	storeSubscriptionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rednote_store_subscriptions_active",
			Help: "Number of active live-query subscriptions.",
		},
		[]string{"collection"},
	)
	storeSnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rednote_store_snapshots_total",
			Help: "Total number of live-query snapshots delivered.",
		},
		[]string{"collection"},
	)
	storeWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rednote_store_writes_total",
			Help: "Total number of document writes.",
		},
		[]string{"collection", "op"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rednote_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rednote_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rednote_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		storeSubscriptionsActive,
		storeSnapshotsTotal,
		storeWritesTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// CollectionRoot reduces a collection path to its top-level collection so
// per-post and per-chat subcollections do not explode label cardinality.
func CollectionRoot(collection string) string {
	if i := strings.IndexByte(collection, '/'); i >= 0 {
		return collection[:i]
	}
	return collection
}

func IncStoreSubscription(collection string) {
	storeSubscriptionsActive.WithLabelValues(collection).Inc()
}

func DecStoreSubscription(collection string) {
	storeSubscriptionsActive.WithLabelValues(collection).Dec()
}

func IncStoreSnapshot(collection string) {
	storeSnapshotsTotal.WithLabelValues(collection).Inc()
}

func IncStoreWrite(collection, op string) {
	storeWritesTotal.WithLabelValues(collection, op).Inc()
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
