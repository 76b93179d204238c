package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks currently open channel connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "swapdeck",
		Subsystem: "channel",
		Name:      "active_connections",
		Help:      "Number of open websocket connections.",
	})

	// MessagesSent counts envelopes fanned out to clients.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapdeck",
		Subsystem: "channel",
		Name:      "messages_sent_total",
		Help:      "Total envelopes sent to clients.",
	})

	// MessagesReceived counts envelopes received from clients.
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swapdeck",
		Subsystem: "channel",
		Name:      "messages_received_total",
		Help:      "Total envelopes received from clients.",
	})

	// PollErrors counts failed upstream poll calls by kind.
	PollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swapdeck",
		Subsystem: "poller",
		Name:      "errors_total",
		Help:      "Total failed upstream poll requests.",
	}, []string{"poll"})
)

// Handler returns a gin handler serving the prometheus registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
