package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels fetches whose response was applied.
	OutcomeSuccess = "success"
	// OutcomeError labels fetches that failed at the transport or HTTP layer.
	OutcomeError = "error"
	// OutcomeStale labels fetches that completed after being superseded.
	OutcomeStale = "stale"
)

var (
	fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "fetches_total",
			Help:      "List fetches issued by view controllers, partitioned by resource and outcome.",
		},
		[]string{"resource", "outcome"},
	)

	fetchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "fetch_seconds",
			Help:      "List fetch latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15},
		},
		[]string{"resource"},
	)

	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "gateway_requests_total",
			Help:      "Gateway requests handled, partitioned by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register attaches portal collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fetchesTotal,
		fetchDurationSeconds,
		gatewayRequestsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFetch records a list fetch duration and outcome label.
func ObserveFetch(resource string, duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeError, OutcomeStale:
	default:
		outcome = OutcomeSuccess
	}
	fetchesTotal.WithLabelValues(resource, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	fetchDurationSeconds.WithLabelValues(resource).Observe(duration.Seconds())
}

// ObserveGatewayRequest counts a gateway response.
func ObserveGatewayRequest(route string, code int) {
	gatewayRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
