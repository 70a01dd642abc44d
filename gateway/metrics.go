package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "gateway_operations_total",
	Help: "Resource gateway calls by collection, operation and outcome.",
}, []string{"collection", "operation", "outcome"})

func observe(collection, operation string, o Outcome) {
	operationsTotal.WithLabelValues(collection, operation, o.Kind.String()).Inc()
}
