package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "medilens_admin"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	LicenseOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "license",
		Name:      "operations_total",
		Help:      "License store operations by name and result.",
	}, []string{"operation", "result"})

	PaymentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "operations_total",
		Help:      "Payment store operations by name and result.",
	}, []string{"operation", "result"})

	RefundedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payment",
		Name:      "refunded_won_total",
		Help:      "Sum of refunded amounts in won.",
	})

	BillingEventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "events",
		Name:      "subscribers",
		Help:      "Connected billing event websocket clients.",
	})
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveLicenseOperation records the outcome of a license store operation.
func ObserveLicenseOperation(operation string, err error) {
	LicenseOperationsTotal.WithLabelValues(operation, result(err)).Inc()
}

// ObservePaymentOperation records the outcome of a payment store operation.
func ObservePaymentOperation(operation string, err error) {
	PaymentOperationsTotal.WithLabelValues(operation, result(err)).Inc()
}
