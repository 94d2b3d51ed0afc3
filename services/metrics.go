package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts order/payment outcomes.
type Metrics struct {
	OrdersCreated    prometheus.Counter
	OrdersCancelled  prometheus.Counter
	PaymentsRecorded prometheus.Counter
	IntentsCreated   prometheus.Counter
	Rejections       *prometheus.CounterVec
	Compensations    *prometheus.CounterVec
}

// NewMetrics registers the counters on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopease", Name: "orders_created_total",
			Help: "Orders placed.",
		}),
		OrdersCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopease", Name: "orders_cancelled_total",
			Help: "Unpaid orders cancelled.",
		}),
		PaymentsRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopease", Name: "payments_recorded_total",
			Help: "Payments recorded against orders.",
		}),
		IntentsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopease", Name: "payment_intents_created_total",
			Help: "Payment intents issued by the processor.",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopease", Name: "payment_rejections_total",
			Help: "Payment intent or confirmation requests rejected, by reason.",
		}, []string{"stage", "reason"}),
		Compensations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopease", Name: "compensating_writes_total",
			Help: "Compensating writes issued after a partial multi-document update.",
		}, []string{"operation", "outcome"}),
	}
}
