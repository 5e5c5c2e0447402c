package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/carina-io/mdlvm/pkg/devicemanager/types"
)

const (
	reconcileSubSystem string = "reconcile"
)

var (
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   reconcileSubSystem,
			Name:        "total",
			Help:        "The number of volume reconciliations by array action and result.",
			ConstLabels: constLabels,
		},
		[]string{"device", "action", "result"},
	)
	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   reconcileSubSystem,
			Name:        "duration_seconds",
			Help:        "Time spent bringing one volume to the ready state.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.5, 1, 5, 10, 30, 60, 300, 900, 3600},
		},
		[]string{"device"},
	)
)

// ObserveReconcile records one Provision call.
func ObserveReconcile(device string, action types.RaidAction, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	reconcileTotal.WithLabelValues(device, string(action), result).Inc()
	reconcileDuration.WithLabelValues(device).Observe(duration.Seconds())
}

// Register adds the reconcile metrics and c to reg.
func Register(reg prometheus.Registerer, c prometheus.Collector) error {
	for _, collector := range []prometheus.Collector{reconcileTotal, reconcileDuration, c} {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}
