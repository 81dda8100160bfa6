package resilience

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu          sync.RWMutex
	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
)

// RegisterMetrics installs breaker collectors on reg. Calling it more than
// once reuses the already registered collectors.
func RegisterMetrics(namespace string, reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	state := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed,1=open,2=half-open.",
	}, []string{"target"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transition_total",
		Help:      "Count of breaker state transitions.",
	}, []string{"target", "from", "to"})

	if err := reg.Register(state); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		state = are.ExistingCollector.(*prometheus.GaugeVec)
	}
	if err := reg.Register(transitions); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return err
		}
		transitions = are.ExistingCollector.(*prometheus.CounterVec)
	}

	metricsMu.Lock()
	breakerState = state
	breakerTransitions = transitions
	metricsMu.Unlock()
	return nil
}

func setStateGauge(target string, s State) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if breakerState != nil {
		breakerState.WithLabelValues(target).Set(float64(s))
	}
}

func countTransition(target string, from, to State) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if breakerTransitions != nil {
		breakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
	}
}
