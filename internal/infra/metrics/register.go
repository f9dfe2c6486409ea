package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registry struct {
	mu      sync.Mutex
	pending []prometheus.Collector
	done    bool
}

// register queues collectors declared in this package's init functions.
func register(cs ...prometheus.Collector) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.pending = append(registry.pending, cs...)
}

// MustRegister installs every queued collector into the default Prometheus
// registry. Calling it more than once is a no-op.
func MustRegister() {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.done {
		return
	}
	registry.done = true
	if len(registry.pending) > 0 {
		prometheus.MustRegister(registry.pending...)
	}
}
