// Package metrics provides Prometheus-backed observability for the GSE
// codec: packet counts, fragment reassembly outcomes, and CRC failures.
// All recorder interfaces accept a nil receiver as "metrics disabled" so
// callers never need a separate enabled/disabled branch.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry backing all
// metrics constructors in this package. Calling it more than once replaces
// the previous registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// GetRegistry returns the current registry, or nil if InitRegistry has not
// been called.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}
