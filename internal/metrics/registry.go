package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultMu       sync.Mutex
	defaultRegistry *prometheus.Registry
	defaultMetrics  *Metrics
)

// InitDefault creates the process metrics on a private registry. Later
// calls return the same instance.
func InitDefault() *Metrics {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultMetrics == nil {
		defaultRegistry, defaultMetrics = NewRegistry()
	}
	return defaultMetrics
}

// GetDefault is InitDefault under the name callers read it by.
func GetDefault() *Metrics {
	return InitDefault()
}

// Gatherer exposes the process registry for WriteTextfile.
func Gatherer() prometheus.Gatherer {
	InitDefault()
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultRegistry
}

// NewRegistry returns a fresh registry with every finpilot metric
// registered on it.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// WriteTextfile dumps g in the text exposition format for a node_exporter
// textfile collector to pick up after the command exits.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

// Reset drops the process metrics. Tests only.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRegistry, defaultMetrics = nil, nil
}
