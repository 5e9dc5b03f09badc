package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()
)

// Registry exposes the collector registry for the /metrics handler.
func Registry() *prometheus.Registry {
	registerOnce.Do(func() {
		registry.MustRegister(collectors()...)
	})
	return registry
}

func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

var pending []prometheus.Collector

func collectors() []prometheus.Collector { return pending }
