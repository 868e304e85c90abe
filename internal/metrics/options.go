package metrics

import "github.com/prometheus/client_golang/prometheus"

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(c *Collector) {
		if namespace != "" {
			c.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(c *Collector) {
		if subsystem != "" {
			c.subsystem = subsystem
		}
	}
}

// WithRegistry registers metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Collector) {
		if reg != nil {
			c.registry = reg
		}
	}
}
