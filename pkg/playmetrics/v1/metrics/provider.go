package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider defines the interface for accessing the collector's
// metrics registry. Consumers choose the exposition method (textfile
// snapshot, HTTP endpoint) against the registry it returns.
type RegistryProvider interface {
	// Registry returns the Prometheus registry holding the run metrics.
	Registry() *prometheus.Registry
}
