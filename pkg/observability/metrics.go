package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application.
// Every method is safe to call on a nil *Collector, which records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	MechanicsCreated prometheus.Counter
	MechanicsDeleted prometheus.Counter
	LinksCreated     prometheus.Counter
	LinksDeleted     prometheus.Counter
	UsersRegistered  prometheus.Counter

	// Tree metrics
	TreeBuilds        *prometheus.CounterVec
	TreeBuildDuration prometheus.Histogram
	TreeSize          prometheus.Histogram

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheErrors prometheus.Counter
}

// NewCollector creates a collector with its own registry under the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MechanicsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mechanics_created_total",
			Help:      "Total number of mechanics created",
		}),
		MechanicsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mechanics_deleted_total",
			Help:      "Total number of mechanics deleted",
		}),
		LinksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Total number of links created",
		}),
		LinksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Total number of links deleted",
		}),
		UsersRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_registered_total",
			Help:      "Total number of registered users",
		}),
		TreeBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_builds_total",
				Help:      "Total number of evolution tree builds by result",
			},
			[]string{"result"},
		),
		TreeBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_build_duration_seconds",
			Help:      "Evolution tree build duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TreeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tree_size_nodes",
			Help:      "Number of nodes in built evolution trees",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of tree cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of tree cache misses",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of failed tree cache operations",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.MechanicsCreated,
		c.MechanicsDeleted,
		c.LinksCreated,
		c.LinksDeleted,
		c.UsersRegistered,
		c.TreeBuilds,
		c.TreeBuildDuration,
		c.TreeSize,
		c.CacheHits,
		c.CacheMisses,
		c.CacheErrors,
	)

	return c
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveTreeBuild records a tree build with its outcome and node count
func (c *Collector) ObserveTreeBuild(result string, duration time.Duration, nodes int) {
	if c == nil {
		return
	}
	c.TreeBuilds.WithLabelValues(result).Inc()
	c.TreeBuildDuration.Observe(duration.Seconds())
	if nodes > 0 {
		c.TreeSize.Observe(float64(nodes))
	}
}

// IncrementCounter increments a named business counter
func (c *Collector) IncrementCounter(name string) {
	if c == nil {
		return
	}
	switch name {
	case "mechanics_created":
		c.MechanicsCreated.Inc()
	case "mechanics_deleted":
		c.MechanicsDeleted.Inc()
	case "links_created":
		c.LinksCreated.Inc()
	case "links_deleted":
		c.LinksDeleted.Inc()
	case "users_registered":
		c.UsersRegistered.Inc()
	case "cache_hits":
		c.CacheHits.Inc()
	case "cache_misses":
		c.CacheMisses.Inc()
	case "cache_errors":
		c.CacheErrors.Inc()
	}
}
