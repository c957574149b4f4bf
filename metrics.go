package harbor

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/go-utils/metrics"
)

const (
	outcomeOK      = "OK"
	outcomeUnknown = "UNKNOWN"
)

// MetricsMiddleware records Prometheus metrics for service builds and
// instantiations, labelled by service type and outcome code:
//
//	m, err := harbor.NewMetricsMiddleware(prometheus.DefaultRegisterer)
//	f := harbor.NewServiceFactory(c, harbor.WithMiddleware(m))
type MetricsMiddleware struct {
	builds         *prometheus.CounterVec
	instantiations *prometheus.CounterVec
	inFlight       *prometheus.GaugeVec
}

// NewMetricsMiddleware creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func NewMetricsMiddleware(reg prometheus.Registerer) (*MetricsMiddleware, error) {
	builds := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harbor",
			Name:      "builds_total",
			Help:      "Total number of service provider builds.",
		},
		[]string{"service", "code"},
	)

	instantiations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "harbor",
			Name:      "instantiations_total",
			Help:      "Total number of service instantiations.",
		},
		[]string{"service", "code"},
	)

	inFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "harbor",
			Name:      "instantiations_in_flight",
			Help:      "Number of service instantiations currently running.",
		},
		[]string{"service"},
	)

	var err error

	if builds, err = registerOrReuse(reg, builds); err != nil {
		return nil, err
	}

	if instantiations, err = registerOrReuse(reg, instantiations); err != nil {
		return nil, err
	}

	if inFlight, err = registerOrReuse(reg, inFlight); err != nil {
		return nil, err
	}

	return &MetricsMiddleware{
		builds:         builds,
		instantiations: instantiations,
		inFlight:       inFlight,
	}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}

		return c, errors.Wrap(err, "register harbor metrics")
	}

	return c, nil
}

// BeforeBuild implements Middleware.
func (m *MetricsMiddleware) BeforeBuild(context.Context, reflect.Type) error {
	return nil
}

// AfterBuild implements Middleware.
func (m *MetricsMiddleware) AfterBuild(_ context.Context, serviceType, _ reflect.Type, err error) error {
	m.builds.WithLabelValues(typeName(serviceType), outcome(err)).Inc()
	return nil
}

// BeforeInstantiate implements Middleware.
func (m *MetricsMiddleware) BeforeInstantiate(_ context.Context, serviceType reflect.Type) error {
	m.inFlight.WithLabelValues(typeName(serviceType)).Inc()
	return nil
}

// AfterInstantiate implements Middleware.
func (m *MetricsMiddleware) AfterInstantiate(_ context.Context, serviceType reflect.Type, _ any, err error) error {
	m.inFlight.WithLabelValues(typeName(serviceType)).Dec()
	m.instantiations.WithLabelValues(typeName(serviceType), outcome(err)).Inc()
	return nil
}

func outcome(err error) string {
	if err == nil {
		return outcomeOK
	}

	if code := CodeOf(err); code != "" {
		return code
	}

	return outcomeUnknown
}

// CollectorMiddleware records build and instantiation totals into a
// go-utils metrics collector, for applications that do not run a
// Prometheus registry:
//
//	collector := metrics.NewMetricsCollector("app")
//	f := harbor.NewServiceFactory(c, harbor.WithMiddleware(harbor.NewCollectorMiddleware(collector)))
type CollectorMiddleware struct {
	builds                metrics.Counter
	buildFailures         metrics.Counter
	instantiations        metrics.Counter
	instantiationFailures metrics.Counter
	inFlight              metrics.Gauge
}

// NewCollectorMiddleware creates the metrics on factory. Metrics the
// factory already holds under the same names are shared.
func NewCollectorMiddleware(factory metrics.MetricFactory) *CollectorMiddleware {
	counter := func(name, desc string) metrics.Counter {
		return factory.Counter(name, metrics.WithNamespace("harbor"), metrics.WithDescription(desc))
	}

	return &CollectorMiddleware{
		builds:                counter("builds_total", "Total number of service provider builds."),
		buildFailures:         counter("build_failures_total", "Number of failed service provider builds."),
		instantiations:        counter("instantiations_total", "Total number of service instantiations."),
		instantiationFailures: counter("instantiation_failures_total", "Number of failed service instantiations."),
		inFlight: factory.Gauge("instantiations_in_flight",
			metrics.WithNamespace("harbor"),
			metrics.WithDescription("Number of service instantiations currently running."),
		),
	}
}

// BeforeBuild implements Middleware.
func (m *CollectorMiddleware) BeforeBuild(context.Context, reflect.Type) error {
	return nil
}

// AfterBuild implements Middleware.
func (m *CollectorMiddleware) AfterBuild(_ context.Context, _, _ reflect.Type, err error) error {
	m.builds.Inc()

	if err != nil {
		m.buildFailures.Inc()
	}

	return nil
}

// BeforeInstantiate implements Middleware.
func (m *CollectorMiddleware) BeforeInstantiate(context.Context, reflect.Type) error {
	m.inFlight.Inc()
	return nil
}

// AfterInstantiate implements Middleware.
func (m *CollectorMiddleware) AfterInstantiate(_ context.Context, _ reflect.Type, _ any, err error) error {
	m.inFlight.Dec()
	m.instantiations.Inc()

	if err != nil {
		m.instantiationFailures.Inc()
	}

	return nil
}
