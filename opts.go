package harbor

import (
	"reflect"

	logger "github.com/xraph/go-utils/log"
)

// ProvideOption configures how a constructor is registered
type ProvideOption interface {
	applyProvide(*provideConfig)
}

// provideConfig holds configuration for constructor registration
type provideConfig struct {
	asTypes   []reflect.Type // Register as additional interface types
	lifecycle string         // Service lifecycle (default: "singleton")
}

// provideOptionFunc is a function adapter for ProvideOption
type provideOptionFunc func(*provideConfig)

func (f provideOptionFunc) applyProvide(c *provideConfig) { f(c) }

// As registers the constructor result as additional interface types.
// This enables resolving the service by its interface types.
//
// Example:
//
//	c.Provide(NewFileStore, harbor.As(new(Reader), new(Writer)))
func As(ifaces ...any) ProvideOption {
	return provideOptionFunc(func(c *provideConfig) {
		for _, iface := range ifaces {
			t := reflect.TypeOf(iface)
			if t.Kind() == reflect.Ptr {
				t = t.Elem()
			}
			c.asTypes = append(c.asTypes, t)
		}
	})
}

// AsSingleton makes the constructor result a singleton (default).
func AsSingleton() ProvideOption {
	return provideOptionFunc(func(c *provideConfig) {
		c.lifecycle = LifecycleSingleton
	})
}

// AsTransient makes the constructor create a new instance on each resolve.
func AsTransient() ProvideOption {
	return provideOptionFunc(func(c *provideConfig) {
		c.lifecycle = LifecycleTransient
	})
}

// FactoryOption configures a ServiceFactory.
type FactoryOption func(*ServiceFactory)

// WithObjectFactory replaces the factory that creates parameter objects.
func WithObjectFactory(objects ObjectFactory) FactoryOption {
	return func(f *ServiceFactory) {
		f.objects = objects
	}
}

// WithInstantiatorFactory replaces the strategy used to construct services.
func WithInstantiatorFactory(instantiators InstantiatorFactory) FactoryOption {
	return func(f *ServiceFactory) {
		f.instantiators = instantiators
	}
}

// WithProviderFactory replaces the deferred-value factory. The default
// re-runs construction on every Provider.Get.
func WithProviderFactory(providers ProviderFactory) FactoryOption {
	return func(f *ServiceFactory) {
		f.providers = providers
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l logger.Logger) FactoryOption {
	return func(f *ServiceFactory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMiddleware appends middleware, called in the order given.
func WithMiddleware(middleware ...Middleware) FactoryOption {
	return func(f *ServiceFactory) {
		for _, mw := range middleware {
			f.middleware.add(mw)
		}
	}
}
