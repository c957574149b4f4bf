package harbor

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Supplier produces a value on demand.
type Supplier func() (any, error)

// ProviderFactory turns a supplier into the deferred computation behind a
// Provider. It owns evaluation semantics: how often the supplier runs and
// what repeated evaluations return.
type ProviderFactory interface {
	Defer(supplier Supplier) Supplier
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(Supplier) Supplier

// Defer implements ProviderFactory.
func (f ProviderFactoryFunc) Defer(supplier Supplier) Supplier {
	return f(supplier)
}

// RepeatingProviders runs the supplier on every evaluation, so each Get
// constructs a new service instance.
func RepeatingProviders() ProviderFactory {
	return ProviderFactoryFunc(func(supplier Supplier) Supplier {
		return supplier
	})
}

// MemoizingProviders runs the supplier at most once; later evaluations
// return the first value and error, even under concurrent use.
func MemoizingProviders() ProviderFactory {
	return ProviderFactoryFunc(func(supplier Supplier) Supplier {
		var (
			once  sync.Once
			value any
			err   error
		)

		return func() (any, error) {
			once.Do(func() {
				value, err = supplier()
			})

			return value, err
		}
	})
}

// Provider is a deferred reference to a service. Creating it constructs
// nothing; every Get evaluates the underlying supplier, whose semantics
// are chosen by the ProviderFactory of the ServiceFactory that built it.
type Provider[T any] struct {
	serviceType reflect.Type
	supply      Supplier
}

func newProvider[T any](serviceType reflect.Type, supply Supplier) *Provider[T] {
	return &Provider[T]{
		serviceType: serviceType,
		supply:      supply,
	}
}

// Get evaluates the provider.
func (p *Provider[T]) Get() (T, error) {
	var zero T

	instance, err := p.supply()
	if err != nil {
		return zero, err
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ErrTypeMismatch(reflect.TypeFor[T](), instance)
	}

	return typed, nil
}

// MustGet evaluates the provider, panicking on error.
func (p *Provider[T]) MustGet() T {
	value, err := p.Get()
	if err != nil {
		panic(fmt.Sprintf("provider of %s failed: %v", p.serviceType, err))
	}

	return value
}

// ServiceType returns the type the provider constructs.
func (p *Provider[T]) ServiceType() reflect.Type {
	return p.serviceType
}

// Memoize returns a Lazy that evaluates this provider at most once.
func (p *Provider[T]) Memoize() *Lazy[T] {
	return &Lazy[T]{provider: p}
}

// Lazy wraps a provider that is evaluated on first access.
// The evaluation happens only once; subsequent calls return the cached
// value or error.
type Lazy[T any] struct {
	provider *Provider[T]
	once     sync.Once
	value    T
	err      error
	resolved atomic.Bool
}

// Get evaluates the provider on first call and returns the cached result.
func (l *Lazy[T]) Get() (T, error) {
	l.once.Do(func() {
		l.value, l.err = l.provider.Get()
		l.resolved.Store(l.err == nil)
	})

	return l.value, l.err
}

// MustGet returns the value, panicking on error.
func (l *Lazy[T]) MustGet() T {
	value, err := l.Get()
	if err != nil {
		panic(fmt.Sprintf("lazy provider of %s failed: %v", l.provider.serviceType, err))
	}

	return value
}

// IsResolved returns true if the provider has been evaluated successfully.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved.Load()
}
