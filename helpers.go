package harbor

import (
	"fmt"
	"reflect"

	logger "github.com/xraph/go-utils/log"
)

// Resolve with type safety.
func Resolve[T any](c Container) (T, error) {
	var zero T

	instance, err := c.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	if instance == nil {
		return zero, nil
	}

	typed, ok := instance.(T)
	if !ok {
		return zero, ErrTypeMismatch(reflect.TypeFor[T](), instance)
	}

	return typed, nil
}

// MustResolve resolves or panics - use only during startup.
func MustResolve[T any](c Container) T {
	instance, err := Resolve[T](c)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", reflect.TypeFor[T](), err))
	}

	return instance
}

// RegisterValue registers a pre-built instance under its static type T.
//
//	harbor.RegisterValue[Clock](c, systemClock{})
func RegisterValue[T any](c Container, instance T) error {
	return c.Register(reflect.TypeFor[T](), instance)
}

// HasType reports whether T can be resolved from c.
func HasType[T any](c Container) bool {
	return c.Has(reflect.TypeFor[T]())
}

// RegisterLogger makes l injectable as a logger.Logger, the usual first
// registration of an ambient container.
func RegisterLogger(c Container, l logger.Logger) error {
	if l == nil {
		l = logger.NewNoopLogger()
	}

	return RegisterValue(c, l)
}
