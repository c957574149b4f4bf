package harbor

import (
	"context"
	"reflect"
)

// Middleware provides hooks for intercepting service factory operations.
// Middleware can be used for logging, metrics, testing, etc.
type Middleware interface {
	// BeforeBuild is called before a provider is created for serviceType.
	// Return error to abort the build. AfterBuild still runs for every
	// middleware whose BeforeBuild was called.
	BeforeBuild(ctx context.Context, serviceType reflect.Type) error

	// AfterBuild is called after a build, successful or not. paramType is
	// nil when the declaration could not be resolved.
	AfterBuild(ctx context.Context, serviceType, paramType reflect.Type, err error) error

	// BeforeInstantiate is called when a provider is evaluated.
	// Return error to abort instantiation. As with builds, the matching
	// AfterInstantiate calls still run.
	BeforeInstantiate(ctx context.Context, serviceType reflect.Type) error

	// AfterInstantiate is called after instantiation.
	// Called even if instantiation failed, with a nil instance.
	AfterInstantiate(ctx context.Context, serviceType reflect.Type, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{
		middleware: make([]Middleware, 0),
	}
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	if middleware != nil {
		m.middleware = append(m.middleware, middleware)
	}
}

// beforeBuild calls BeforeBuild on all middleware until one fails. It
// returns how many were called.
func (m *middlewareChain) beforeBuild(ctx context.Context, serviceType reflect.Type) (int, error) {
	for i, mw := range m.middleware {
		if err := mw.BeforeBuild(ctx, serviceType); err != nil {
			return i + 1, err
		}
	}
	return len(m.middleware), nil
}

// afterBuild calls AfterBuild on the first n middleware.
func (m *middlewareChain) afterBuild(ctx context.Context, n int, serviceType, paramType reflect.Type, err error) error {
	for _, mw := range m.middleware[:n] {
		if mwErr := mw.AfterBuild(ctx, serviceType, paramType, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// beforeInstantiate calls BeforeInstantiate on all middleware until one
// fails. It returns how many were called.
func (m *middlewareChain) beforeInstantiate(ctx context.Context, serviceType reflect.Type) (int, error) {
	for i, mw := range m.middleware {
		if err := mw.BeforeInstantiate(ctx, serviceType); err != nil {
			return i + 1, err
		}
	}
	return len(m.middleware), nil
}

// afterInstantiate calls AfterInstantiate on the first n middleware.
func (m *middlewareChain) afterInstantiate(ctx context.Context, n int, serviceType reflect.Type, instance any, err error) error {
	for _, mw := range m.middleware[:n] {
		if mwErr := mw.AfterInstantiate(ctx, serviceType, instance, err); mwErr != nil {
			return mwErr
		}
	}
	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeBuildFunc       func(ctx context.Context, serviceType reflect.Type) error
	AfterBuildFunc        func(ctx context.Context, serviceType, paramType reflect.Type, err error) error
	BeforeInstantiateFunc func(ctx context.Context, serviceType reflect.Type) error
	AfterInstantiateFunc  func(ctx context.Context, serviceType reflect.Type, instance any, err error) error
}

// BeforeBuild implements Middleware.
func (f *FuncMiddleware) BeforeBuild(ctx context.Context, serviceType reflect.Type) error {
	if f.BeforeBuildFunc != nil {
		return f.BeforeBuildFunc(ctx, serviceType)
	}
	return nil
}

// AfterBuild implements Middleware.
func (f *FuncMiddleware) AfterBuild(ctx context.Context, serviceType, paramType reflect.Type, err error) error {
	if f.AfterBuildFunc != nil {
		return f.AfterBuildFunc(ctx, serviceType, paramType, err)
	}
	return nil
}

// BeforeInstantiate implements Middleware.
func (f *FuncMiddleware) BeforeInstantiate(ctx context.Context, serviceType reflect.Type) error {
	if f.BeforeInstantiateFunc != nil {
		return f.BeforeInstantiateFunc(ctx, serviceType)
	}
	return nil
}

// AfterInstantiate implements Middleware.
func (f *FuncMiddleware) AfterInstantiate(ctx context.Context, serviceType reflect.Type, instance any, err error) error {
	if f.AfterInstantiateFunc != nil {
		return f.AfterInstantiateFunc(ctx, serviceType, instance, err)
	}
	return nil
}
