package harbor

import (
	"context"
	"fmt"
	"reflect"

	logger "github.com/xraph/go-utils/log"
)

// ServiceFactory builds deferred providers for parameterized services.
//
// Each build creates one parameter object, hands it to the caller's
// configuration callback, and registers it in a fresh child of the ambient
// container. The service itself is only constructed when the provider is
// evaluated, by an Instantiator bound to that child container.
type ServiceFactory struct {
	ambient       Container
	objects       ObjectFactory
	instantiators InstantiatorFactory
	providers     ProviderFactory
	logger        logger.Logger
	middleware    *middlewareChain
}

// NewServiceFactory creates a factory whose services resolve dependencies
// from ambient. A nil ambient container is replaced by an empty one.
func NewServiceFactory(ambient Container, opts ...FactoryOption) *ServiceFactory {
	if ambient == nil {
		ambient = New()
	}

	f := &ServiceFactory{
		ambient:       ambient,
		objects:       NewObjectFactory(),
		instantiators: NewInjectingInstantiatorFactory(),
		providers:     RepeatingProviders(),
		logger:        logger.NewNoopLogger(),
		middleware:    newMiddlewareChain(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Ambient returns the container services fall back to.
func (f *ServiceFactory) Ambient() Container {
	return f.ambient
}

// CreateProvider builds a provider for serviceType, which must be a struct
// (or pointer to struct) embedding Service[P]. configure may be nil.
func (f *ServiceFactory) CreateProvider(serviceType reflect.Type, configure func(AnySpec) error) (*Provider[any], error) {
	var cfg func(reflect.Type, any) error
	if configure != nil {
		cfg = func(paramType reflect.Type, params any) error {
			return configure(AnySpec{params: params, typ: paramType})
		}
	}

	supply, err := f.create(serviceType, nil, cfg)
	if err != nil {
		return nil, err
	}

	return newProvider[any](serviceType, supply), nil
}

// CreateProviderOf is the typed form of CreateProvider. The parameter type
// bound by T must be P.
//
//	p, err := harbor.CreateProviderOf[Greeter](f, func(s harbor.Spec[GreeterParams]) error {
//	    s.Parameters().Name = "Ada"
//	    return nil
//	})
//	greeter, err := p.Get()
func CreateProviderOf[T any, P Parameters](f *ServiceFactory, configure func(Spec[P]) error) (*Provider[*T], error) {
	var cfg func(reflect.Type, any) error
	if configure != nil {
		cfg = func(_ reflect.Type, params any) error {
			return configure(Spec[P]{params: params.(*P)})
		}
	}

	serviceType := reflect.TypeFor[*T]()

	supply, err := f.create(serviceType, reflect.TypeFor[P](), cfg)
	if err != nil {
		return nil, err
	}

	return newProvider[*T](serviceType, supply), nil
}

// MustCreateProviderOf is like CreateProviderOf but panics on error.
// Use only during startup.
func MustCreateProviderOf[T any, P Parameters](f *ServiceFactory, configure func(Spec[P]) error) *Provider[*T] {
	p, err := CreateProviderOf[T, P](f, configure)
	if err != nil {
		panic(fmt.Sprintf("failed to create provider of %s: %v", reflect.TypeFor[*T](), err))
	}

	return p
}

// create runs the build steps and returns the deferred supplier. expected,
// when set, must equal the resolved parameter type.
func (f *ServiceFactory) create(serviceType, expected reflect.Type, configure func(reflect.Type, any) error) (supply Supplier, err error) {
	ctx := context.Background()
	service := logger.String("service", typeName(serviceType))

	var (
		paramType reflect.Type
		called    int
	)

	defer func() {
		if mwErr := f.middleware.afterBuild(ctx, called, serviceType, paramType, err); mwErr != nil && err == nil {
			supply, err = nil, mwErr
		}

		if err != nil {
			f.logger.Warn("service build failed", service, logger.Error(err))
		}
	}()

	if called, err = f.middleware.beforeBuild(ctx, serviceType); err != nil {
		return nil, err
	}

	paramType, err = ResolveParameterType(serviceType)
	if err != nil {
		return nil, err
	}

	if expected != nil && paramType != expected {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"service type %s is bound to parameter type %s, not %s",
			serviceType, paramType, expected,
		))
	}

	params, err := f.newParameters(paramType)
	if err != nil {
		return nil, err
	}

	if err := configureParameters(serviceType, paramType, params, configure); err != nil {
		return nil, err
	}

	scope := f.ambient.Child()
	if err := scope.Register(reflect.PointerTo(paramType), params); err != nil {
		return nil, err
	}

	inst := f.instantiators.Inject(scope)

	f.logger.Debug("service provider created", service, logger.String("parameters", typeName(paramType)))

	return f.providers.Defer(func() (any, error) {
		return f.instantiate(serviceType, inst)
	}), nil
}

func (f *ServiceFactory) newParameters(paramType reflect.Type) (any, error) {
	params, err := f.objects.NewInstance(paramType)
	if err != nil {
		if isCode(err, CodeInstantiation) {
			return nil, err
		}

		return nil, newInstantiationError(paramType, err)
	}

	if reflect.TypeOf(params) != reflect.PointerTo(paramType) {
		return nil, newInstantiationError(paramType, ErrTypeMismatch(reflect.PointerTo(paramType), params))
	}

	return params, nil
}

// configureParameters invokes configure once. Errors and panics become
// configuration errors that still match the original cause.
func configureParameters(serviceType, paramType reflect.Type, params any, configure func(reflect.Type, any) error) (err error) {
	if configure == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = newConfigurationError(serviceType, recovered(r))
		}
	}()

	if err := configure(paramType, params); err != nil {
		return newConfigurationError(serviceType, err)
	}

	return nil
}

func (f *ServiceFactory) instantiate(serviceType reflect.Type, inst Instantiator) (instance any, err error) {
	ctx := context.Background()
	service := logger.String("service", typeName(serviceType))

	called, err := f.middleware.beforeInstantiate(ctx, serviceType)
	if err == nil {
		instance, err = inst.NewInstance(serviceType)
		if err != nil && !isCode(err, CodeInstantiation) {
			err = newInstantiationError(serviceType, err)
		}
	}

	if mwErr := f.middleware.afterInstantiate(ctx, called, serviceType, instance, err); mwErr != nil && err == nil {
		instance, err = nil, mwErr
	}

	if err != nil {
		f.logger.Warn("service instantiation failed", service, logger.Error(err))
		return nil, err
	}

	f.logger.Debug("service instantiated", service)

	return instance, nil
}
