package harbor

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Instantiator constructs instances of arbitrary service types, satisfying
// their dependencies from the container it is bound to.
type Instantiator interface {
	NewInstance(t reflect.Type) (any, error)
}

// InstantiatorFactory derives an Instantiator bound to a container.
type InstantiatorFactory interface {
	Inject(c Container) Instantiator
}

// Initializer is implemented by services that finish their own setup after
// all dependencies are injected.
type Initializer interface {
	Init() error
}

// InjectingInstantiatorFactory builds services through registered
// constructors, or by field injection when a type has none:
//
//   - the embedded Service[P] is bound to the *P held by the container
//   - exported, non-embedded fields are resolved by type; fields tagged
//     `optional:"true"` stay zero when absent, `inject:"-"` is skipped
//
// Initializer.Init runs last in both cases.
type InjectingInstantiatorFactory struct {
	constructors map[reflect.Type]*constructorInfo
	mu           sync.RWMutex
}

// NewInjectingInstantiatorFactory creates a factory with no constructors.
func NewInjectingInstantiatorFactory() *InjectingInstantiatorFactory {
	return &InjectingInstantiatorFactory{
		constructors: make(map[reflect.Type]*constructorInfo),
	}
}

// Register records constructor as the way to build its result type, which
// must be a pointer to a struct:
//
//	f.Register(func(p *GreeterParams, l log.Logger) (*Greeter, error) {
//	    return &Greeter{name: p.Name, log: l}, nil
//	})
func (f *InjectingInstantiatorFactory) Register(constructor any) error {
	info, err := analyzeConstructor(constructor)
	if err != nil {
		return err
	}

	if info.result.Kind() != reflect.Ptr || info.result.Elem().Kind() != reflect.Struct {
		return newInvalidConstructorError(constructor, errors.Errorf("result %s must be a pointer to a struct", info.result))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.constructors[info.result]; exists {
		return ErrServiceAlreadyExists(info.result)
	}

	f.constructors[info.result] = info

	return nil
}

func (f *InjectingInstantiatorFactory) constructorFor(t reflect.Type) (*constructorInfo, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	info, ok := f.constructors[t]

	return info, ok
}

// Inject implements InstantiatorFactory.
func (f *InjectingInstantiatorFactory) Inject(c Container) Instantiator {
	return &injectingInstantiator{
		factory:   f,
		container: c,
	}
}

type injectingInstantiator struct {
	factory   *InjectingInstantiatorFactory
	container Container
}

// NewInstance implements Instantiator. t may be a struct type or a pointer
// to one; the result is always a pointer.
func (i *injectingInstantiator) NewInstance(t reflect.Type) (instance any, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = newInstantiationError(t, recovered(r))
		}
	}()

	if t == nil {
		return nil, newInstantiationError(nil, errors.New("type cannot be nil"))
	}

	ptrType := t
	if t.Kind() == reflect.Struct {
		ptrType = reflect.PointerTo(t)
	}

	if ptrType.Kind() != reflect.Ptr || ptrType.Elem().Kind() != reflect.Struct {
		return nil, newInstantiationError(t, errors.Errorf("%s is not a struct type", t))
	}

	if info, ok := i.factory.constructorFor(ptrType); ok {
		instance, err = i.construct(info)
	} else {
		instance, err = i.inject(ptrType.Elem())
	}

	if err != nil {
		return nil, newInstantiationError(t, err)
	}

	if initializer, ok := instance.(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, newInstantiationError(t, errors.Wrap(err, "init"))
		}
	}

	return instance, nil
}

// construct calls a registered constructor. A Service binding embedded in
// the result is bound when the container holds its parameter object.
func (i *injectingInstantiator) construct(info *constructorInfo) (any, error) {
	instance, err := info.call(i.container)
	if err != nil {
		return nil, err
	}

	if instance == nil || reflect.ValueOf(instance).IsNil() {
		return nil, errors.Errorf("constructor %s returned nil", info.fnType)
	}

	if b, ok := findBinding(reflect.TypeOf(instance).Elem()); ok {
		decl := b.target(reflect.ValueOf(instance))
		if err := bindDeclaration(decl, i.container, false); err != nil {
			return nil, err
		}
	}

	return instance, nil
}

// inject allocates a struct and fills it from the container. Embedded
// pointers leading to the Service binding are allocated too.
func (i *injectingInstantiator) inject(structType reflect.Type) (any, error) {
	v := reflect.New(structType)

	if b, ok := findBinding(structType); ok {
		if err := bindDeclaration(b.target(v), i.container, true); err != nil {
			return nil, err
		}
	}

	if err := fillFields(v.Elem(), injectableFields(structType), i.container); err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

// bindDeclaration hands the container's parameter object to the embedded
// Service. When required is false an absent parameter object is not an error.
func bindDeclaration(decl declaration, c Container, required bool) error {
	key := reflect.PointerTo(decl.parameterType())

	if !required && !c.Has(key) {
		return nil
	}

	params, err := c.Resolve(key)
	if err != nil {
		return err
	}

	return decl.bindParameters(params)
}
