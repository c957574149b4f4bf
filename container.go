package harbor

import (
	"reflect"
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Container resolves dependencies by type. A child container holds its own
// registrations and falls back to its parent for everything else.
type Container interface {
	// Register adds a pre-built instance under key. The instance must be
	// assignable to key.
	Register(key reflect.Type, instance any) error

	// Provide registers a constructor; its parameters are resolved by type
	// when the result is first needed. See ProvideOption for lifecycles.
	Provide(constructor any, opts ...ProvideOption) error

	// Resolve returns the instance for key, looking in this container first
	// and then up the parent chain.
	Resolve(key reflect.Type) (any, error)

	// Has reports whether key can be resolved from this container or a parent.
	Has(key reflect.Type) bool

	// Child creates an empty container backed by this one.
	Child() Container

	// Parent returns the container this one falls back to, or nil.
	Parent() Container

	// Close disposes singletons constructed by this container, newest first.
	Close() error
}

// Disposable is implemented by instances that release resources when the
// container that constructed them is closed.
type Disposable interface {
	Dispose() error
}

// Lifecycle names reported by ServiceInfo and matched by ServiceQuery.
const (
	// LifecycleValue is a pre-built instance added with Register.
	LifecycleValue = "value"

	// LifecycleSingleton is a constructor called at most once per container.
	LifecycleSingleton = "singleton"

	// LifecycleTransient is a constructor called on every resolve.
	LifecycleTransient = "transient"
)

// container implements Container.
type container struct {
	parent   Container
	services map[reflect.Type]*registration
	created  []any // singletons constructed by this container, in order
	closed   bool
	mu       sync.RWMutex
}

// registration holds one value or constructor registration. Keys added
// with As share the registration and thus the singleton instance.
type registration struct {
	owner       *container
	constructor *constructorInfo
	lifecycle   string
	instance    any
	built       bool
	mu          sync.Mutex
}

// New creates an empty root container.
func New() Container {
	return newContainer(nil)
}

func newContainer(parent Container) *container {
	return &container{
		parent:   parent,
		services: make(map[reflect.Type]*registration),
	}
}

// Register implements Container.
func (c *container) Register(key reflect.Type, instance any) error {
	if key == nil {
		return ErrTypeMismatch(nil, instance)
	}

	if instance != nil && !reflect.TypeOf(instance).AssignableTo(key) {
		return ErrTypeMismatch(key, instance)
	}

	if instance == nil && !nillable(key) {
		return ErrTypeMismatch(key, instance)
	}

	return c.add([]reflect.Type{key}, &registration{
		owner:     c,
		lifecycle: LifecycleValue,
		instance:  instance,
		built:     true,
	})
}

// Provide implements Container.
func (c *container) Provide(constructor any, opts ...ProvideOption) error {
	info, err := analyzeConstructor(constructor)
	if err != nil {
		return err
	}

	config := &provideConfig{
		lifecycle: LifecycleSingleton,
	}
	for _, opt := range opts {
		opt.applyProvide(config)
	}

	keys := []reflect.Type{info.result}

	for _, as := range config.asTypes {
		if !info.result.AssignableTo(as) {
			return newInvalidConstructorError(constructor, errors.Errorf("%s does not implement %s", info.result, as))
		}
		keys = append(keys, as)
	}

	return c.add(keys, &registration{
		owner:       c,
		constructor: info,
		lifecycle:   config.lifecycle,
	})
}

func (c *container) add(keys []reflect.Type, reg *registration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrContainerClosed
	}

	for _, key := range keys {
		if _, exists := c.services[key]; exists {
			return ErrServiceAlreadyExists(key)
		}
	}

	for _, key := range keys {
		c.services[key] = reg
	}

	return nil
}

// Resolve implements Container.
func (c *container) Resolve(key reflect.Type) (any, error) {
	return c.resolve(key, c, nil)
}

// resolve looks key up along the parent chain. requester is the container
// Resolve was called on; transient constructors take their dependencies
// from it, singletons from the container they were provided to.
func (c *container) resolve(key reflect.Type, requester *container, path []reflect.Type) (any, error) {
	c.mu.RLock()
	reg, exists := c.services[key]
	closed := c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrContainerClosed
	}

	if !exists {
		switch parent := c.parent.(type) {
		case nil:
			return nil, ErrServiceNotFound(key)
		case *container:
			return parent.resolve(key, requester, path)
		default:
			return parent.Resolve(key)
		}
	}

	if slices.Contains(path, key) {
		return nil, ErrCircularDependency(append(slices.Clone(path), key))
	}

	return reg.resolve(requester, append(slices.Clone(path), key))
}

// resolve returns the registered instance, constructing it if needed.
func (reg *registration) resolve(requester *container, path []reflect.Type) (any, error) {
	switch reg.lifecycle {
	case LifecycleValue:
		return reg.instance, nil
	case LifecycleTransient:
		return reg.constructor.call(&resolution{container: requester, path: path})
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.built {
		return reg.instance, nil
	}

	instance, err := reg.constructor.call(&resolution{container: reg.owner, path: path})
	if err != nil {
		return nil, err
	}

	reg.instance = instance
	reg.built = true

	reg.owner.mu.Lock()
	reg.owner.created = append(reg.owner.created, instance)
	reg.owner.mu.Unlock()

	return instance, nil
}

// Has implements Container.
func (c *container) Has(key reflect.Type) bool {
	c.mu.RLock()
	_, exists := c.services[key]
	c.mu.RUnlock()

	if exists {
		return true
	}

	if c.parent == nil {
		return false
	}

	return c.parent.Has(key)
}

// Child implements Container.
func (c *container) Child() Container {
	return newContainer(c)
}

// Parent implements Container.
func (c *container) Parent() Container {
	return c.parent
}

// Close implements Container.
func (c *container) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrContainerClosed
	}

	created := c.created
	c.created = nil
	c.closed = true

	c.mu.Unlock()

	// Dispose may call back into the container, so c.mu is not held here.
	var err error

	for i := len(created) - 1; i >= 0; i-- {
		if disposable, ok := created[i].(Disposable); ok {
			err = multierr.Append(err, errors.Wrapf(disposable.Dispose(), "dispose %T", created[i]))
		}
	}

	return err
}

// resolution carries the constructor path through nested resolutions so
// cycles are reported instead of recursing forever.
type resolution struct {
	*container
	path []reflect.Type
}

// Resolve implements Container.
func (r *resolution) Resolve(key reflect.Type) (any, error) {
	return r.container.resolve(key, r.container, r.path)
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}

	return false
}
