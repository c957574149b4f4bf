package harbor

import (
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ObjectFactory creates default instances of arbitrary types. The returned
// value is always a pointer to a new t.
type ObjectFactory interface {
	NewInstance(t reflect.Type) (any, error)
}

// Defaulter is implemented by parameter types that compute their own
// defaults. SetDefaults runs after tag and document defaults are applied.
type Defaulter interface {
	SetDefaults()
}

var durationType = reflect.TypeFor[time.Duration]()

// DefaultObjectFactory applies property conventions to new instances:
//
//   - `default:"..."` tags on exported fields, decoded as YAML literals
//     (time.Duration fields also accept Go duration strings)
//   - nested struct fields are defaulted recursively, nil maps are made
//   - documents loaded with LoadDefaults, keyed by type name
//   - Defaulter.SetDefaults
type DefaultObjectFactory struct {
	defaults map[string]*yaml.Node
	mu       sync.RWMutex
}

// NewObjectFactory creates an object factory without loaded documents.
func NewObjectFactory() *DefaultObjectFactory {
	return &DefaultObjectFactory{
		defaults: make(map[string]*yaml.Node),
	}
}

// LoadDefaults reads a YAML mapping of type name to field values, e.g.
//
//	myapp.GreeterParams:
//	  name: Ada
//	  retries: 3
//
// Field keys follow yaml.v3 rules (lowercased name or `yaml` tag). Later
// documents replace earlier entries for the same type.
func (f *DefaultObjectFactory) LoadDefaults(r io.Reader) error {
	var doc map[string]yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}

		return errors.Wrap(err, "decode defaults document")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for name, node := range doc {
		n := node
		f.defaults[name] = &n
	}

	return nil
}

// NewInstance implements ObjectFactory.
func (f *DefaultObjectFactory) NewInstance(t reflect.Type) (any, error) {
	if t == nil {
		return nil, newInstantiationError(nil, errors.New("type cannot be nil"))
	}

	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return nil, newInstantiationError(t, errors.Errorf("type of kind %s cannot be instantiated", t.Kind()))
	}

	v := reflect.New(t)

	if err := applyConventions(v.Elem()); err != nil {
		return nil, newInstantiationError(t, err)
	}

	f.mu.RLock()
	node, ok := f.defaults[t.String()]
	f.mu.RUnlock()

	if ok {
		if err := node.Decode(v.Interface()); err != nil {
			return nil, newInstantiationError(t, errors.Wrapf(err, "apply defaults document for %s", t))
		}
	}

	instance := v.Interface()

	if d, ok := instance.(Defaulter); ok {
		d.SetDefaults()
	}

	return instance, nil
}

// applyConventions applies default tags and allocates maps in place.
func applyConventions(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			v.Set(reflect.MakeMap(v.Type()))
		}

		return nil
	case reflect.Struct:
	default:
		return nil
	}

	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		fv := v.Field(i)

		if lit, ok := field.Tag.Lookup("default"); ok {
			if err := setDefault(fv, lit); err != nil {
				return errors.Wrapf(err, "field %s", field.Name)
			}

			continue
		}

		if err := applyConventions(fv); err != nil {
			return errors.Wrapf(err, "field %s", field.Name)
		}
	}

	return nil
}

func setDefault(v reflect.Value, lit string) error {
	if v.Type() == durationType {
		if d, err := time.ParseDuration(lit); err == nil {
			v.SetInt(int64(d))

			return nil
		}
	}

	if err := yaml.Unmarshal([]byte(lit), v.Addr().Interface()); err != nil {
		return errors.Wrapf(err, "decode default %q", lit)
	}

	return nil
}
