package harbor

import "reflect"

// Parameters is the root of all service parameter types. It is reserved:
// a service must bind a concrete type, or None when it takes no
// configuration, never Parameters itself.
type Parameters interface{}

// None is the parameter type for services that need no configuration.
type None struct{}

// Service binds a service type to its parameter type. Embed it in the
// service struct, directly or through an intermediate struct:
//
//	type GreeterParams struct {
//	    Name string `default:"World"`
//	}
//
//	type Greeter struct {
//	    harbor.Service[GreeterParams]
//	    Logger log.Logger `optional:"true"`
//	}
//
//	func (g *Greeter) Greet() string {
//	    return "Hello, " + g.Parameters().Name
//	}
type Service[P Parameters] struct {
	params *P
}

// Parameters returns the configured parameter object injected when the
// service was instantiated.
func (s *Service[P]) Parameters() *P {
	return s.params
}

func (*Service[P]) parameterType() reflect.Type {
	return reflect.TypeFor[P]()
}

func (s *Service[P]) bindParameters(v any) error {
	p, ok := v.(*P)
	if !ok {
		return ErrTypeMismatch(reflect.TypeFor[*P](), v)
	}

	s.params = p

	return nil
}

// declaration is implemented by *Service[P]. findBinding locates it inside
// a service struct.
type declaration interface {
	parameterType() reflect.Type
	bindParameters(v any) error
}

var (
	rootParametersType = reflect.TypeFor[Parameters]()
	noneType           = reflect.TypeFor[None]()
)

// Spec exposes the parameter object of a service being built to the
// configuration callback.
type Spec[P Parameters] struct {
	params *P
}

// Parameters returns the parameter object. Mutations are visible to the
// service once it is instantiated.
func (s Spec[P]) Parameters() *P {
	return s.params
}

// Configure runs action against the parameter object.
func (s Spec[P]) Configure(action func(*P)) {
	if action != nil {
		action(s.params)
	}
}

// AnySpec is the untyped form of Spec used by reflect-driven callers.
type AnySpec struct {
	params any
	typ    reflect.Type
}

// Parameters returns the parameter object as a pointer to ParameterType.
func (s AnySpec) Parameters() any {
	return s.params
}

// ParameterType returns the resolved parameter type.
func (s AnySpec) ParameterType() reflect.Type {
	return s.typ
}

// Configure runs action against the parameter object.
func (s AnySpec) Configure(action func(params any)) {
	if action != nil {
		action(s.params)
	}
}
