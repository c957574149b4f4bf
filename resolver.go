package harbor

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

// ResolveParameterType returns the parameter type a service type is bound
// to through an embedded Service[P]. Both T and *T are accepted, and the
// binding may sit in an intermediate embedded struct, by value or by
// pointer.
//
// A binding to Parameters itself, or to any other interface type, is a
// declaration error: services without configuration bind None.
func ResolveParameterType(serviceType reflect.Type) (reflect.Type, error) {
	if serviceType == nil {
		return nil, newDeclarationError(nil, "service type cannot be nil")
	}

	t := serviceType
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"service type %s must be a struct embedding %s",
			serviceType, serviceDisplayName,
		))
	}

	b, ok := findBinding(t)
	if !ok {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"service type %s must embed exactly one %s",
			serviceType, serviceDisplayName,
		))
	}

	paramType := b.parameterType()

	if paramType == rootParametersType {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"could not create service parameters: must use a sub-type of %s as parameter type. Use %s for executions without parameters.",
			rootParametersType, noneType,
		))
	}

	if paramType.Kind() == reflect.Interface {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"could not create service parameters: parameter type %s of %s is an interface, must use a concrete sub-type of %s",
			paramType, serviceType, rootParametersType,
		))
	}

	if paramType.Kind() == reflect.Ptr {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"could not create service parameters: parameter type %s of %s must not be a pointer, use %s",
			paramType, serviceType, paramType.Elem(),
		))
	}

	if paramType.Kind() != reflect.Struct {
		return nil, newDeclarationError(serviceType, fmt.Sprintf(
			"could not create service parameters: parameter type %s of %s must be a struct",
			paramType, serviceType,
		))
	}

	return paramType, nil
}

// ParameterTypeOf is the generic form of ResolveParameterType.
func ParameterTypeOf[T any]() (reflect.Type, error) {
	return ResolveParameterType(reflect.TypeFor[T]())
}

const serviceDisplayName = "harbor.Service[P]"

var servicePkgPath = noneType.PkgPath()

// binding locates the embedded Service[P] of a service struct.
type binding struct {
	index   []int        // field path from the service struct
	service reflect.Type // the Service[P] struct type
}

func (b binding) parameterType() reflect.Type {
	return reflect.New(b.service).Interface().(declaration).parameterType()
}

// target returns the embedded Service[P] of the struct v points to.
// Nil embedded pointers along the path are allocated.
func (b binding) target(v reflect.Value) declaration {
	for _, i := range b.index {
		if v.Kind() == reflect.Ptr {
			v = allocated(v).Elem()
		}

		v = settable(v.Field(i))
	}

	if v.Kind() == reflect.Ptr {
		return allocated(v).Interface().(declaration)
	}

	return v.Addr().Interface().(declaration)
}

func allocated(v reflect.Value) reflect.Value {
	if v.IsNil() {
		v.Set(reflect.New(v.Type().Elem()))
	}

	return v
}

// settable lifts the read-only flag reflect puts on fields reached through
// unexported embedded types.
func settable(field reflect.Value) reflect.Value {
	if field.CanSet() {
		return field
	}

	return reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
}

// findBinding searches the embedded fields of t breadth first, following
// embedded pointers, and stops at the shallowest depth holding a
// Service[P]. Two bindings at that depth are ambiguous.
func findBinding(t reflect.Type) (binding, bool) {
	type node struct {
		typ   reflect.Type
		index []int
	}

	level := []node{{typ: t}}
	visited := map[reflect.Type]bool{t: true}

	for len(level) > 0 {
		var (
			found []binding
			next  []node
		)

		for _, n := range level {
			for i := 0; i < n.typ.NumField(); i++ {
				field := n.typ.Field(i)
				if !field.Anonymous {
					continue
				}

				ft := field.Type
				if ft.Kind() == reflect.Ptr {
					ft = ft.Elem()
				}

				if ft.Kind() != reflect.Struct {
					continue
				}

				index := append(append([]int(nil), n.index...), i)

				if isServiceType(ft) {
					found = append(found, binding{index: index, service: ft})
					continue
				}

				if !visited[ft] {
					visited[ft] = true
					next = append(next, node{typ: ft, index: index})
				}
			}
		}

		switch len(found) {
		case 0:
			level = next
		case 1:
			return found[0], true
		default:
			return binding{}, false
		}
	}

	return binding{}, false
}

func isServiceType(t reflect.Type) bool {
	return t.PkgPath() == servicePkgPath && strings.HasPrefix(t.Name(), "Service[")
}
