package harbor

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// In is a marker type that should be embedded in structs to indicate
// they are parameter objects. Fields of the struct will be treated as
// dependencies to inject.
//
// Example:
//
//	type ServiceDeps struct {
//	    harbor.In
//
//	    DB     *Database
//	    Logger log.Logger `optional:"true"`
//	}
type In struct{}

var (
	inType    = reflect.TypeOf(In{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// constructorInfo holds analyzed constructor metadata
type constructorInfo struct {
	fn       reflect.Value
	fnType   reflect.Type
	params   []paramInfo
	result   reflect.Type
	hasError bool
}

// paramInfo describes a constructor parameter or an injected field
type paramInfo struct {
	typ      reflect.Type
	optional bool        // From `optional:"true"` tag
	index    int         // Position in function parameters or struct field index
	isIn     bool        // Whether this is an In struct (expanded into multiple deps)
	inFields []paramInfo // Expanded fields if isIn is true
}

// analyzeConstructor inspects a constructor function of the form
// func(deps...) T or func(deps...) (T, error).
func analyzeConstructor(constructor any) (*constructorInfo, error) {
	if constructor == nil {
		return nil, newInvalidConstructorError(constructor, errors.New("constructor cannot be nil"))
	}

	fnValue := reflect.ValueOf(constructor)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, newInvalidConstructorError(constructor, errors.New("constructor must be a function"))
	}

	if fnType.IsVariadic() {
		return nil, newInvalidConstructorError(constructor, errors.New("variadic constructors are not supported"))
	}

	info := &constructorInfo{
		fn:     fnValue,
		fnType: fnType,
	}

	for i := 0; i < fnType.NumIn(); i++ {
		param, err := analyzeParam(fnType.In(i), i)
		if err != nil {
			return nil, newInvalidConstructorError(constructor, errors.Wrapf(err, "parameter %d", i))
		}
		info.params = append(info.params, param)
	}

	switch fnType.NumOut() {
	case 1:
	case 2:
		if fnType.Out(1) != errorType {
			return nil, newInvalidConstructorError(constructor, errors.New("second return value must be error"))
		}
		info.hasError = true
	default:
		return nil, newInvalidConstructorError(constructor, errors.New("constructor must return T or (T, error)"))
	}

	if fnType.Out(0).Implements(errorType) {
		return nil, newInvalidConstructorError(constructor, errors.New("constructor must return at least one non-error value"))
	}

	info.result = fnType.Out(0)

	return info, nil
}

// analyzeParam analyzes a single parameter type
func analyzeParam(t reflect.Type, index int) (paramInfo, error) {
	param := paramInfo{
		typ:   t,
		index: index,
	}

	if isInStruct(t) {
		param.isIn = true
		fields, err := expandInStruct(t)
		if err != nil {
			return param, err
		}
		param.inFields = fields
	}

	return param, nil
}

// isInStruct checks if a type embeds harbor.In
func isInStruct(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == inType {
			return true
		}
		// Check embedded structs recursively
		if field.Anonymous && isInStruct(field.Type) {
			return true
		}
	}
	return false
}

// expandInStruct expands an In struct into its field dependencies
func expandInStruct(t reflect.Type) ([]paramInfo, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var params []paramInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Skip the embedded In marker
		if field.Anonymous && (field.Type == inType || isInStruct(field.Type)) {
			continue
		}

		if !field.IsExported() {
			continue
		}

		params = append(params, paramInfo{
			typ:      field.Type,
			index:    i,
			optional: isOptional(field),
		})
	}

	return params, nil
}

// injectableFields lists the exported fields of a service struct that are
// filled from the scope. Embedded structs are not injected; the Service
// binding is handled separately.
func injectableFields(t reflect.Type) []paramInfo {
	var params []paramInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous || !field.IsExported() {
			continue
		}

		if field.Tag.Get("inject") == "-" {
			continue
		}

		params = append(params, paramInfo{
			typ:      field.Type,
			index:    i,
			optional: isOptional(field),
		})
	}

	return params
}

func isOptional(field reflect.StructField) bool {
	return strings.ToLower(field.Tag.Get("optional")) == "true"
}

// resolveParams builds the argument list of a constructor from a container.
func (c *constructorInfo) resolveParams(container Container) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(c.params))

	for i, param := range c.params {
		if param.isIn {
			inValue, err := resolveInStruct(param, container)
			if err != nil {
				return nil, err
			}
			args[i] = inValue

			continue
		}

		resolved, err := container.Resolve(param.typ)
		if err != nil {
			return nil, err
		}
		args[i] = valueOf(resolved, param.typ)
	}

	return args, nil
}

// call invokes the constructor and unpacks its results.
func (c *constructorInfo) call(container Container) (any, error) {
	args, err := c.resolveParams(container)
	if err != nil {
		return nil, err
	}

	results := c.fn.Call(args)

	if c.hasError {
		if errResult := results[1]; !errResult.IsNil() {
			return nil, errResult.Interface().(error)
		}
	}

	return results[0].Interface(), nil
}

// resolveInStruct creates and populates an In struct with resolved dependencies
func resolveInStruct(param paramInfo, container Container) (reflect.Value, error) {
	structType := param.typ
	isPtr := structType.Kind() == reflect.Ptr
	if isPtr {
		structType = structType.Elem()
	}

	structValue := reflect.New(structType).Elem()

	if err := fillFields(structValue, param.inFields, container); err != nil {
		return reflect.Value{}, err
	}

	if isPtr {
		return structValue.Addr(), nil
	}

	return structValue, nil
}

// fillFields resolves each field from the container; optional fields that
// cannot be resolved are left at their zero value.
func fillFields(structValue reflect.Value, fields []paramInfo, container Container) error {
	for _, field := range fields {
		if field.optional && !container.Has(field.typ) {
			continue
		}

		resolved, err := container.Resolve(field.typ)
		if err != nil {
			return err
		}

		structValue.Field(field.index).Set(valueOf(resolved, field.typ))
	}

	return nil
}

// valueOf converts a resolved instance to a reflect.Value of type t,
// keeping nil interface values typed.
func valueOf(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}

	return reflect.ValueOf(v)
}
