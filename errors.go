package harbor

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/xraph/go-utils/errs"
)

// =============================================================================
// ERROR CODES
// =============================================================================

const (
	// CodeDeclaration indicates a service type does not bind a usable parameter type
	CodeDeclaration = "DECLARATION"

	// CodeConfiguration indicates the configuration callback of a build failed
	CodeConfiguration = "CONFIGURATION"

	// CodeInstantiation indicates a parameter object or service could not be constructed
	CodeInstantiation = "INSTANTIATION"

	// CodeServiceNotFound indicates no container in a scope chain holds a type
	CodeServiceNotFound = "SERVICE_NOT_FOUND"

	// CodeServiceAlreadyExists indicates a type is already registered in a container
	CodeServiceAlreadyExists = "SERVICE_ALREADY_EXISTS"

	// CodeCircularDependency indicates a constructor depends on its own result
	CodeCircularDependency = "CIRCULAR_DEPENDENCY"

	// CodeTypeMismatch indicates a resolved value is not of the requested type
	CodeTypeMismatch = "TYPE_MISMATCH"

	// CodeInvalidConstructor indicates a constructor function has an unsupported shape
	CodeInvalidConstructor = "INVALID_CONSTRUCTOR"

	// CodeContainerClosed indicates an operation on a closed container
	CodeContainerClosed = "CONTAINER_CLOSED"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

// ErrDeclaration matches every declaration error.
var ErrDeclaration = errs.NewError(CodeDeclaration, "invalid service declaration", nil)

// ErrConfiguration matches every configuration error.
var ErrConfiguration = errs.NewError(CodeConfiguration, "service configuration failed", nil)

// ErrInstantiation matches every instantiation error.
var ErrInstantiation = errs.NewError(CodeInstantiation, "instantiation failed", nil)

// ErrServiceNotFoundSentinel matches every service-not-found error.
var ErrServiceNotFoundSentinel = errs.NewError(CodeServiceNotFound, "service not found", nil)

// ErrServiceAlreadyExistsSentinel matches every duplicate registration error.
var ErrServiceAlreadyExistsSentinel = errs.NewError(CodeServiceAlreadyExists, "service already exists", nil)

// ErrCircularDependencySentinel matches every circular dependency error.
var ErrCircularDependencySentinel = errs.NewError(CodeCircularDependency, "circular dependency", nil)

// ErrTypeMismatchSentinel matches every type mismatch error.
var ErrTypeMismatchSentinel = errs.NewError(CodeTypeMismatch, "type mismatch", nil)

// ErrInvalidConstructorSentinel matches every invalid constructor error.
var ErrInvalidConstructorSentinel = errs.NewError(CodeInvalidConstructor, "invalid constructor", nil)

// ErrContainerClosed is returned when operations are attempted on a closed container.
var ErrContainerClosed = errs.NewError(CodeContainerClosed, "container is closed", nil)

// =============================================================================
// ERROR CONSTRUCTORS
// =============================================================================

func newDeclarationError(serviceType reflect.Type, message string) *errs.Error {
	return errs.NewError(CodeDeclaration, message, nil).
		WithContext("service", typeName(serviceType)).(*errs.Error)
}

func newConfigurationError(serviceType reflect.Type, cause error) *errs.Error {
	return errs.NewError(
		CodeConfiguration,
		fmt.Sprintf("could not configure parameters of %s", typeName(serviceType)),
		cause,
	).WithContext("service", typeName(serviceType)).(*errs.Error)
}

func newInstantiationError(t reflect.Type, cause error) *errs.Error {
	return errs.NewError(
		CodeInstantiation,
		fmt.Sprintf("could not create an instance of %s", typeName(t)),
		cause,
	).WithContext("type", typeName(t)).(*errs.Error)
}

// ErrServiceNotFound creates an error for a type no container in the chain can supply.
func ErrServiceNotFound(t reflect.Type) *errs.Error {
	return errs.NewError(
		CodeServiceNotFound,
		fmt.Sprintf("no service registered for type %s", typeName(t)),
		nil,
	).WithContext("type", typeName(t)).(*errs.Error)
}

// ErrServiceAlreadyExists creates an error for a duplicate registration.
func ErrServiceAlreadyExists(t reflect.Type) *errs.Error {
	return errs.NewError(
		CodeServiceAlreadyExists,
		fmt.Sprintf("service already registered for type %s", typeName(t)),
		nil,
	).WithContext("type", typeName(t)).(*errs.Error)
}

// ErrCircularDependency creates an error for a constructor cycle.
func ErrCircularDependency(cycle []reflect.Type) *errs.Error {
	names := make([]string, len(cycle))
	for i, t := range cycle {
		names[i] = typeName(t)
	}

	return errs.NewError(
		CodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(names, " -> ")),
		nil,
	).WithContext("cycle", names).(*errs.Error)
}

// ErrTypeMismatch creates an error for a value that is not of the expected type.
func ErrTypeMismatch(expected reflect.Type, actual any) *errs.Error {
	return errs.NewError(
		CodeTypeMismatch,
		fmt.Sprintf("expected %s, got %T", typeName(expected), actual),
		nil,
	).WithContext("expected_type", typeName(expected)).
		WithContext("actual_type", fmt.Sprintf("%T", actual)).(*errs.Error)
}

func newInvalidConstructorError(constructor any, cause error) *errs.Error {
	return errs.NewError(
		CodeInvalidConstructor,
		fmt.Sprintf("invalid constructor %T", constructor),
		cause,
	)
}

// recovered turns a recovered panic value into an error carrying a stack.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return errors.WithStack(err)
	}

	return errors.Errorf("panic: %v", r)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	return t.String()
}

// CodeOf returns the code of the outermost *errs.Error in err's chain, or
// "" when there is none.
func CodeOf(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

func isCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
