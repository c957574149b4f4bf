package harbor

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xraph/go-utils/errs"
)

type directParams struct {
	Value string
}

type directService struct {
	Service[directParams]
}

// baseService binds the parameter type; indirectService only embeds it.
type baseService struct {
	Service[directParams]
	Label string
}

type indirectService struct {
	baseService
}

type rootService struct {
	Service[Parameters]
}

type interfaceParams interface {
	Parameters
	Validate() error
}

type interfaceService struct {
	Service[interfaceParams]
}

type pointerService struct {
	Service[*directParams]
}

// pointerBaseService reaches its binding through an embedded pointer.
type pointerBaseService struct {
	*baseService
}

type pointerEmbedService struct {
	*Service[directParams]
}

type scalarService struct {
	Service[int]
}

type loopService struct {
	*loopService
}

type undeclaredService struct {
	Value string
}

type otherParams struct{}

type namedFieldService struct {
	Service[directParams]
	Other Service[otherParams]
}

type twiceService struct {
	baseService
	Service[otherParams]
}

type conflictA struct{ Service[directParams] }

type conflictB struct{ Service[otherParams] }

type conflictService struct {
	conflictA
	conflictB
}

func TestResolveParameterType_Direct(t *testing.T) {
	got, err := ResolveParameterType(reflect.TypeFor[directService]())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_Pointer(t *testing.T) {
	got, err := ResolveParameterType(reflect.TypeFor[*directService]())
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_Indirect(t *testing.T) {
	got, err := ParameterTypeOf[indirectService]()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_None(t *testing.T) {
	got, err := ParameterTypeOf[noOpService]()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[None](), got)
}

func TestResolveParameterType_ShallowestBindingWins(t *testing.T) {
	got, err := ParameterTypeOf[twiceService]()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[otherParams](), got)
}

func TestResolveParameterType_NamedFieldIsNotABinding(t *testing.T) {
	got, err := ParameterTypeOf[namedFieldService]()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_RootParameters(t *testing.T) {
	_, err := ParameterTypeOf[rootService]()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclaration)

	var declErr *errs.Error
	require.ErrorAs(t, err, &declErr)
	assert.Equal(t,
		"could not create service parameters: must use a sub-type of harbor.Parameters as parameter type. Use harbor.None for executions without parameters.",
		declErr.Message,
	)
	assert.Equal(t, "harbor.rootService", declErr.GetContext()["service"])
}

func TestResolveParameterType_PointerEmbeddedIntermediate(t *testing.T) {
	var (
		got reflect.Type
		err error
	)

	require.NotPanics(t, func() {
		got, err = ParameterTypeOf[pointerBaseService]()
	})
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_PointerEmbeddedService(t *testing.T) {
	got, err := ParameterTypeOf[*pointerEmbedService]()
	require.NoError(t, err)
	assert.Equal(t, reflect.TypeFor[directParams](), got)
}

func TestResolveParameterType_Errors(t *testing.T) {
	tests := []struct {
		name        string
		serviceType reflect.Type
		contains    string
	}{
		{"nil", nil, "cannot be nil"},
		{"not a struct", reflect.TypeFor[string](), "must be a struct"},
		{"no binding", reflect.TypeFor[undeclaredService](), "must embed exactly one harbor.Service[P]"},
		{"conflicting bindings", reflect.TypeFor[conflictService](), "must embed exactly one harbor.Service[P]"},
		{"interface parameters", reflect.TypeFor[interfaceService](), "is an interface"},
		{"pointer parameters", reflect.TypeFor[pointerService](), "must not be a pointer"},
		{"scalar parameters", reflect.TypeFor[scalarService](), "parameter type int of harbor.scalarService must be a struct"},
		{"self embedding", reflect.TypeFor[loopService](), "must embed exactly one harbor.Service[P]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveParameterType(tt.serviceType)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDeclaration)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Nil(t, got)
		})
	}
}
