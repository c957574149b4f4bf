package harbor

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_ListsRegistrations(t *testing.T) {
	c := New()
	require.NoError(t, RegisterValue(c, &fileStore{}))
	require.NoError(t, c.Provide(func() *database { return &database{} }))
	require.NoError(t, c.Provide(func(db *database) *repository {
		return &repository{db: db}
	}, AsTransient()))

	infos := Query(c, ServiceQuery{})
	require.Len(t, infos, 3)
	assert.Equal(t, []reflect.Type{
		reflect.TypeFor[*database](),
		reflect.TypeFor[*fileStore](),
		reflect.TypeFor[*repository](),
	}, QueryTypes(c, ServiceQuery{}))

	assert.Equal(t, []reflect.Type{reflect.TypeFor[*database]()}, QueryTypes(c, ServiceQuery{Lifecycle: LifecycleSingleton}))
	require.Len(t, FindPending(c), 2)

	_, err := Resolve[*repository](c)
	require.NoError(t, err)

	pending := FindPending(c)
	require.Len(t, pending, 1)
	assert.Equal(t, reflect.TypeFor[*repository](), pending[0].Type)
	assert.Len(t, FindByLifecycle(c, LifecycleValue), 1)
}

func TestQuery_LifecycleConstants(t *testing.T) {
	c := New()
	require.NoError(t, RegisterValue(c, &fileStore{}))
	require.NoError(t, c.Provide(func() *database { return &database{} }))
	require.NoError(t, c.Provide(func() *repository { return &repository{} }, AsTransient()))

	byLifecycle := make(map[string]reflect.Type)
	for _, info := range Query(c, ServiceQuery{}) {
		byLifecycle[info.Lifecycle] = info.Type
	}

	assert.Equal(t, map[string]reflect.Type{
		LifecycleValue:     reflect.TypeFor[*fileStore](),
		LifecycleSingleton: reflect.TypeFor[*database](),
		LifecycleTransient: reflect.TypeFor[*repository](),
	}, byLifecycle)
	assert.Equal(t, []reflect.Type{reflect.TypeFor[*repository]()}, QueryTypes(c, ServiceQuery{Lifecycle: LifecycleTransient}))
}

func TestQuery_Parents(t *testing.T) {
	parent := New()
	require.NoError(t, RegisterValue(parent, &database{dsn: "parent"}))
	require.NoError(t, RegisterValue(parent, &fileStore{}))

	child := parent.Child()
	require.NoError(t, RegisterValue(child, &database{dsn: "child"}))

	assert.Len(t, Query(child, ServiceQuery{}), 1)

	infos := Query(child, ServiceQuery{Parents: true})
	require.Len(t, infos, 2)
	assert.Equal(t, reflect.TypeFor[*database](), infos[0].Type)
	assert.Equal(t, 0, infos[0].Depth)
	assert.Equal(t, reflect.TypeFor[*fileStore](), infos[1].Type)
	assert.Equal(t, 1, infos[1].Depth)
}

func TestQuery_ProviderScope(t *testing.T) {
	instantiators := newSpyInstantiatorFactory()
	f := NewServiceFactory(New(), WithInstantiatorFactory(instantiators))

	_, err := CreateProviderOf[Greeter](f, setName("Ada"))
	require.NoError(t, err)
	require.Len(t, instantiators.scopes, 1)

	assert.Equal(t,
		[]reflect.Type{reflect.TypeFor[*GreeterParams]()},
		QueryTypes(instantiators.scopes[0], ServiceQuery{}),
	)
}
