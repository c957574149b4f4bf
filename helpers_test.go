package harbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	logger "github.com/xraph/go-utils/log"
)

func TestResolve_TypeSafe(t *testing.T) {
	c := New()
	require.NoError(t, RegisterValue(c, &database{dsn: "memory"}))

	db, err := Resolve[*database](c)
	require.NoError(t, err)
	assert.Equal(t, "memory", db.dsn)
}

func TestResolveHelper_NotFound(t *testing.T) {
	c := New()

	_, err := Resolve[*database](c)
	assert.ErrorIs(t, err, ErrServiceNotFoundSentinel)
}

func TestMustResolve_Success(t *testing.T) {
	c := New()
	require.NoError(t, RegisterValue(c, &database{dsn: "memory"}))

	assert.NotPanics(t, func() {
		db := MustResolve[*database](c)
		assert.Equal(t, "memory", db.dsn)
	})
}

func TestMustResolve_Panic(t *testing.T) {
	c := New()

	assert.Panics(t, func() {
		MustResolve[*database](c)
	})
}

func TestRegisterValue_Interface(t *testing.T) {
	c := New()
	require.NoError(t, RegisterValue[reader](c, &fileStore{path: "/data"}))

	assert.True(t, HasType[reader](c))
	assert.False(t, HasType[*fileStore](c))

	r, err := Resolve[reader](c)
	require.NoError(t, err)
	assert.Equal(t, "/data", r.Read())
}

func TestRegisterLogger(t *testing.T) {
	c := New()
	l := logger.NewTestLogger()
	require.NoError(t, RegisterLogger(c, l))
	assert.Same(t, l, MustResolve[logger.Logger](c))

	nop := New()
	require.NoError(t, RegisterLogger(nop, nil))
	assert.NotNil(t, MustResolve[logger.Logger](nop))
}
