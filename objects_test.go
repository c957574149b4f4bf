package harbor

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type retryParams struct {
	Enabled bool `default:"true"`
	Backoff time.Duration
}

type serverParams struct {
	Host    string        `default:"localhost"`
	Port    int           `default:"8080"`
	Timeout time.Duration `default:"1.5s"`
	Tags    []string      `default:"[api, internal]"`
	Labels  map[string]string
	Retry   retryParams
	Notes   string
}

type portParams struct {
	Port int `default:"80"`
}

func (p *portParams) SetDefaults() {
	if p.Port < 1024 {
		p.Port += 8000
	}
}

func TestObjectFactory_DefaultTags(t *testing.T) {
	f := NewObjectFactory()

	instance, err := f.NewInstance(reflect.TypeFor[serverParams]())
	require.NoError(t, err)

	params, ok := instance.(*serverParams)
	require.True(t, ok)

	assert.Equal(t, "localhost", params.Host)
	assert.Equal(t, 8080, params.Port)
	assert.Equal(t, 1500*time.Millisecond, params.Timeout)
	assert.Equal(t, []string{"api", "internal"}, params.Tags)
	assert.NotNil(t, params.Labels)
	assert.True(t, params.Retry.Enabled)
	assert.Zero(t, params.Retry.Backoff)
	assert.Empty(t, params.Notes)
}

func TestObjectFactory_NewInstancesAreIndependent(t *testing.T) {
	f := NewObjectFactory()

	a, err := f.NewInstance(reflect.TypeFor[serverParams]())
	require.NoError(t, err)

	b, err := f.NewInstance(reflect.TypeFor[serverParams]())
	require.NoError(t, err)

	a.(*serverParams).Labels["env"] = "prod"
	assert.Empty(t, b.(*serverParams).Labels)
}

func TestObjectFactory_None(t *testing.T) {
	instance, err := NewObjectFactory().NewInstance(reflect.TypeFor[None]())
	require.NoError(t, err)
	assert.Equal(t, &None{}, instance)
}

func TestObjectFactory_Defaulter(t *testing.T) {
	instance, err := NewObjectFactory().NewInstance(reflect.TypeFor[portParams]())
	require.NoError(t, err)
	assert.Equal(t, 8080, instance.(*portParams).Port)
}

func TestObjectFactory_LoadDefaults(t *testing.T) {
	f := NewObjectFactory()

	err := f.LoadDefaults(strings.NewReader(`
harbor.serverParams:
  host: example.com
  timeout: 30s
  retry:
    backoff: 250ms
`))
	require.NoError(t, err)

	instance, err := f.NewInstance(reflect.TypeFor[serverParams]())
	require.NoError(t, err)

	params := instance.(*serverParams)
	assert.Equal(t, "example.com", params.Host)
	assert.Equal(t, 8080, params.Port)
	assert.Equal(t, 30*time.Second, params.Timeout)
	assert.True(t, params.Retry.Enabled)
	assert.Equal(t, 250*time.Millisecond, params.Retry.Backoff)
}

func TestObjectFactory_LoadDefaultsRunsBeforeDefaulter(t *testing.T) {
	f := NewObjectFactory()
	require.NoError(t, f.LoadDefaults(strings.NewReader("harbor.portParams:\n  port: 443\n")))

	instance, err := f.NewInstance(reflect.TypeFor[portParams]())
	require.NoError(t, err)
	assert.Equal(t, 8443, instance.(*portParams).Port)
}

func TestObjectFactory_LoadDefaultsEmpty(t *testing.T) {
	f := NewObjectFactory()
	assert.NoError(t, f.LoadDefaults(strings.NewReader("")))
}

func TestObjectFactory_LoadDefaultsInvalid(t *testing.T) {
	f := NewObjectFactory()
	assert.Error(t, f.LoadDefaults(strings.NewReader("- not\n- a mapping\n")))
}

func TestObjectFactory_LoadDefaultsTypeError(t *testing.T) {
	f := NewObjectFactory()
	require.NoError(t, f.LoadDefaults(strings.NewReader("harbor.portParams:\n  port: eighty\n")))

	_, err := f.NewInstance(reflect.TypeFor[portParams]())
	assert.ErrorIs(t, err, ErrInstantiation)
}

func TestObjectFactory_InvalidDefaultTag(t *testing.T) {
	type invalidParams struct {
		Retries int `default:"several"`
	}

	_, err := NewObjectFactory().NewInstance(reflect.TypeFor[invalidParams]())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstantiation)
	assert.Contains(t, err.Error(), "Retries")
}

func TestObjectFactory_UnsupportedKinds(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"nil", nil},
		{"interface", reflect.TypeFor[Parameters]()},
		{"func", reflect.TypeFor[func()]()},
		{"chan", reflect.TypeFor[chan int]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObjectFactory().NewInstance(tt.typ)
			assert.ErrorIs(t, err, ErrInstantiation)
		})
	}
}
