package harbor

import (
	"reflect"
	"testing"
)

// Benchmark parameter type resolution.
func BenchmarkResolveParameterType_Direct(b *testing.B) {
	t := reflect.TypeFor[Greeter]()

	for i := 0; i < b.N; i++ {
		_, _ = ResolveParameterType(t)
	}
}

func BenchmarkResolveParameterType_Indirect(b *testing.B) {
	t := reflect.TypeFor[indirectService]()

	for i := 0; i < b.N; i++ {
		_, _ = ResolveParameterType(t)
	}
}

// Benchmark provider creation.
func BenchmarkCreateProviderOf(b *testing.B) {
	f := NewServiceFactory(New())
	configure := setName("Ada")

	for i := 0; i < b.N; i++ {
		_, _ = CreateProviderOf[Greeter](f, configure)
	}
}

// Benchmark provider evaluation.
func BenchmarkProvider_Get_Repeating(b *testing.B) {
	f := NewServiceFactory(New())
	p, _ := CreateProviderOf[Greeter](f, setName("Ada"))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = p.Get()
	}
}

func BenchmarkProvider_Get_Memoizing(b *testing.B) {
	f := NewServiceFactory(New(), WithProviderFactory(MemoizingProviders()))
	p, _ := CreateProviderOf[Greeter](f, setName("Ada"))

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = p.Get()
	}
}

// Benchmark container resolution.
func BenchmarkResolve_Singleton_Cached(b *testing.B) {
	c := New()
	_ = c.Provide(func() *database { return &database{} })

	// Warm up cache
	_, _ = Resolve[*database](c)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = Resolve[*database](c)
	}
}

func BenchmarkResolve_Transient(b *testing.B) {
	c := New()
	_ = c.Provide(func() *database { return &database{} }, AsTransient())

	for i := 0; i < b.N; i++ {
		_, _ = Resolve[*database](c)
	}
}

func BenchmarkResolve_ParentChain(b *testing.B) {
	c := New()
	_ = RegisterValue(c, &database{})

	for depth := 0; depth < 5; depth++ {
		c = c.Child()
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = Resolve[*database](c)
	}
}
