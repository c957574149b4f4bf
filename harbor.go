// Package harbor builds parameterized services on demand.
//
// A service is a struct embedding Service[P], where P is its parameter
// type. A ServiceFactory resolves P from the service type, creates and
// configures a P, registers it in a child of the ambient Container and
// returns a Provider. Nothing is constructed until the provider is
// evaluated:
//
//	logger := log.NewProductionLogger() // github.com/xraph/go-utils/log
//
//	c := harbor.New()
//	_ = harbor.RegisterLogger(c, logger)
//
//	f := harbor.NewServiceFactory(c, harbor.WithLogger(logger))
//
//	p, err := harbor.CreateProviderOf[Greeter](f, func(s harbor.Spec[GreeterParams]) error {
//	    s.Parameters().Name = "Ada"
//	    return nil
//	})
//	if err != nil {
//	    return err // declaration, instantiation or configuration error
//	}
//
//	greeter, err := p.Get()
//
// Services that take no configuration bind None. Binding the reserved
// Parameters type itself is a declaration error.
package harbor
