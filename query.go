package harbor

import (
	"reflect"
	"sort"
)

// ServiceInfo describes one registration of a container.
type ServiceInfo struct {
	Type      reflect.Type
	Lifecycle string // LifecycleValue, LifecycleSingleton or LifecycleTransient
	Built     bool   // a value, or a singleton already constructed
	Depth     int    // 0 for the queried container, 1 for its parent, ...
}

// Inspector is implemented by containers that can list their registrations.
type Inspector interface {
	Services() []ServiceInfo
}

// ServiceQuery defines criteria for querying services.
type ServiceQuery struct {
	// Lifecycle filters by service lifecycle, one of the Lifecycle
	// constants. Empty string matches all.
	Lifecycle string

	// Built filters by construction state. nil matches all services.
	Built *bool

	// Parents includes registrations of the parent chain. Types shadowed by
	// a nearer container are reported once, at the nearest depth.
	Parents bool
}

// Services implements Inspector. Entries are sorted by type name.
func (c *container) Services() []ServiceInfo {
	c.mu.RLock()
	regs := make(map[reflect.Type]*registration, len(c.services))
	for key, reg := range c.services {
		regs[key] = reg
	}
	c.mu.RUnlock()

	// reg.mu must not be taken under c.mu: resolve holds reg.mu while
	// locking its owner.
	infos := make([]ServiceInfo, 0, len(regs))
	for key, reg := range regs {
		infos = append(infos, ServiceInfo{
			Type:      key,
			Lifecycle: reg.lifecycle,
			Built:     reg.isBuilt(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Type.String() < infos[j].Type.String()
	})

	return infos
}

func (reg *registration) isBuilt() bool {
	if reg.lifecycle == LifecycleValue {
		return true
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.built
}

// Query returns the registrations matching query. Containers that do not
// implement Inspector contribute nothing.
//
// Example:
//
//	// What a provider's scope holds beyond the ambient container
//	infos := harbor.Query(scope, harbor.ServiceQuery{})
func Query(c Container, query ServiceQuery) []ServiceInfo {
	var results []ServiceInfo

	seen := make(map[reflect.Type]bool)

	for depth := 0; c != nil; depth++ {
		if inspector, ok := c.(Inspector); ok {
			for _, info := range inspector.Services() {
				if seen[info.Type] {
					continue
				}
				seen[info.Type] = true

				if query.Lifecycle != "" && info.Lifecycle != query.Lifecycle {
					continue
				}

				if query.Built != nil && info.Built != *query.Built {
					continue
				}

				info.Depth = depth
				results = append(results, info)
			}
		}

		if !query.Parents {
			break
		}

		c = c.Parent()
	}

	return results
}

// QueryTypes returns the types of services matching the query criteria.
func QueryTypes(c Container, query ServiceQuery) []reflect.Type {
	results := Query(c, query)
	types := make([]reflect.Type, len(results))
	for i, info := range results {
		types[i] = info.Type
	}
	return types
}

// FindByLifecycle returns all services of c with a specific lifecycle.
func FindByLifecycle(c Container, lifecycle string) []ServiceInfo {
	return Query(c, ServiceQuery{Lifecycle: lifecycle})
}

// FindPending returns the registrations of c without a cached instance:
// unconstructed singletons and all transients.
func FindPending(c Container) []ServiceInfo {
	built := false
	return Query(c, ServiceQuery{Built: &built})
}
