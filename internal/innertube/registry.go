package innertube

import (
	"sync"

	"github.com/corvid-tools/ytgrab/internal/types"
)

type defaultRegistry struct {
	once    sync.Once
	byID    map[types.ClientID]ClientProfile
	byName  map[string]ClientProfile
	ordered []ClientProfile
}

var (
	globalRegistry     *defaultRegistry
	globalRegistryOnce sync.Once
)

// NewRegistry builds the full, immutable 13-client table. The registry is
// a leaf in the component graph: built once, read by everyone, never
// mutated after construction (lookups are total: every types.ClientID has
// a row).
func NewRegistry() Registry {
	r := &defaultRegistry{
		byID:   make(map[types.ClientID]ClientProfile),
		byName: make(map[string]ClientProfile),
	}
	for _, p := range buildProfiles() {
		r.byID[p.ID] = p
		r.byName[p.Name] = p
		r.ordered = append(r.ordered, p)
	}
	return r
}

// DefaultRegistry returns a process-wide lazily-built registry singleton.
func DefaultRegistry() Registry {
	globalRegistryOnce.Do(func() {
		globalRegistry = NewRegistry().(*defaultRegistry)
	})
	return globalRegistry
}

func (r *defaultRegistry) Get(id types.ClientID) (ClientProfile, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *defaultRegistry) GetByName(name string) (ClientProfile, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *defaultRegistry) All() []ClientProfile {
	out := make([]ClientProfile, len(r.ordered))
	copy(out, r.ordered)
	return out
}
