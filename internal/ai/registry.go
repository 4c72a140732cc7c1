package ai

import (
	"sort"
	"strings"
	"sync"
)

type Registry struct {
	mu        sync.RWMutex
	platforms map[string]Platform
}

func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]Platform)}
}

func (r *Registry) Register(p Platform) {
	name := strings.ToLower(strings.TrimSpace(p.Name()))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.platforms[name] = p
}

func (r *Registry) Get(name string) (Platform, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	p, ok := r.platforms[name]
	r.mu.RUnlock()
	return p, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.platforms))
	for n := range r.platforms {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
