package whatsapp

import "sync"

// Registry maps session names to live client handles. It is the single
// source of truth for "is this session connected"; rows in the session
// table are the persistent mirror of this map.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register stores the handle for name, replacing any previous one.
func (r *Registry) Register(name string, cli Client) {
	r.mu.Lock()
	r.clients[name] = cli
	r.mu.Unlock()
}

// RegisterIfAbsent stores cli only when no handle exists for name.
// It returns the handle that is registered after the call and whether
// the caller's handle won. Callers use this to serialize session
// creation without holding their own lock.
func (r *Registry) RegisterIfAbsent(name string, cli Client) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.clients[name]; ok {
		return existing, false
	}
	r.clients[name] = cli
	return cli, true
}

// Get returns the live handle for name. An absent name is not an error;
// it simply means the session is not connected.
func (r *Registry) Get(name string) (Client, bool) {
	r.mu.RLock()
	cli, ok := r.clients[name]
	r.mu.RUnlock()
	return cli, ok
}

// Unregister drops the handle for name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.clients, name)
	r.mu.Unlock()
}

// Names returns the currently registered session names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.clients))
	for name := range r.clients {
		out = append(out, name)
	}
	return out
}
