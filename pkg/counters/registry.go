package counters

import (
	"iter"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultReservedPrefix marks namespaces owned by the host itself. Namespaces
// whose name starts with it (case-insensitively) are only reachable through the
// privileged call path.
const DefaultReservedPrefix = "finch_"

// accessScope identifies which call path an operation arrived on. The public
// methods operate on standard namespaces, the *Privileged methods on reserved
// ones; a single scope check replaces duplicated prefix tests per method.
type accessScope int

const (
	scopeStandard accessScope = iota
	scopePrivileged
)

// Counter is one (namespace, name, value) triple yielded by Walk.
type Counter struct {
	Namespace string
	Name      string
	Value     int64
}

// counterSet holds one namespace's counters. order preserves registration
// order so Walk and Snapshot stay deterministic within a process run.
type counterSet struct {
	order  []string
	values map[string]int64
}

// Registry is an in-memory store of named counters grouped by owning
// namespace. It is created once by the host's composition root and handed to
// subsystems at construction time; it is safe for concurrent use.
type Registry struct {
	mu             sync.RWMutex
	reservedPrefix string // lowercase
	order          []string
	sets           map[string]*counterSet
}

// Option configures a Registry
type Option func(*Registry)

// WithReservedPrefix overrides the reserved namespace prefix. Matching is
// case-insensitive.
func WithReservedPrefix(prefix string) Option {
	return func(r *Registry) {
		r.reservedPrefix = strings.ToLower(prefix)
	}
}

// NewRegistry creates an empty registry using DefaultReservedPrefix unless
// overridden.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		reservedPrefix: DefaultReservedPrefix,
		sets:           make(map[string]*counterSet),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates namespace if absent and adds each counter name, initialized
// to zero. Re-registering an existing counter is a no-op and never resets its
// value. Reserved namespaces are rejected; use RegisterPrivileged for those.
func (r *Registry) Register(namespace string, names ...string) error {
	return r.register(namespace, scopeStandard, names...)
}

// RegisterPrivileged is Register for reserved namespaces only. It rejects any
// namespace that does not carry the reserved prefix.
func (r *Registry) RegisterPrivileged(namespace string, names ...string) error {
	return r.register(namespace, scopePrivileged, names...)
}

func (r *Registry) register(namespace string, scope accessScope, names ...string) error {
	if err := validateName(namespace, "", "namespace"); err != nil {
		return err
	}
	for _, name := range names {
		if err := validateName(namespace, name, "counter"); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkScope(namespace, scope); err != nil {
		return err
	}

	set, ok := r.sets[namespace]
	if !ok {
		set = &counterSet{values: make(map[string]int64)}
		r.sets[namespace] = set
		r.order = append(r.order, namespace)
	}
	for _, name := range names {
		if _, exists := set.values[name]; exists {
			continue
		}
		set.values[name] = 0
		set.order = append(set.order, name)
	}
	return nil
}

// Unregister removes exactly one counter. It fails with ErrNotFound if the
// pair was never registered and with ErrPermissionDenied for reserved
// namespaces.
func (r *Registry) Unregister(namespace, name string) error {
	if err := validateName(namespace, "", "namespace"); err != nil {
		return err
	}
	if err := validateName(namespace, name, "counter"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.contains(namespace, name) {
		return notFoundf(namespace, name, "counter has not been registered")
	}
	if err := r.checkScope(namespace, scopeStandard); err != nil {
		return err
	}

	set := r.sets[namespace]
	delete(set.values, name)
	for i, n := range set.order {
		if n == name {
			set.order = append(set.order[:i], set.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the current value of a counter. It fails with ErrNotFound if the
// pair was never registered. Reads are permitted on any namespace.
func (r *Registry) Get(namespace, name string) (int64, error) {
	if err := validateName(namespace, "", "namespace"); err != nil {
		return 0, err
	}
	if err := validateName(namespace, name, "counter"); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.contains(namespace, name) {
		return 0, notFoundf(namespace, name, "counter has not been registered")
	}
	return r.sets[namespace].values[name], nil
}

// Inc increments a counter by 1 and returns the new value.
func (r *Registry) Inc(namespace, name string) (int64, error) {
	return r.inc(namespace, name, 1, scopeStandard)
}

// IncBy adds by to a counter and returns the new value. by must be
// non-negative; counters only move forward through the public path.
func (r *Registry) IncBy(namespace, name string, by int64) (int64, error) {
	return r.inc(namespace, name, by, scopeStandard)
}

// IncPrivileged is Inc for reserved namespaces only.
func (r *Registry) IncPrivileged(namespace, name string) (int64, error) {
	return r.inc(namespace, name, 1, scopePrivileged)
}

// IncByPrivileged is IncBy for reserved namespaces only.
func (r *Registry) IncByPrivileged(namespace, name string, by int64) (int64, error) {
	return r.inc(namespace, name, by, scopePrivileged)
}

func (r *Registry) inc(namespace, name string, by int64, scope accessScope) (int64, error) {
	if err := validateName(namespace, "", "namespace"); err != nil {
		return 0, err
	}
	if err := validateName(namespace, name, "counter"); err != nil {
		return 0, err
	}
	if by < 0 {
		return 0, invalidArgumentf(namespace, name, "'by' must be non-negative, got %d", by)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.contains(namespace, name) {
		return 0, notFoundf(namespace, name, "counter has not been registered")
	}
	if err := r.checkScope(namespace, scope); err != nil {
		return 0, err
	}

	set := r.sets[namespace]
	set.values[name] += by
	return set.values[name], nil
}

// Contains reports whether the pair has been registered. It never fails for
// unknown pairs.
func (r *Registry) Contains(namespace, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contains(namespace, name)
}

// Snapshot returns a deep copy of the full mapping. Mutating the result never
// affects registry state.
func (r *Registry) Snapshot() map[string]map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]int64, len(r.sets))
	for namespace, set := range r.sets {
		values := make(map[string]int64, len(set.values))
		for name, value := range set.values {
			values[name] = value
		}
		out[namespace] = values
	}
	return out
}

// Walk yields (namespace, name, value) triples in registration order. With no
// arguments it walks every namespace; with arguments it walks only those, in
// the order given. Unknown namespaces yield nothing rather than failing.
func (r *Registry) Walk(namespaces ...string) iter.Seq[Counter] {
	r.mu.RLock()
	if len(namespaces) == 0 {
		namespaces = r.order
	}
	var triples []Counter
	for _, namespace := range namespaces {
		set, ok := r.sets[namespace]
		if !ok {
			continue
		}
		for _, name := range set.order {
			triples = append(triples, Counter{Namespace: namespace, Name: name, Value: set.values[name]})
		}
	}
	r.mu.RUnlock()

	return func(yield func(Counter) bool) {
		for _, c := range triples {
			if !yield(c) {
				return
			}
		}
	}
}

// Len returns the total number of registered counters across all namespaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.sets {
		n += len(set.values)
	}
	return n
}

// contains must be called with at least a read lock held.
func (r *Registry) contains(namespace, name string) bool {
	set, ok := r.sets[namespace]
	if !ok {
		return false
	}
	_, ok = set.values[name]
	return ok
}

// checkScope enforces the reserved-prefix boundary. Reserved namespaces demand
// the privileged scope and everything else demands the standard one.
func (r *Registry) checkScope(namespace string, scope accessScope) error {
	reserved := strings.HasPrefix(strings.ToLower(namespace), r.reservedPrefix)
	switch {
	case reserved && scope != scopePrivileged:
		return permissionDeniedf(namespace, "namespace %q is reserved; use the privileged operations", namespace)
	case !reserved && scope == scopePrivileged:
		return permissionDeniedf(namespace, "privileged operations require the %q prefix", r.reservedPrefix)
	}
	return nil
}

func validateName(namespace, counter, kind string) error {
	s := counter
	if kind == "namespace" {
		s = namespace
	}
	if s == "" {
		return invalidArgumentf(namespace, counter, "%s name must not be empty", kind)
	}
	if !utf8.ValidString(s) {
		return invalidArgumentf(namespace, counter, "%s name must be valid UTF-8", kind)
	}
	return nil
}
