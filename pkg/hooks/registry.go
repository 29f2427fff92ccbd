package hooks

import (
	"fmt"
	"sort"
	"sync"
)

// PolicyFactory constructs a NetworkPolicy instance. Factories are invoked at
// configuration time so a bad tag fails the run before any participant is
// admitted.
type PolicyFactory func() NetworkPolicy

// PolicyRegistry maps policy tags to factories. Registration happens during
// process init; resolution happens once when the experiment is configured.
type PolicyRegistry struct {
	mu        sync.RWMutex
	factories map[string]PolicyFactory
}

// NewPolicyRegistry constructs a registry pre-populated with the built-in
// policies.
func NewPolicyRegistry() *PolicyRegistry {
	r := &PolicyRegistry{factories: make(map[string]PolicyFactory)}
	mustRegister := func(tag string, f PolicyFactory) {
		if err := r.Register(tag, f); err != nil {
			panic(err)
		}
	}
	mustRegister("random", func() NetworkPolicy { return RandomPolicy{} })
	mustRegister("round_robin", func() NetworkPolicy { return RoundRobinPolicy{} })
	return r
}

// Register adds a factory under tag. Duplicate tags are rejected so two
// experiment packages cannot silently shadow each other.
func (r *PolicyRegistry) Register(tag string, factory PolicyFactory) error {
	if tag == "" {
		return fmt.Errorf("policy tag required")
	}
	if factory == nil {
		return fmt.Errorf("policy factory for %q is nil", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[tag]; exists {
		return fmt.Errorf("policy %q already registered", tag)
	}
	r.factories[tag] = factory
	return nil
}

// Resolve validates the tag and constructs the policy.
func (r *PolicyRegistry) Resolve(tag string) (NetworkPolicy, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown network policy %q (known: %v)", tag, r.Tags())
	}
	policy := factory()
	if policy == nil {
		return nil, fmt.Errorf("policy factory %q returned nil", tag)
	}
	return policy, nil
}

// Tags returns the registered tags in sorted order.
func (r *PolicyRegistry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
