// Copyright 2024 The Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"sync"
)

// Key identifies a Service registered with a Container. Extension packages
// (roster, MUC, entity caps, ping) each export their own Key so a Client can
// depend on them without importing their concrete types.
type Key string

// Service is a long-lived component a Client keeps alive alongside its
// current session: a roster cache, a MUC bookkeeper, an entity capabilities
// cache, a ping responder, and so on.
type Service interface {
	Close() error
}

// Factory constructs the Service registered under a Key, summoning whatever
// it needs from c first.
type Factory func(ctx context.Context, c *Client) (Service, error)

type registration struct {
	factory Factory
	before  []Key
	after   []Key
}

// Option configures a Container.Register call.
type Option func(*registration)

// Before declares that this service must be summoned, and therefore
// initialized, before the named keys whenever they are also summoned. It is
// grounded on the SERVICE_BEFORE/SERVICE_AFTER ordering pairs XMPP client
// libraries use to sequence dependent services (for example, entity
// capabilities must exist before presence broadcasting uses it).
func Before(keys ...Key) Option {
	return func(r *registration) { r.before = append(r.before, keys...) }
}

// After declares that this service must be summoned, and therefore
// initialized, after the named keys whenever they are also summoned.
func After(keys ...Key) Option {
	return func(r *registration) { r.after = append(r.after, keys...) }
}

// Container is a dependency-ordered registry of Services, lazily summoned
// and cached by Key. Registering a Before or After edge between two keys
// constrains their relative initialization order without either service
// needing a compile-time reference to the other.
type Container struct {
	mu    sync.Mutex
	regs  map[Key]*registration
	inst  map[Key]Service
	order []Key
}

// NewContainer returns an empty Container.
func NewContainer() *Container {
	return &Container{
		regs: make(map[Key]*registration),
		inst: make(map[Key]Service),
	}
}

// Register associates key with a Factory and, optionally, Before/After
// ordering constraints. Registering the same key twice replaces the
// previous registration; already-summoned instances are unaffected.
func (c *Container) Register(key Key, f Factory, opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &registration{factory: f}
	for _, o := range opts {
		o(r)
	}
	c.regs[key] = r
}

// Summon returns the Service registered under key, constructing it (and,
// transitively, every service its After edges name and every service that
// declared Before on it) the first time it is
// requested. Later calls for the same key return the cached instance.
func (c *Container) Summon(ctx context.Context, cl *Client, key Key) (Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summonLocked(ctx, cl, key, nil)
}

func (c *Container) summonLocked(ctx context.Context, cl *Client, key Key, path []Key) (Service, error) {
	if inst, ok := c.inst[key]; ok {
		return inst, nil
	}
	for _, seen := range path {
		if seen == key {
			return nil, fmt.Errorf("client: service dependency cycle: %v -> %s", path, key)
		}
	}
	reg, ok := c.regs[key]
	if !ok {
		return nil, fmt.Errorf("client: no service registered for key %q", key)
	}
	path = append(path, key)

	// A Before edge is the mirror image of an After edge: every registered
	// service that declared Before(key) is summoned ahead of key, exactly as
	// if key had declared After on it.
	deps := append([]Key(nil), reg.after...)
	for k, r := range c.regs {
		if k != key && hasKey(r.before, key) && !hasKey(deps, k) {
			deps = append(deps, k)
		}
	}
	for _, dep := range deps {
		if _, err := c.summonLocked(ctx, cl, dep, path); err != nil {
			return nil, fmt.Errorf("client: summoning %q (required after %q): %w", key, dep, err)
		}
	}

	svc, err := reg.factory(ctx, cl)
	if err != nil {
		return nil, fmt.Errorf("client: summoning %q: %w", key, err)
	}
	c.inst[key] = svc
	c.order = append(c.order, key)
	return svc, nil
}

func hasKey(ks []Key, k Key) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

// Lookup returns the already-summoned instance for key without summoning it.
func (c *Container) Lookup(key Key) (Service, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	svc, ok := c.inst[key]
	return svc, ok
}

// Close closes every summoned service in the reverse of the order it was
// summoned in (so that a service is always closed before the dependencies it
// was summoned after) and clears the instance cache so a subsequent Summon
// re-runs the factory against the next session.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		key := c.order[i]
		svc, ok := c.inst[key]
		if !ok {
			continue
		}
		if err := svc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	c.inst = make(map[Key]Service)
	c.order = nil
	if len(errs) > 0 {
		return fmt.Errorf("client: %d service(s) failed to close: %v", len(errs), errs)
	}
	return nil
}
