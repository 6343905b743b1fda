/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package throttle counts requests per identity in an observation window and penalizes
// identities that reach the limit with escalating wait times (60s, 120s, 240s... by default).
//
// The state lives in an injected Store (see package kvstore), so several service instances
// may share it. Read-modify-write of one identity is not atomic: concurrent requests of the
// same identity may lose updates, which is accepted for soft rate limiting.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/log"
)

// Store is the key-value storage for throttle state.
// The state is never deleted by the engine, it expires by the TTL passed to Set.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Decision is the result of Engine.Allow.
type Decision struct {
	Allowed bool
	// Wait is how long the identity has to wait before the next request will be admitted.
	// It is meaningful only when Allowed is false.
	Wait  time.Duration
	State State
}

// EngineOpts are optional settings of Engine.
type EngineOpts struct {
	Logger  log.FieldLogger
	Metrics MetricsCollector
	// Now overrides the clock, used in tests.
	Now func() time.Time
}

// Engine applies a Policy to identities using a Store.
type Engine struct {
	store   Store
	policy  Policy
	logger  log.FieldLogger
	metrics MetricsCollector
	now     func() time.Time
}

// NewEngine creates a new Engine.
func NewEngine(store Store, policy Policy, opts EngineOpts) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid throttle policy: %w", err)
	}
	policy.WaitTimes = append([]time.Duration(nil), policy.WaitTimes...)
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = disabledMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:   store,
		policy:  policy,
		logger:  opts.Logger.With(log.String("throttle_scope", policy.Scope)),
		metrics: opts.Metrics,
		now:     opts.Now,
	}, nil
}

// Policy returns the policy of the engine.
func (e *Engine) Policy() Policy {
	p := e.policy
	p.WaitTimes = append([]time.Duration(nil), e.policy.WaitTimes...)
	return p
}

// Key returns the storage key for the identity.
func (e *Engine) Key(identity string) string {
	return "throttle_" + e.policy.Scope + "_" + identity
}

// Load reads the state of the identity. A missing entry yields a zero state.
func (e *Engine) Load(ctx context.Context, identity string) (*Cache, error) {
	key := e.Key(identity)
	c := &Cache{engine: e, identity: identity, key: key}
	data, found, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load throttle state %q: %w", key, err)
	}
	if !found || len(data) == 0 {
		return c, nil
	}
	if c.state, err = UnmarshalState(data); err != nil {
		return nil, fmt.Errorf("load throttle state %q: %w", key, err)
	}
	return c, nil
}

// Allow decides whether a request of the identity is admitted.
//
// The request is registered first and the limit is checked after that. A throttled identity
// is admitted again (and its penalty escalated for next time) once the wait time has passed.
// Exempt requests are always admitted; see Policy.RegisterExempt for whether they are counted.
func (e *Engine) Allow(ctx context.Context, identity string, exempt bool) (Decision, error) {
	c, err := e.Load(ctx, identity)
	if err != nil {
		return Decision{}, err
	}

	if exempt && !e.policy.RegisterExempt {
		e.metrics.IncDecisions(e.policy.Scope, DecisionExempt)
		return Decision{Allowed: true, State: c.State()}, nil
	}

	if e.policy.RollWindow {
		c.rollWindow()
	}
	if err = c.RegisterRequest(ctx); err != nil {
		return Decision{}, err
	}

	wasStamped := c.state.ThrottledTimestamp != nil
	if !c.ShouldThrottle() {
		e.metrics.IncDecisions(e.policy.Scope, DecisionAllowed)
		return Decision{Allowed: true, State: c.State()}, nil
	}

	if exempt || c.AllowRequestAfter() < 0 {
		if err = c.Reset(ctx); err != nil {
			return Decision{}, err
		}
		if exempt {
			e.metrics.IncDecisions(e.policy.Scope, DecisionExempt)
		} else {
			e.metrics.IncDecisions(e.policy.Scope, DecisionAllowed)
		}
		return Decision{Allowed: true, State: c.State()}, nil
	}

	if !wasStamped {
		// ShouldThrottle has just stamped the window, the stamp must survive this request.
		if err = c.save(ctx); err != nil {
			return Decision{}, err
		}
	}
	e.metrics.IncDecisions(e.policy.Scope, DecisionDenied)
	return Decision{Allowed: false, Wait: c.AllowRequestAfter(), State: c.State()}, nil
}

// RemainingWait returns how long a throttled identity still has to wait, without registering a request.
// It is 0 when the next request of the identity would be registered and checked as usual.
func (e *Engine) RemainingWait(ctx context.Context, identity string) (time.Duration, error) {
	c, err := e.Load(ctx, identity)
	if err != nil {
		return 0, err
	}
	if wait := c.AllowRequestAfter(); wait > 0 {
		return wait, nil
	}
	return 0, nil
}
