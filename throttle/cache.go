/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/backendkit/go-backendkit/log"
)

// Cache is the throttle state of one identity, loaded from the store by Engine.Load.
// It is not safe for concurrent use and is meant to live for one request.
type Cache struct {
	engine   *Engine
	identity string
	key      string
	state    State
}

// Identity returns the identity the state belongs to.
func (c *Cache) Identity() string {
	return c.identity
}

// Key returns the storage key.
func (c *Cache) Key() string {
	return c.key
}

// State returns a copy of the current state.
func (c *Cache) State() State {
	return c.state.clone()
}

// RegisterRequest counts a request in the current window and persists the state.
func (c *Cache) RegisterRequest(ctx context.Context) error {
	c.engine.logger.Debug("registering request", log.String("key", c.key))
	c.state.RequestCount++
	if c.state.FirstRequestTimestamp == nil {
		c.state.FirstRequestTimestamp = toEpoch(c.engine.now())
	}
	return c.save(ctx)
}

// ShouldThrottle reports whether the window's request count reached the limit.
// The first time it happens in a window the throttled timestamp is stamped (in memory only).
func (c *Cache) ShouldThrottle() bool {
	if c.state.RequestCount < c.engine.policy.RequestLimit {
		return false
	}
	if c.state.ThrottledTimestamp == nil {
		c.state.ThrottledTimestamp = toEpoch(c.engine.now())
		c.engine.metrics.IncViolations(c.engine.policy.Scope, c.state.PreviouslyThrottled)
	}
	if c.state.PreviouslyThrottled {
		c.engine.logger.Warn("request limit reached",
			log.String("key", c.key), log.Int("violation_count", c.state.TotalTimesThrottled))
	} else {
		c.engine.logger.Info("request limit reached", log.String("key", c.key))
	}
	return true
}

// Reset closes the current window after a served penalty: counters move to totals,
// the penalty escalates, and the window markers are cleared. The state is persisted.
func (c *Cache) Reset(ctx context.Context) error {
	c.state.TotalRequestCount += c.state.RequestCount
	c.state.TotalTimesThrottled++
	c.state.RequestCount = 0
	c.state.PreviouslyThrottled = true
	c.state.FirstRequestTimestamp = nil
	c.state.ThrottledTimestamp = nil
	return c.save(ctx)
}

// WaitTime returns the penalty for the next violation.
func (c *Cache) WaitTime() time.Duration {
	return c.engine.policy.WaitTime(c.state.TotalTimesThrottled)
}

// AllowRequestAfter returns how long the identity still has to wait.
// It is 0 when the identity is not throttled and negative when the penalty is already served.
func (c *Cache) AllowRequestAfter() time.Duration {
	throttledAt, ok := c.state.ThrottledTime()
	if !ok {
		return 0
	}
	return throttledAt.Add(c.WaitTime()).Sub(c.engine.now())
}

// rollWindow starts a new window when the current one is older than the policy timeout
// and the identity is not throttled. Requests of the closed window move to the total without a violation.
func (c *Cache) rollWindow() bool {
	if c.state.ThrottledTimestamp != nil {
		return false
	}
	startedAt, ok := c.state.FirstRequestTime()
	if !ok || c.engine.now().Sub(startedAt) < c.engine.policy.Timeout {
		return false
	}
	c.state.TotalRequestCount += c.state.RequestCount
	c.state.RequestCount = 0
	c.state.FirstRequestTimestamp = nil
	return true
}

func (c *Cache) ttl() time.Duration {
	return c.engine.policy.Timeout + c.WaitTime()
}

func (c *Cache) save(ctx context.Context) error {
	data, err := MarshalState(c.state)
	if err != nil {
		return fmt.Errorf("encode throttle state %q: %w", c.key, err)
	}
	ttl := c.ttl()
	if err = c.engine.store.Set(ctx, c.key, data, ttl); err != nil {
		return fmt.Errorf("save throttle state %q: %w", c.key, err)
	}
	c.engine.logger.Info("throttle state updated", log.String("key", c.key), log.Duration("ttl", ttl))
	return nil
}
