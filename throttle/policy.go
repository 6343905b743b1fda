/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"fmt"
	"time"
)

// Policy defaults.
const (
	DefaultScope        = "anonymous"
	LoginAttemptScope   = "login-attempt"
	DefaultRequestLimit = 5
	DefaultTimeout      = 60 * time.Second
)

// DefaultWaitTimes is the escalation table: every further violation doubles the penalty, capped at 16 minutes.
var DefaultWaitTimes = []time.Duration{
	60 * time.Second,
	120 * time.Second,
	240 * time.Second,
	480 * time.Second,
	960 * time.Second,
}

// Policy describes how one scope (e.g. "anonymous", "login-attempt") is throttled.
type Policy struct {
	// Scope is a part of the storage key, so different policies never share state.
	Scope string
	// RequestLimit is the number of requests in a window at which the identity is throttled.
	RequestLimit int
	// Timeout is the length of the observation window.
	Timeout time.Duration
	// WaitTimes is the penalty table indexed by State.TotalTimesThrottled. Must be non-decreasing.
	WaitTimes []time.Duration
	// RegisterExempt makes exempt (e.g. authenticated) requests count and reset the state like the rest.
	// When false, exempt requests are admitted without touching the state.
	RegisterExempt bool
	// RollWindow starts a new window when the current one is older than Timeout and the identity
	// is not throttled, so slow steady traffic never reaches the limit.
	// When false, a window lives until Reset or until the state expires in the store.
	RollWindow bool
}

// DefaultPolicy returns the policy with default limits for the scope.
func DefaultPolicy(scope string) Policy {
	return Policy{
		Scope:        scope,
		RequestLimit: DefaultRequestLimit,
		Timeout:      DefaultTimeout,
		WaitTimes:    append([]time.Duration(nil), DefaultWaitTimes...),
	}
}

// Validate checks the policy.
func (p Policy) Validate() error {
	if p.Scope == "" {
		return fmt.Errorf("scope cannot be empty")
	}
	if p.RequestLimit <= 0 {
		return fmt.Errorf("request limit must be positive, got %d", p.RequestLimit)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", p.Timeout)
	}
	if len(p.WaitTimes) == 0 {
		return fmt.Errorf("wait times cannot be empty")
	}
	for i, wt := range p.WaitTimes {
		if wt <= 0 {
			return fmt.Errorf("wait time #%d must be positive, got %s", i, wt)
		}
		if i > 0 && wt < p.WaitTimes[i-1] {
			return fmt.Errorf("wait times must be non-decreasing, %s follows %s", wt, p.WaitTimes[i-1])
		}
	}
	return nil
}

// WaitTime returns the penalty after timesThrottled closed penalties.
func (p Policy) WaitTime(timesThrottled int) time.Duration {
	if timesThrottled < 0 {
		timesThrottled = 0
	}
	if timesThrottled >= len(p.WaitTimes) {
		return p.WaitTimes[len(p.WaitTimes)-1]
	}
	return p.WaitTimes[timesThrottled]
}
