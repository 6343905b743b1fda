/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

package throttle

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// State is the persisted throttle state of one identity in one scope.
// JSON field names are the storage format and must stay stable.
type State struct {
	// RequestCount is the number of requests in the current window.
	RequestCount int `json:"request_count"`
	// TotalRequestCount accumulates RequestCount of closed windows.
	TotalRequestCount int `json:"total_request_count"`
	// TotalTimesThrottled counts closed penalties and selects the next wait time.
	TotalTimesThrottled int `json:"total_times_throttled"`
	// PreviouslyThrottled is true once the identity has been throttled at least once.
	PreviouslyThrottled bool `json:"previously_throttled"`
	// FirstRequestTimestamp is the start of the current window in epoch seconds.
	FirstRequestTimestamp *float64 `json:"first_request_timestamp"`
	// ThrottledTimestamp is the moment the limit was reached in the current window, in epoch seconds.
	ThrottledTimestamp *float64 `json:"throttled_timestamp"`
}

// FirstRequestTime returns FirstRequestTimestamp as time.Time.
func (s State) FirstRequestTime() (time.Time, bool) {
	return fromEpoch(s.FirstRequestTimestamp)
}

// ThrottledTime returns ThrottledTimestamp as time.Time.
func (s State) ThrottledTime() (time.Time, bool) {
	return fromEpoch(s.ThrottledTimestamp)
}

// Throttled reports whether the limit has been reached in the current window.
func (s State) Throttled() bool {
	return s.ThrottledTimestamp != nil
}

func (s State) clone() State {
	res := s
	if s.FirstRequestTimestamp != nil {
		v := *s.FirstRequestTimestamp
		res.FirstRequestTimestamp = &v
	}
	if s.ThrottledTimestamp != nil {
		v := *s.ThrottledTimestamp
		res.ThrottledTimestamp = &v
	}
	return res
}

// MarshalState encodes the state in the storage format.
func MarshalState(s State) ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalState decodes the storage format. Missing fields take zero values.
func UnmarshalState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode throttle state: %w", err)
	}
	return s, nil
}

func toEpoch(t time.Time) *float64 {
	v := float64(t.UnixNano()) / float64(time.Second)
	return &v
}

func fromEpoch(v *float64) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*v)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second)))), true
}
