/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"strings"
)

// MockT records failures of the helpers under test instead of stopping the test.
type MockT struct {
	Failed   bool
	Messages []string
}

func (t *MockT) FailNow() {
	t.Failed = true
}

func (t *MockT) Errorf(format string, args ...interface{}) {
	t.Failed = true
	t.Messages = append(t.Messages, fmt.Sprintf(format, args...))
}

func (t *MockT) Helper() {}

func (t *MockT) Output() string {
	return strings.Join(t.Messages, "\n")
}
