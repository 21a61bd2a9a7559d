// Package gatetest provides fixed-answer gates for tests.
//
// Never import this package from a cmd/ binary: a gate that always answers
// "no active accounts" lets the registry delete customers that still hold
// money.
package gatetest

import (
	"context"
	"sync"

	"github.com/eaglebank/platform/shared/gate"
)

// Static answers every probe with the same outcome and error, recording the
// customer IDs it was asked about.
type Static struct {
	Outcome gate.Outcome
	Err     error

	mu    sync.Mutex
	calls []int64
}

func (s *Static) record(id int64) (gate.Outcome, error) {
	s.mu.Lock()
	s.calls = append(s.calls, id)
	s.mu.Unlock()
	return s.Outcome, s.Err
}

func (s *Static) ExistsCustomer(_ context.Context, customerID int64) (gate.Outcome, error) {
	return s.record(customerID)
}

func (s *Static) HasActiveAccounts(_ context.Context, customerID int64) (gate.Outcome, error) {
	return s.record(customerID)
}

// Calls returns the customer IDs probed so far.
func (s *Static) Calls() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.calls...)
}
