// Package events carries domain events over Redis Streams. Events are
// notifications only; no consumer repairs state from them.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	CustomerCreated = "customer.created"
	CustomerUpdated = "customer.updated"
	CustomerDeleted = "customer.deleted"

	AccountCreated       = "account.created"
	AccountStatusChanged = "account.status_changed"
	AccountDeleted       = "account.deleted"
	BalanceUpdated       = "balance.updated"
)

// Stream names
const (
	CustomerEventsStream = "customer.events"
	AccountEventsStream  = "account.events"
)

// Event is the envelope stored in the stream's "event" field.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Customer events
type CustomerCreatedEvent struct {
	CustomerID int64  `json:"customerId"`
	NationalID string `json:"nationalId"`
	Email      string `json:"email"`
}

type CustomerUpdatedEvent struct {
	CustomerID int64  `json:"customerId"`
	Email      string `json:"email"`
}

type CustomerDeletedEvent struct {
	CustomerID int64 `json:"customerId"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	CustomerID    int64  `json:"customerId"`
	AccountType   string `json:"accountType"`
	Balance       string `json:"balance"`
}

type AccountStatusChangedEvent struct {
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	Status        string `json:"status"`
}

type AccountDeletedEvent struct {
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	CustomerID    int64  `json:"customerId"`
}

// BalanceUpdatedEvent amounts are decimal strings with two fractional digits.
type BalanceUpdatedEvent struct {
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
	NewBalance    string `json:"newBalance"`
	Change        string `json:"change"`
}
