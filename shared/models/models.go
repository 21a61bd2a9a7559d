package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceScale is the number of fractional digits every balance carries.
const BalanceScale = 2

type AccountType string

const (
	AccountTypeSavings  AccountType = "SAVINGS"
	AccountTypeChecking AccountType = "CHECKING"
)

// AccountTypeRule holds what an account type allows. Adding a type is an
// entry in AccountTypes.
type AccountTypeRule struct {
	// Floor is the lowest balance a withdrawal may leave behind.
	Floor decimal.Decimal
	// FloorCode is the business-rule code reported when Floor would be crossed.
	FloorCode    string
	FloorMessage string
}

var AccountTypes = map[AccountType]AccountTypeRule{
	AccountTypeSavings: {
		Floor:        decimal.Zero,
		FloorCode:    "INSUFFICIENT_FUNDS",
		FloorMessage: "Insufficient funds",
	},
	AccountTypeChecking: {
		Floor:        decimal.NewFromInt(-500),
		FloorCode:    "OVERDRAFT_LIMIT_EXCEEDED",
		FloorMessage: "Overdraft limit exceeded (-500)",
	},
}

// ParseAccountType accepts the canonical upper-case name, ignoring
// surrounding whitespace and case.
func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := AccountTypes[t]
	return t, ok
}

// Rule returns the type's rule; ok is false for unknown types.
func (t AccountType) Rule() (AccountTypeRule, bool) {
	r, ok := AccountTypes[t]
	return r, ok
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
)

func ParseAccountStatus(s string) (AccountStatus, bool) {
	switch st := AccountStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case AccountStatusActive, AccountStatusInactive:
		return st, true
	}
	return "", false
}

// Account is the ledger's write model. CustomerID is a weak reference to a
// registry customer: validated once, at creation, never joined.
type Account struct {
	ID            int64           `json:"id"`
	AccountNumber string          `json:"accountNumber"`
	CustomerID    int64           `json:"customerId"`
	Type          AccountType     `json:"type"`
	Status        AccountStatus   `json:"status"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"createdTimestamp"`
	UpdatedAt     time.Time       `json:"updatedTimestamp"`
}

// Customer is the registry's write model.
type Customer struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	NationalID string    `json:"nationalId"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdTimestamp"`
	UpdatedAt  time.Time `json:"updatedTimestamp"`
}

// RoundBalance normalises an amount to BalanceScale digits.
func RoundBalance(d decimal.Decimal) decimal.Decimal {
	return d.Round(BalanceScale)
}

// FitsBalanceScale reports whether d has no non-zero digits past
// BalanceScale, so 10.50 and 10.500 fit but 10.005 does not.
func FitsBalanceScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(BalanceScale))
}
