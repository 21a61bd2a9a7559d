package cqrs

import (
	"github.com/shopspring/decimal"
)

// AccountRef addresses an account either by surrogate ID or by account
// number. Exactly one of the two is set; both resolve to the same record.
type AccountRef struct {
	ID     int64
	Number string
}

func ByID(id int64) AccountRef { return AccountRef{ID: id} }

func ByNumber(number string) AccountRef { return AccountRef{Number: number} }

func (r AccountRef) IsZero() bool { return r.ID == 0 && r.Number == "" }

type CreateAccountCommand struct {
	CustomerID     int64
	Type           string
	InitialBalance decimal.Decimal
}

type DepositCommand struct {
	Ref    AccountRef
	Amount decimal.Decimal
}

type WithdrawCommand struct {
	Ref    AccountRef
	Amount decimal.Decimal
}

type ChangeAccountStatusCommand struct {
	Ref    AccountRef
	Status string
}

type DeleteAccountCommand struct {
	Ref AccountRef
}

type CreateCustomerCommand struct {
	FirstName  string
	LastName   string
	NationalID string
	Email      string
}

// UpdateCustomerCommand carries no national ID: it is immutable after
// creation and a resubmitted value is dropped by the handler.
type UpdateCustomerCommand struct {
	CustomerID int64
	FirstName  string
	LastName   string
	Email      string
}

type DeleteCustomerCommand struct {
	CustomerID int64
}
