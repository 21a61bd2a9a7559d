package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is the read-optimised projection of an account, served from
// the Redis read model. Balance is rendered with exactly two decimals.
type AccountView struct {
	ID            int64         `json:"id"`
	AccountNumber string        `json:"accountNumber"`
	CustomerID    int64         `json:"customerId"`
	Type          AccountType   `json:"type"`
	Status        AccountStatus `json:"status"`
	Balance       string        `json:"balance"`
	CreatedAt     time.Time     `json:"createdTimestamp"`
	UpdatedAt     time.Time     `json:"updatedTimestamp"`
}

// CustomerView is the read-optimised projection of a customer.
type CustomerView struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	NationalID string    `json:"nationalId"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdTimestamp"`
	UpdatedAt  time.Time `json:"updatedTimestamp"`
}

func (a *Account) View() *AccountView {
	return &AccountView{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		CustomerID:    a.CustomerID,
		Type:          a.Type,
		Status:        a.Status,
		Balance:       a.Balance.StringFixed(BalanceScale),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// BalanceDecimal parses the rendered balance back. The view is only ever
// written from Account.View, so a parse failure means a corrupt cache entry.
func (v *AccountView) BalanceDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(v.Balance)
}

func (c *Customer) View() *CustomerView {
	return &CustomerView{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		NationalID: c.NationalID,
		Email:      c.Email,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
