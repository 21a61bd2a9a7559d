package cqrs

// ---------- Account queries ----------

// GetAccountQuery fetches a single account by ID or number.
type GetAccountQuery struct {
	Ref AccountRef
}

// ListAccountsQuery lists accounts, optionally restricted to one customer.
type ListAccountsQuery struct {
	CustomerID int64
}

// ActiveAccountsQuery asks whether a customer holds any ACTIVE account.
type ActiveAccountsQuery struct {
	CustomerID int64
}

// ---------- Customer queries ----------

// GetCustomerQuery fetches a single customer by ID.
type GetCustomerQuery struct {
	CustomerID int64
}

type ListCustomersQuery struct{}
