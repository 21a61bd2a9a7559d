package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// AccountGate asks the ledger whether a customer holds any ACTIVE account.
type AccountGate struct {
	p *prober
}

func NewAccountGate(opts Options) *AccountGate {
	return &AccountGate{p: newProber("active-accounts", opts)}
}

// HasActiveAccounts maps a 2xx JSON true to Present and false to Absent.
// Any other status, or a body that is not a JSON boolean, is Unavailable.
func (g *AccountGate) HasActiveAccounts(ctx context.Context, customerID int64) (Outcome, error) {
	q := url.Values{"customerId": []string{strconv.FormatInt(customerID, 10)}}
	return g.p.probe(ctx, "/internal/accounts/active", q, classifyActiveAccounts)
}

func classifyActiveAccounts(resp *http.Response) (Outcome, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Unavailable, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	var active bool
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64)).Decode(&active); err != nil {
		return Unavailable, fmt.Errorf("%w: body is not a boolean: %v", ErrUnexpectedResponse, err)
	}
	if active {
		return Present, nil
	}
	return Absent, nil
}
