package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/eaglebank/platform/shared/middleware"
)

// CustomerNotFoundCode is the error code the registry answers a missing
// customer with.
const CustomerNotFoundCode = "CUSTOMER_NOT_FOUND"

// CustomerGate asks the registry whether a customer exists.
type CustomerGate struct {
	p *prober
}

func NewCustomerGate(opts Options) *CustomerGate {
	return &CustomerGate{p: newProber("customer-exists", opts)}
}

// ExistsCustomer maps 2xx to Present and a registry 404 carrying
// CUSTOMER_NOT_FOUND to Absent. Everything else, including a bare 404 from
// a router or proxy and a timeout, is Unavailable with the cause returned.
func (g *CustomerGate) ExistsCustomer(ctx context.Context, customerID int64) (Outcome, error) {
	path := "/internal/customers/" + strconv.FormatInt(customerID, 10)
	return g.p.probe(ctx, path, nil, classifyExistence)
}

func classifyExistence(resp *http.Response) (Outcome, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Present, nil
	case resp.StatusCode == http.StatusNotFound:
		var body middleware.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
			return Unavailable, fmt.Errorf("%w: status 404 without error body: %v", ErrUnexpectedResponse, err)
		}
		if body.Code != CustomerNotFoundCode {
			return Unavailable, fmt.Errorf("%w: status 404 with code %q", ErrUnexpectedResponse, body.Code)
		}
		return Absent, nil
	default:
		return Unavailable, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
}
