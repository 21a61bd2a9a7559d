package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/platform/shared/apperr"
	"github.com/eaglebank/platform/shared/cqrs"
	"github.com/eaglebank/platform/shared/gate"
	"github.com/eaglebank/platform/shared/middleware"
	"github.com/eaglebank/platform/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementations ----

type mockCustomerCommander struct {
	createFn func(cqrs.CreateCustomerCommand) (*models.Customer, error)
	updateFn func(cqrs.UpdateCustomerCommand) (*models.Customer, error)
	deleteFn func(cqrs.DeleteCustomerCommand) error
}

func (m *mockCustomerCommander) CreateCustomer(_ context.Context, cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerCommander) UpdateCustomer(_ context.Context, cmd cqrs.UpdateCustomerCommand) (*models.Customer, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerCommander) DeleteCustomer(_ context.Context, cmd cqrs.DeleteCustomerCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockCustomerQuerier struct {
	getFn    func(cqrs.GetCustomerQuery) (*models.CustomerView, error)
	listFn   func() ([]models.CustomerView, error)
	existsFn func(cqrs.GetCustomerQuery) (bool, error)
}

func (m *mockCustomerQuerier) GetCustomer(_ context.Context, q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerQuerier) ListCustomers(_ context.Context, _ cqrs.ListCustomersQuery) ([]models.CustomerView, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockCustomerQuerier) Exists(_ context.Context, q cqrs.GetCustomerQuery) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(q)
	}
	return false, fmt.Errorf("not configured")
}

// ---- helpers ----

func newCustomerTestRouter(cmds CustomerCommander, qrys CustomerQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewCustomerHandler(cmds, qrys).Register(r, middleware.ServiceAuth(nil))
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func aTestCustomer() *models.Customer {
	return &models.Customer{
		ID: 7, FirstName: "Ada", LastName: "Lovelace", NationalID: "12345678Z", Email: "ada@example.com",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func aValidCustomerBody() map[string]interface{} {
	return map[string]interface{}{
		"firstName": "Ada", "lastName": "Lovelace", "nationalId": "12345678Z", "email": "ada@example.com",
	}
}

// ---- tests ----

func TestCreateCustomer(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createFn       func(cqrs.CreateCustomerCommand) (*models.Customer, error)
		expectedStatus int
	}{
		{
			name:           "success - create customer",
			body:           aValidCustomerBody(),
			createFn:       func(cmd cqrs.CreateCustomerCommand) (*models.Customer, error) { return aTestCustomer(), nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing required fields",
			body:           map[string]interface{}{"firstName": "Ada"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - invalid email from command",
			body: aValidCustomerBody(),
			createFn: func(cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
				return nil, apperr.Validation("INVALID_CUSTOMER", "Email: Invalid email format")
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - duplicate national id",
			body: aValidCustomerBody(),
			createFn: func(cmd cqrs.CreateCustomerCommand) (*models.Customer, error) {
				return nil, apperr.BusinessRule("DUPLICATE_NATIONAL_ID", "A customer with this national id already exists")
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerCommander{createFn: tt.createFn}, &mockCustomerQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/customers", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestUpdateCustomerDropsNationalID(t *testing.T) {
	var got cqrs.UpdateCustomerCommand
	cmds := &mockCustomerCommander{updateFn: func(cmd cqrs.UpdateCustomerCommand) (*models.Customer, error) {
		got = cmd
		return aTestCustomer(), nil
	}}
	router := newCustomerTestRouter(cmds, &mockCustomerQuerier{})

	body := aValidCustomerBody()
	body["nationalId"] = "CHANGED"
	w := doRequest(router, http.MethodPut, "/v1/customers/7", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(7), got.CustomerID)
	assert.Contains(t, w.Body.String(), `"nationalId":"12345678Z"`)
}

func TestGetAndListCustomers(t *testing.T) {
	qrys := &mockCustomerQuerier{
		getFn: func(q cqrs.GetCustomerQuery) (*models.CustomerView, error) {
			if q.CustomerID != 7 {
				return nil, apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found")
			}
			return aTestCustomer().View(), nil
		},
		listFn: func() ([]models.CustomerView, error) {
			return []models.CustomerView{*aTestCustomer().View()}, nil
		},
	}
	router := newCustomerTestRouter(&mockCustomerCommander{}, qrys)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/v1/customers/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/v1/customers/8", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/v1/customers/abc", nil).Code)

	w := doRequest(router, http.MethodGet, "/v1/customers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ListCustomersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Customers, 1)
}

func TestDeleteCustomer(t *testing.T) {
	tests := []struct {
		name           string
		deleteFn       func(cqrs.DeleteCustomerCommand) error
		expectedStatus int
	}{
		{"success", func(cqrs.DeleteCustomerCommand) error { return nil }, http.StatusNoContent},
		{"has active accounts", func(cqrs.DeleteCustomerCommand) error {
			return apperr.BusinessRule("CUSTOMER_HAS_ACTIVE_ACCOUNTS", "Customer still has active accounts")
		}, http.StatusConflict},
		{"ledger unavailable", func(cqrs.DeleteCustomerCommand) error {
			return apperr.Unavailable("ACCOUNT_SERVICE_UNAVAILABLE", "Account service unavailable", context.DeadlineExceeded)
		}, http.StatusServiceUnavailable},
		{"not found", func(cqrs.DeleteCustomerCommand) error {
			return apperr.NotFound("CUSTOMER_NOT_FOUND", "Customer not found")
		}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCustomerTestRouter(&mockCustomerCommander{deleteFn: tt.deleteFn}, &mockCustomerQuerier{})
			w := doRequest(router, http.MethodDelete, "/v1/customers/7", nil)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestCustomerExistsRoute(t *testing.T) {
	qrys := &mockCustomerQuerier{
		existsFn: func(q cqrs.GetCustomerQuery) (bool, error) {
			if q.CustomerID == 9 {
				return false, fmt.Errorf("connection refused")
			}
			return q.CustomerID == 7, nil
		},
		getFn: func(q cqrs.GetCustomerQuery) (*models.CustomerView, error) { return aTestCustomer().View(), nil },
	}
	router := newCustomerTestRouter(&mockCustomerCommander{}, qrys)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/internal/customers/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/internal/customers/8", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/internal/customers/abc", nil).Code)
	// A failing store must never read as "absent".
	assert.Equal(t, http.StatusInternalServerError, doRequest(router, http.MethodGet, "/internal/customers/9", nil).Code)
}

func TestCustomerExistsRouteMatchesGate(t *testing.T) {
	qrys := &mockCustomerQuerier{
		existsFn: func(q cqrs.GetCustomerQuery) (bool, error) {
			if q.CustomerID == 9 {
				return false, fmt.Errorf("connection refused")
			}
			return q.CustomerID == 7, nil
		},
		getFn: func(q cqrs.GetCustomerQuery) (*models.CustomerView, error) { return aTestCustomer().View(), nil },
	}
	srv := httptest.NewServer(newCustomerTestRouter(&mockCustomerCommander{}, qrys))
	defer srv.Close()
	g := gate.NewCustomerGate(gate.Options{BaseURL: srv.URL})

	tests := []struct {
		id   int64
		want gate.Outcome
	}{
		{7, gate.Present},
		{8, gate.Absent},
		{9, gate.Unavailable},
	}
	for _, tt := range tests {
		got, _ := g.ExistsCustomer(context.Background(), tt.id)
		assert.Equal(t, tt.want, got, "customer %d", tt.id)
	}

	// A registry without the internal route must not read as "absent".
	bare := gin.New()
	empty := httptest.NewServer(bare)
	defer empty.Close()
	got, err := gate.NewCustomerGate(gate.Options{BaseURL: empty.URL}).ExistsCustomer(context.Background(), 8)
	assert.Equal(t, gate.Unavailable, got)
	assert.ErrorIs(t, err, gate.ErrUnexpectedResponse)
}
