package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eaglebank/platform/shared/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method, path, query, body string
}

func upstream(t *testing.T, name string, seen *[]recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*seen = append(*seen, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(b)})
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGatewayRouter(t *testing.T, up Upstreams) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	require.NoError(t, Register(r, up, nil))
	return r
}

func TestRegisterRoutesByPrefix(t *testing.T) {
	var ledgerSeen, registrySeen []recorded
	ledger := upstream(t, "ledger", &ledgerSeen)
	registry := upstream(t, "registry", &registrySeen)
	router := newGatewayRouter(t, Upstreams{LedgerURL: ledger.URL, RegistryURL: registry.URL + "/"})

	tests := []struct {
		method, target, wantUpstream string
	}{
		{http.MethodPost, "/v1/accounts", "ledger"},
		{http.MethodGet, "/v1/accounts?customerId=7", "ledger"},
		{http.MethodPost, "/v1/accounts/number/1234567890120310/withdraw", "ledger"},
		{http.MethodPatch, "/v1/accounts/3/status", "ledger"},
		{http.MethodGet, "/v1/customers", "registry"},
		{http.MethodDelete, "/v1/customers/7", "registry"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(`{"amount":"10.00"}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusCreated, w.Code)
			assert.Equal(t, tt.wantUpstream, w.Header().Get("X-Upstream"))
		})
	}

	require.Len(t, ledgerSeen, 4)
	assert.Equal(t, "customerId=7", ledgerSeen[1].query)
	assert.Equal(t, "/v1/accounts/number/1234567890120310/withdraw", ledgerSeen[2].path)
	assert.Equal(t, `{"amount":"10.00"}`, ledgerSeen[2].body)
	require.Len(t, registrySeen, 2)
	assert.Equal(t, "/v1/customers/7", registrySeen[1].path)
}

func TestInternalRoutesAreNotExposed(t *testing.T) {
	var seen []recorded
	up := upstream(t, "ledger", &seen)
	router := newGatewayRouter(t, Upstreams{LedgerURL: up.URL, RegistryURL: up.URL})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/accounts/active?customerId=7", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, seen)
}

func TestUnreachableUpstream(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	router := newGatewayRouter(t, Upstreams{LedgerURL: deadURL, RegistryURL: deadURL})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/customers/7", nil))

	require.Equal(t, http.StatusBadGateway, w.Code)
	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", resp.Code)
}

func TestRegisterRejectsBadURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	err := Register(gin.New(), Upstreams{LedgerURL: "localhost:8083", RegistryURL: "http://localhost:8082"}, nil)
	assert.Error(t, err)
}
