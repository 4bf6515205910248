package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/storage/memory"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type stubCatalog map[int64]domain.ProductSnapshot

func (c stubCatalog) Resolve(_ context.Context, productID int64) (domain.ProductSnapshot, error) {
	if productID == 500 {
		return domain.ProductSnapshot{}, domain.CatalogUnavailable(productID, errors.New("timeout"))
	}
	snap, ok := c[productID]
	if !ok {
		return domain.ProductSnapshot{}, domain.ProductNotFound(productID)
	}
	return snap, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type counter struct{ n int }

func (c *counter) Inc() { c.n++ }

type envelope struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status"`
	Message     string            `json:"message"`
	Error       string            `json:"error"`
	Path        string            `json:"path"`
	Data        json.RawMessage   `json:"data"`
	FieldErrors map[string]string `json:"fieldErrors"`
}

type testServer struct {
	router  http.Handler
	created *counter
}

func newTestServer(t *testing.T, opts ...app.Option) *testServer {
	t.Helper()
	catalog := stubCatalog{
		10: {ProductID: 10, Name: "Widget", Price: decimal.RequireFromString("19.99")},
		11: {ProductID: 11, Name: "Gadget", Price: decimal.RequireFromString("5.25")},
	}
	store := memory.NewStore(storage.WithAuditor("tester"))
	svc := app.NewOrderService(catalog, store, opts...)
	created := &counter{}
	h := NewHandler(svc, store, WithOrderCounter(created))
	return &testServer{router: NewRouter(h), created: created}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeOrder(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestCreateOrder_Created(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/orders",
		`{"customerId":"CUST1","items":[{"productId":10,"quantity":2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, http.StatusCreated, env.Status)
	assert.Equal(t, "Order created successfully", env.Message)
	assert.Equal(t, "/orders", env.Path)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, 1, s.created.n)

	order := decodeOrder(t, env.Data)
	assert.Equal(t, "CUST1", order["customerId"])
	assert.Equal(t, "CREATED", order["status"])
	assert.Equal(t, 39.98, order["totalAmount"])
	assert.Regexp(t, domain.OrderNumberPattern, order["orderNumber"])

	items := order["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Widget", item["productName"])
	assert.Equal(t, 19.99, item["price"])
	assert.Equal(t, 39.98, item["totalPrice"])
	assert.Equal(t, float64(2), item["quantity"])

	audit := order["audit"].(map[string]any)
	assert.Equal(t, "tester", audit["createdBy"])
	assert.Equal(t, "tester", audit["updatedBy"])
}

func TestCreateOrder_AmountsKeepTwoDecimals(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/orders",
		`{"customerId":"CUST1","items":[{"productId":11,"quantity":2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalAmount":10.50`)
}

func TestCreateOrder_ValidationFailed(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/orders", `{"customerId":"","items":[]}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidationFailed, env.Error)
	assert.Equal(t, "Input validation failed", env.Message)
	assert.Equal(t, "Customer ID must not be blank", env.FieldErrors["customerId"])
	assert.Equal(t, "Order must contain at least one item", env.FieldErrors["items"])
	assert.Zero(t, s.created.n)
}

func TestCreateOrder_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{`{"customerId":`, `{"customerId":"C","items":[{"productId":"ten"}]}`} {
		rec, env := s.do(t, http.MethodPost, "/orders", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, CodeBadJSON, env.Error)
		assert.Equal(t, "Malformed JSON request", env.Message)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/orders",
		`{"customerId":"CUST1","items":[{"productId":999,"quantity":1}]}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error)
	assert.Contains(t, env.Message, "999")

	rec, env = s.do(t, http.MethodGet, "/orders/customer/CUST1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestCreateOrder_CatalogUnavailable(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/orders",
		`{"customerId":"CUST1","items":[{"productId":500,"quantity":1}]}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeBadGateway, env.Error)
}

func TestCreateOrder_Conflict(t *testing.T) {
	s := newTestServer(t, app.WithBuilder(domain.NewBuilderWithNumbers(func() string { return "ORD-00000001" })))

	body := `{"customerId":"CUST1","items":[{"productId":10,"quantity":1}]}`
	rec, _ := s.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, env.Error)
}

func TestGetOrder_RoundTrip(t *testing.T) {
	s := newTestServer(t)

	_, created := s.do(t, http.MethodPost, "/orders",
		`{"customerId":"CUST1","items":[{"productId":10,"quantity":2},{"productId":11,"quantity":1}]}`)
	order := decodeOrder(t, created.Data)
	id := int64(order["id"].(float64))
	number := order["orderNumber"].(string)

	rec, env := s.do(t, http.MethodGet, "/orders/"+jsonNumber(id), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order fetched successfully", env.Message)
	assert.JSONEq(t, string(created.Data), string(env.Data))

	rec, env = s.do(t, http.MethodGet, "/orders/orderNumber/"+number, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order fetched by order number successfully", env.Message)
	assert.JSONEq(t, string(created.Data), string(env.Data))
}

func TestGetOrder_NotFoundAndBadID(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/orders/12345", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error)
	assert.Equal(t, "/orders/12345", env.Path)

	rec, env = s.do(t, http.MethodGet, "/orders/orderNumber/ORD-ffffffff", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, env.Error)

	rec, env = s.do(t, http.MethodGet, "/orders/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidParameter, env.Error)
}

func TestListByStatus(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/orders", `{"customerId":"A","items":[{"productId":10,"quantity":1}]}`)
	s.do(t, http.MethodPost, "/orders", `{"customerId":"B","items":[{"productId":11,"quantity":1}]}`)

	rec, env := s.do(t, http.MethodGet, "/orders/status/CREATED", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Orders fetched by status successfully", env.Message)
	var orders []OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 2)
	totals := map[string]string{}
	for _, o := range orders {
		totals[o.CustomerID] = o.TotalAmount.Decimal().StringFixed(2)
		require.Len(t, o.Items, 1)
		assert.True(t, o.Items[0].TotalPrice.Decimal().Equal(o.TotalAmount.Decimal()))
	}
	assert.Equal(t, map[string]string{"A": "19.99", "B": "5.25"}, totals)

	rec, env = s.do(t, http.MethodGet, "/orders/status/shipped", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	rec, env = s.do(t, http.MethodGet, "/orders/status/LOST", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidationFailed, env.Error)
	assert.Contains(t, env.FieldErrors, "status")
}

func TestListSummaries(t *testing.T) {
	s := newTestServer(t)
	for _, c := range []string{"A", "B", "C"} {
		rec, _ := s.do(t, http.MethodPost, "/orders", `{"customerId":"`+c+`","items":[{"productId":10,"quantity":1}]}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := s.do(t, http.MethodGet, "/orders/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order summaries fetched successfully", env.Message)

	var summaries []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &summaries))
	require.Len(t, summaries, 3)
	assert.Equal(t, "C", summaries[0]["customerId"])
	assert.Equal(t, "A", summaries[2]["customerId"])
	for _, sm := range summaries {
		assert.NotContains(t, sm, "items")
		assert.NotContains(t, sm, "audit")
		assert.Len(t, sm, 5)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/orders/summary", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UP", env.Message)

	h := NewHandler(app.NewOrderService(stubCatalog{}, memory.NewStore()), failingPinger{})
	rec = httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), CodeServiceUnavailable))
}

func TestUnknownRouteAndMethodUseErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/nowhere", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, CodeNotFound, env.Error)
	assert.Equal(t, "/nowhere", env.Path)

	rec, env = s.do(t, http.MethodDelete, "/orders/summary", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, CodeMethodNotAllowed, env.Error)
	assert.Equal(t, http.StatusMethodNotAllowed, env.Status)
}

func TestAmount_JSONRoundTrip(t *testing.T) {
	raw, err := json.Marshal(Amount(decimal.RequireFromString("10.5")))
	require.NoError(t, err)
	assert.Equal(t, "10.50", string(raw))

	var back Amount
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, decimal.RequireFromString("10.5").Equal(back.Decimal()))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.StoreUnavailable("save", errors.New("down")), http.StatusServiceUnavailable, CodeServiceUnavailable},
		{domain.CatalogUnavailable(1, nil), http.StatusBadGateway, CodeBadGateway},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
		{&domain.Error{Kind: domain.KindInternal, Code: domain.CodeIncompleteEnrich, Message: "secret detail"}, http.StatusInternalServerError, CodeInternal},
	}
	for _, c := range cases {
		got := classify(c.err)
		assert.Equal(t, c.status, got.status, c.err.Error())
		assert.Equal(t, c.code, got.code)
		if c.status == http.StatusInternalServerError {
			assert.Equal(t, msgInternal, got.message)
		}
	}
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
