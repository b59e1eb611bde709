package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	invmemory "github.com/dealgrid/ordercore/internal/domains/inventory/adapters/memory"
	invapp "github.com/dealgrid/ordercore/internal/domains/inventory/application"
	ordersmemory "github.com/dealgrid/ordercore/internal/domains/orders/adapters/memory"
	ordersapp "github.com/dealgrid/ordercore/internal/domains/orders/application"
	apperrors "github.com/dealgrid/ordercore/internal/shared/errors"
)

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := invmemory.NewStore()
	inventory := invapp.NewService(store, store)
	orders := ordersapp.NewService(
		ordersmemory.NewRepository(),
		ordersmemory.NewIdempotencyGuard(0),
		store,
		nil,
		ordersmemory.TxRunner{},
	)
	router := gin.New()
	NewHandler(orders, inventory).Register(router)
	return &testServer{router: router}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedItem(t *testing.T, available int) int64 {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/items", gin.H{
		"store_id":    1,
		"name":        "espresso beans",
		"price_cents": 1200,
		"available":   available,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var item struct {
		ItemID int64 `json:"item_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	return item.ItemID
}

func (s *testServer) createOrder(t *testing.T, itemID int64, quantity int, key string) orderResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/orders", gin.H{
		"order_type":  "pickup",
		"store_id":    1,
		"customer_id": 42,
		"lines":       []gin.H{{"item_id": itemID, "quantity": quantity}},
	}, map[string]string{HeaderChannel: "bot", HeaderIdempotencyKey: key})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	return order
}

func TestCreateOrder_Created(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)

	order := srv.createOrder(t, itemID, 3, "key-1")
	require.Equal(t, "pending", order.Status)
	require.Equal(t, int64(3600), order.TotalCents)
	require.Len(t, order.Lines, 1)
	require.Equal(t, int64(1200), order.Lines[0].PriceCents)
}

func TestCreateOrder_IdempotentRetryReturnsSameOrder(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)

	first := srv.createOrder(t, itemID, 3, "key-1")
	second := srv.createOrder(t, itemID, 3, "key-1")
	require.Equal(t, first.OrderID, second.OrderID)
}

func TestCreateOrder_ChannelFromBodyFallback(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)

	rec := srv.do(t, http.MethodPost, "/v1/orders", gin.H{
		"channel":         "web",
		"idempotency_key": "key-1",
		"order_type":      "pickup",
		"store_id":        1,
		"customer_id":     42,
		"lines":           []gin.H{{"item_id": itemID, "quantity": 1}},
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 2)

	rec := srv.do(t, http.MethodPost, "/v1/orders", gin.H{
		"order_type":  "pickup",
		"store_id":    1,
		"customer_id": 42,
		"lines":       []gin.H{{"item_id": itemID, "quantity": 5}},
	}, map[string]string{HeaderChannel: "bot", HeaderIdempotencyKey: "key-1"})

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, apperrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem apperrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apperrors.TypeInsufficientInventory, problem.Type)
	require.EqualValues(t, itemID, problem.Extensions["item_id"])
	require.EqualValues(t, 5, problem.Extensions["requested"])
	require.EqualValues(t, 2, problem.Extensions["available"])
}

func TestCreateOrder_MissingIdempotencyKey(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)

	rec := srv.do(t, http.MethodPost, "/v1/orders", gin.H{
		"order_type":  "pickup",
		"store_id":    1,
		"customer_id": 42,
		"lines":       []gin.H{{"item_id": itemID, "quantity": 1}},
	}, map[string]string{HeaderChannel: "bot"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)
	order := srv.createOrder(t, itemID, 1, "key-1")

	rec := srv.do(t, http.MethodPost, "/v1/orders/"+order.OrderID+"/status", gin.H{
		"target_status": "completed",
		"actor_role":    "customer",
	}, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem apperrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apperrors.TypeInvalidTransition, problem.Type)
}

func TestUpdateStatus_Applied(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)
	order := srv.createOrder(t, itemID, 1, "key-1")

	rec := srv.do(t, http.MethodPost, "/v1/orders/"+order.OrderID+"/status", gin.H{
		"target_status": "preparing",
		"actor_role":    "merchant",
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var updated orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "preparing", updated.Status)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/v1/orders/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var problem apperrors.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, apperrors.TypeNotFound, problem.Type)
}

func TestApplyPayment_ConfirmsDeliveryOrder(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)

	rec := srv.do(t, http.MethodPost, "/v1/orders", gin.H{
		"order_type":  "delivery",
		"store_id":    1,
		"customer_id": 42,
		"lines":       []gin.H{{"item_id": itemID, "quantity": 1}},
		"delivery_info": gin.H{
			"address":   "12 Main St",
			"fee_cents": 300,
		},
	}, map[string]string{HeaderChannel: "bot", HeaderIdempotencyKey: "key-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, "awaiting_payment", order.PaymentStatus)
	require.Equal(t, int64(1500), order.TotalCents)

	rec = srv.do(t, http.MethodPost, "/v1/orders/"+order.OrderID+"/payment", gin.H{
		"payment_status": "confirmed",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var paid orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &paid))
	require.Equal(t, "confirmed", paid.PaymentStatus)
}

func TestCustomerOrders_ListsAndValidates(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 10)
	srv.createOrder(t, itemID, 1, "key-1")
	srv.createOrder(t, itemID, 1, "key-2")

	rec := srv.do(t, http.MethodGet, "/v1/orders?customer_id=42", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Orders []orderResponse `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Orders, 2)

	rec = srv.do(t, http.MethodGet, "/v1/orders?customer_id=abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRestockAndStoreItems(t *testing.T) {
	srv := newTestServer(t)
	itemID := srv.seedItem(t, 2)

	rec := srv.do(t, http.MethodPost, fmt.Sprintf("/v1/items/%d/restock", itemID), gin.H{"quantity": 5}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var item itemResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	require.Equal(t, 7, item.Available)

	rec = srv.do(t, http.MethodGet, "/v1/stores/1/items", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Items []itemResponse `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Items, 1)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
