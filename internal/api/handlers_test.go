package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"giftmarket/internal/account"
	"giftmarket/internal/engine"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
	"giftmarket/internal/rates"
)

type apiTestEnv struct {
	router     *gin.Engine
	rateServer *httptest.Server
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()

	accountStore := account.NewMemoryStore()
	orderStore := order.NewMemoryStore()
	notificationStore := notification.NewMemoryStore()
	log := zap.NewNop()
	sink := notification.NewSink(notificationStore, log)

	accounts := account.NewService(accountStore, sink, "root-admin")

	eng := engine.New(engine.DefaultConfig(), accountStore, orderStore, sink, log)
	t.Cleanup(eng.Close)

	rateServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"the-open-network":{"usd":6.0}}`))
	}))
	t.Cleanup(rateServer.Close)

	handler := NewHandler(accounts, eng, orderStore, notificationStore,
		rates.NewWithBaseURL(rateServer.URL, log), log)

	return &apiTestEnv{
		router:     NewRouter(handler, log),
		rateServer: rateServer,
	}
}

func (env *apiTestEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func (env *apiTestEnv) seedTrader(t *testing.T, id string) {
	t.Helper()

	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": id, "display_name": id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/v1/accounts/"+id+"/requisites", gin.H{"ton_wallet": "UQ" + id})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (env *apiTestEnv) createOrder(t *testing.T, sellerID string) orderResponse {
	t.Helper()
	w := env.do(t, http.MethodPost, "/v1/orders", gin.H{
		"seller_id": sellerID,
		"category":  "nft_gift",
		"channel":   "ton",
		"amount":    "10",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[orderResponse](t, w)
}

func TestHealthEndpoint(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestTonRateEndpoint(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/rates/ton", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[tonPriceResponse](t, w)
	assert.Equal(t, "6", resp.PriceUSD)
	assert.False(t, resp.Fallback)
}

func TestAccountLifecycle(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "acc-1", "display_name": "Alice"})
	require.Equal(t, http.StatusOK, w.Code)
	created := decode[accountResponse](t, w)
	assert.Equal(t, "trader", created.Role)

	w = env.do(t, http.MethodPut, "/v1/accounts/acc-1/requisites", gin.H{
		"card_number": "4000 0000 0000 0002",
		"card_bank":   "Example Bank",
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[accountResponse](t, w)
	assert.Equal(t, "Example Bank", updated.Requisites.CardBank)

	w = env.do(t, http.MethodGet, "/v1/accounts/acc-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/accounts/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeNotFound), errResp.Code)

	// Missing id in the body is a client error.
	w = env.do(t, http.MethodPost, "/v1/accounts", gin.H{"display_name": "NoID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderMissingRequisites(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "seller"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/v1/orders", gin.H{
		"seller_id": "seller",
		"category":  "nft_gift",
		"channel":   "ton",
		"amount":    "10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeMissingRequisites), errResp.Code)
}

func TestCreateOrderValidationErrors(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")

	cases := []struct {
		name string
		body gin.H
		code string
	}{
		{"bad category", gin.H{"seller_id": "seller", "category": "sticker", "channel": "ton", "amount": "10"}, string(ErrorCodeInvalidArgument)},
		{"bad channel", gin.H{"seller_id": "seller", "category": "nft_gift", "channel": "paypal", "amount": "10"}, string(ErrorCodeInvalidArgument)},
		{"bad amount", gin.H{"seller_id": "seller", "category": "nft_gift", "channel": "ton", "amount": "ten"}, string(ErrorCodeInvalidArgument)},
		{"zero amount", gin.H{"seller_id": "seller", "category": "nft_gift", "channel": "ton", "amount": "0"}, string(ErrorCodeInvalidArgument)},
		{"wrong currency", gin.H{"seller_id": "seller", "category": "nft_gift", "channel": "ton", "amount": "10", "currency": "RUB"}, string(ErrorCodeInvalidArgument)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/orders", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			errResp := decode[ErrorResponse](t, w)
			assert.Equal(t, tc.code, errResp.Code)
		})
	}
}

func TestOrderLookupByCodeAndID(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")

	created := env.createOrder(t, "seller")

	w := env.do(t, http.MethodGet, "/v1/orders/"+created.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	byCode := decode[orderResponse](t, w)
	assert.Equal(t, created.ID, byCode.ID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/v1/orders/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/orders/ZZZZZZZZ", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderTradeFlow(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")
	env.seedTrader(t, "buyer")

	created := env.createOrder(t, "seller")

	// Buyer joins by the shared code.
	w := env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "buyer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[orderResponse](t, w)
	assert.Equal(t, "buyer", joined.BuyerID)

	// Second join conflicts.
	env.seedTrader(t, "latecomer")
	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "latecomer"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeAlreadyJoined), errResp.Code)

	// Seller cannot confirm payment.
	w = env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "paid", "actor_id": "seller"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Buyer confirms, seller completes.
	w = env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "paid", "actor_id": "buyer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "completed", "actor_id": "seller"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Completing again conflicts.
	w = env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "completed", "actor_id": "seller"})
	assert.Equal(t, http.StatusConflict, w.Code)
	errResp = decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeInvalidTransition), errResp.Code)

	// Statistics accrued exactly once.
	w = env.do(t, http.MethodGet, "/v1/accounts/seller", nil)
	require.Equal(t, http.StatusOK, w.Code)
	seller := decode[accountResponse](t, w)
	assert.Equal(t, int64(1), seller.Stats.CompletedDeals)
	assert.Equal(t, "10", seller.Stats.Volumes["TON"])

	// Both parties see the history.
	w = env.do(t, http.MethodGet, "/v1/accounts/buyer/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]orderResponse](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "completed", history[0].Status)
}

func TestOrderViewIncludesPartyNames(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "s1", "display_name": "Seller One"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPut, "/v1/accounts/s1/requisites", gin.H{"ton_wallet": "UQs1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "b1", "display_name": "Buyer One"})
	require.Equal(t, http.StatusOK, w.Code)

	created := env.createOrder(t, "s1")
	assert.Equal(t, "Seller One", created.SellerName)
	assert.Empty(t, created.BuyerName)

	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "b1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	joined := decode[orderResponse](t, w)
	assert.Equal(t, "Seller One", joined.SellerName)
	assert.Equal(t, "Buyer One", joined.BuyerName)

	// The read view carries both ids and names.
	w = env.do(t, http.MethodGet, "/v1/orders/"+created.Code, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode[orderResponse](t, w)
	assert.Equal(t, "s1", fetched.SellerID)
	assert.Equal(t, "Seller One", fetched.SellerName)
	assert.Equal(t, "b1", fetched.BuyerID)
	assert.Equal(t, "Buyer One", fetched.BuyerName)

	// History pages are joined the same way.
	w = env.do(t, http.MethodGet, "/v1/accounts/b1/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]orderResponse](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "Seller One", history[0].SellerName)
	assert.Equal(t, "Buyer One", history[0].BuyerName)
}

func TestSelfJoinRejected(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")

	created := env.createOrder(t, "seller")

	w := env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "seller"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeSelfTradeForbidden), errResp.Code)
}

func TestStatusEndpointRejectsActiveTarget(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")
	created := env.createOrder(t, "seller")

	w := env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "active", "actor_id": "seller"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/v1/orders/"+created.Code+"/status", gin.H{"status": "shipped", "actor_id": "seller"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFastTrackEndpoint(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")
	env.seedTrader(t, "buyer")

	// Bootstrap admin promotes an operator.
	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "root-admin", "display_name": "Root"})
	require.Equal(t, http.StatusOK, w.Code)
	env.seedTrader(t, "op")
	w = env.do(t, http.MethodPost, "/v1/admin/operators", gin.H{"admin_id": "root-admin", "target_id": "op"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := env.createOrder(t, "seller")
	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "buyer"})
	require.Equal(t, http.StatusOK, w.Code)

	// A trader cannot fast-track.
	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/fast-track", gin.H{"operator_id": "buyer", "mode": "fast-complete"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// An unknown mode is a client error.
	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/fast-track", gin.H{"operator_id": "op", "mode": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/fast-track", gin.H{"operator_id": "op", "mode": "fast-complete"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	done := decode[orderResponse](t, w)
	assert.Equal(t, "completed", done.Status)
	assert.True(t, done.FastTracked)
	assert.Equal(t, "op", done.FastTrackedBy)
}

func TestAdminEndpoints(t *testing.T) {
	env := newAPITestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/accounts", gin.H{"id": "root-admin", "display_name": "Root"})
	require.Equal(t, http.StatusOK, w.Code)
	admin := decode[accountResponse](t, w)
	assert.Equal(t, "administrator", admin.Role)

	env.seedTrader(t, "acc-1")
	env.seedTrader(t, "acc-2")

	// A trader cannot promote.
	w = env.do(t, http.MethodPost, "/v1/admin/operators", gin.H{"admin_id": "acc-1", "target_id": "acc-2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	errResp := decode[ErrorResponse](t, w)
	assert.Equal(t, string(ErrorCodeForbidden), errResp.Code)

	w = env.do(t, http.MethodPost, "/v1/admin/operators", gin.H{"admin_id": "root-admin", "target_id": "acc-1"})
	require.Equal(t, http.StatusOK, w.Code)
	promoted := decode[accountResponse](t, w)
	assert.Equal(t, "operator", promoted.Role)

	// Demote needs the admin_id query parameter.
	w = env.do(t, http.MethodDelete, "/v1/admin/operators/acc-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/admin/operators/acc-1?admin_id=root-admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	demoted := decode[accountResponse](t, w)
	assert.Equal(t, "trader", demoted.Role)

	w = env.do(t, http.MethodPost, "/v1/admin/administrators", gin.H{"admin_id": "root-admin", "target_id": "acc-2"})
	require.Equal(t, http.StatusOK, w.Code)
	elevated := decode[accountResponse](t, w)
	assert.Equal(t, "administrator", elevated.Role)
}

func TestNotificationEndpoints(t *testing.T) {
	env := newAPITestEnv(t)
	env.seedTrader(t, "seller")
	env.seedTrader(t, "buyer")

	created := env.createOrder(t, "seller")
	w := env.do(t, http.MethodPost, "/v1/orders/"+created.Code+"/join", gin.H{"buyer_id": "buyer"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/accounts/seller/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]notificationResponse](t, w)
	require.Len(t, list, 2) // order created + buyer joined
	assert.Equal(t, "buyer_joined", list[0].Category)

	readID := list[0].ID
	w = env.do(t, http.MethodPut, fmt.Sprintf("/v1/notifications/%d/read", readID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	read := decode[notificationResponse](t, w)
	assert.True(t, read.Read)

	w = env.do(t, http.MethodGet, "/v1/accounts/seller/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	unread := decode[[]notificationResponse](t, w)
	require.Len(t, unread, 1)

	w = env.do(t, http.MethodGet, "/v1/accounts/seller/notifications?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	limited := decode[[]notificationResponse](t, w)
	assert.Len(t, limited, 1)

	w = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/notifications/%d", readID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, fmt.Sprintf("/v1/notifications/%d", readID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/accounts/seller/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	purged := decode[purgeResponse](t, w)
	assert.Equal(t, 1, purged.Deleted)

	w = env.do(t, http.MethodGet, "/v1/accounts/seller/notifications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[[]notificationResponse](t, w)
	assert.Empty(t, empty)
}

func TestAccountScopedEndpointsRejectUnknownAccount(t *testing.T) {
	env := newAPITestEnv(t)

	// Orders, notifications and purge share one existence policy.
	for _, req := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/accounts/ghost/orders"},
		{http.MethodGet, "/v1/accounts/ghost/notifications"},
		{http.MethodDelete, "/v1/accounts/ghost/notifications"},
	} {
		w := env.do(t, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", req.method, req.path)
		errResp := decode[ErrorResponse](t, w)
		assert.Equal(t, string(ErrorCodeNotFound), errResp.Code)
	}
}
