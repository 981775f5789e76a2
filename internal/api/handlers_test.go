package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-paper-trading/internal/trader"
	"crypto-paper-trading/pkg/models"
)

type stubExecutor struct {
	result *trader.TradeResult
	info   *trader.TradeInfo
	err    error
}

func (s *stubExecutor) Execute(context.Context, trader.TradeRequest) (*trader.TradeResult, error) {
	return s.result, s.err
}

func (s *stubExecutor) Info(context.Context, string, string) (*trader.TradeInfo, error) {
	return s.info, s.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestRouter(executor TradeExecutor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	handler := NewHandler(executor, nil, nil, nil, nil, logger)
	router := gin.New()
	router.POST("/api/trade", handler.Trade)
	router.GET("/api/trade_info", handler.TradeInfo)
	return router
}

func postTrade(t *testing.T, router *gin.Engine, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trade", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return w, payload
}

func TestTradeBuyResponse(t *testing.T) {
	executor := &stubExecutor{result: &trader.TradeResult{
		Action:     models.ActionBuy,
		Symbol:     "BTC",
		Quantity:   dec("1"),
		Price:      dec("50000"),
		Fee:        dec("50"),
		NewBalance: dec("4949950"),
		TotalCost:  dec("50050"),
	}}
	router := newTestRouter(executor)

	w, payload := postTrade(t, router,
		`{"user_id":"u1","coin_id":"BTC","action":"buy","quantity":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", payload["status"])
	assert.Equal(t, "buy", payload["action"])
	assert.Equal(t, 4949950.0, payload["new_balance"])
	assert.Equal(t, 50.0, payload["transaction_fee"])
	assert.Equal(t, 50050.0, payload["total_cost"])
	assert.NotContains(t, payload, "net_income")
}

func TestTradeSellResponse(t *testing.T) {
	executor := &stubExecutor{result: &trader.TradeResult{
		Action:      models.ActionSell,
		Symbol:      "BTC",
		Quantity:    dec("1"),
		Price:       dec("51000"),
		Fee:         dec("51"),
		NewBalance:  dec("5000899"),
		GrossIncome: dec("51000"),
		NetIncome:   dec("50949"),
	}}
	router := newTestRouter(executor)

	w, payload := postTrade(t, router,
		`{"user_id":"u1","coin_id":"BTC","action":"sell","quantity":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50949.0, payload["net_income"])
	assert.Equal(t, 51000.0, payload["gross_income"])
	assert.NotContains(t, payload, "total_cost")
}

func TestTradeErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{fmt.Errorf("%w: need more", trader.ErrInsufficientBalance), http.StatusBadRequest, "insufficient_balance"},
		{fmt.Errorf("%w: none held", trader.ErrInsufficientHoldings), http.StatusBadRequest, "insufficient_holdings"},
		{fmt.Errorf("%w: XYZ", trader.ErrCoinNotFound), http.StatusBadRequest, "coin_not_found"},
		{fmt.Errorf("%w: hold", trader.ErrInvalidAction), http.StatusBadRequest, "invalid_action"},
		{fmt.Errorf("%w: db down", trader.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			router := newTestRouter(&stubExecutor{err: tt.err})

			w, payload := postTrade(t, router,
				`{"user_id":"u1","coin_id":"BTC","action":"buy","quantity":1}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "fail", payload["status"])
			assert.Equal(t, tt.wantKind, payload["kind"])
			assert.NotEmpty(t, payload["reason"])
		})
	}
}

func TestTradeMalformedBody(t *testing.T) {
	router := newTestRouter(&stubExecutor{})

	w, payload := postTrade(t, router, `{"quantity": "not a number"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", payload["kind"])
}

func TestTradeInfoResponse(t *testing.T) {
	price := dec("50000")
	router := newTestRouter(&stubExecutor{info: &trader.TradeInfo{
		Balance: dec("5000000"),
		Price:   &price,
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trade_info?user_id=u1&coin_id=BTC", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 5000000.0, payload["balance"])
	assert.Equal(t, 50000.0, payload["coin_price"])
}

func TestTradeInfoUnknownCoin(t *testing.T) {
	router := newTestRouter(&stubExecutor{info: &trader.TradeInfo{
		Balance: dec("5000000"),
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trade_info?user_id=u1&coin_id=NOPE", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Nil(t, payload["coin_price"])
}
