package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"crypto-paper-trading/internal/trader"
	"crypto-paper-trading/pkg/models"
	"crypto-paper-trading/pkg/utils"
)

// TradeExecutor is the trade engine surface the API depends on.
type TradeExecutor interface {
	Execute(ctx context.Context, req trader.TradeRequest) (*trader.TradeResult, error)
	Info(ctx context.Context, userID, symbol string) (*trader.TradeInfo, error)
}

// PortfolioReader produces the valuation response.
type PortfolioReader interface {
	Portfolio(ctx context.Context, userID string) (*models.Portfolio, error)
}

// AccountResetter wipes a paper-trading account back to its default state.
type AccountResetter interface {
	ResetAccount(ctx context.Context, userID string) error
}

// PriceReader serves coin and price lookups.
type PriceReader interface {
	Coins(ctx context.Context) ([]models.Coin, error)
	CurrentPrices(ctx context.Context) ([]models.PricePoint, error)
	History(ctx context.Context, symbol string, since time.Time) ([]models.HistoryEntry, error)
}

// FollowStore manages a user's tracked coins.
type FollowStore interface {
	Add(ctx context.Context, userID, symbol string) error
	Remove(ctx context.Context, userID, symbol string) error
	Tracked(ctx context.Context, userID string) ([]models.TrackedCoin, error)
	Untracked(ctx context.Context, userID string) ([]models.Coin, error)
}

type Handler struct {
	trades    TradeExecutor
	portfolio PortfolioReader
	accounts  AccountResetter
	prices    PriceReader
	follows   FollowStore
	logger    *logrus.Logger
}

func NewHandler(trades TradeExecutor, portfolio PortfolioReader, accounts AccountResetter,
	prices PriceReader, follows FollowStore, logger *logrus.Logger) *Handler {
	return &Handler{
		trades:    trades,
		portfolio: portfolio,
		accounts:  accounts,
		prices:    prices,
		follows:   follows,
		logger:    logger,
	}
}

type tradeRequest struct {
	UserID   string          `json:"user_id"`
	CoinID   string          `json:"coin_id"`
	Action   string          `json:"action"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// Trade executes a buy or sell. Money fields in the response are rounded to
// two decimal places; internal accounting keeps full precision.
func (h *Handler) Trade(c *gin.Context) {
	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "fail",
			"kind":   "invalid_input",
			"reason": "malformed request body",
		})
		return
	}

	result, err := h.trades.Execute(c.Request.Context(), trader.TradeRequest{
		UserID:   req.UserID,
		Symbol:   req.CoinID,
		Action:   req.Action,
		Quantity: req.Quantity,
		Total:    req.Total,
	})
	if err != nil {
		h.tradeError(c, err)
		return
	}

	response := gin.H{
		"status":          "success",
		"action":          result.Action,
		"new_balance":     utils.RoundMoney(result.NewBalance),
		"transaction_fee": utils.RoundMoney(result.Fee),
	}
	switch result.Action {
	case models.ActionBuy:
		response["total_cost"] = utils.RoundMoney(result.TotalCost)
	case models.ActionSell:
		response["net_income"] = utils.RoundMoney(result.NetIncome)
		response["gross_income"] = utils.RoundMoney(result.GrossIncome)
	}

	c.JSON(http.StatusOK, response)
}

// TradeInfo returns the user's balance plus the coin's current price, the
// pre-trade lookup the trade form needs.
func (h *Handler) TradeInfo(c *gin.Context) {
	userID := c.Query("user_id")
	symbol := c.Query("coin_id")

	info, err := h.trades.Info(c.Request.Context(), userID, symbol)
	if err != nil {
		h.tradeError(c, err)
		return
	}

	response := gin.H{"balance": utils.RoundMoney(info.Balance)}
	if info.Price != nil {
		response["coin_price"] = utils.RoundMoney(*info.Price)
	} else {
		response["coin_price"] = nil
	}

	c.JSON(http.StatusOK, response)
}

// Profit returns the user's portfolio valuation.
func (h *Handler) Profit(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	portfolio, err := h.portfolio.Portfolio(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, err, "Failed to compute portfolio")
		return
	}

	positions := make([]gin.H, 0, len(portfolio.Positions))
	for _, pos := range portfolio.Positions {
		positions = append(positions, gin.H{
			"coin_id":          pos.Symbol,
			"quantity":         utils.RoundQuantity(pos.Quantity),
			"average_buy_cost": utils.RoundMoney(pos.AverageBuyCost),
			"current_price":    utils.RoundMoney(pos.CurrentPrice),
			"net_profit":       utils.RoundMoney(pos.NetProfit),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":   utils.RoundMoney(portfolio.Balance),
		"portfolio": positions,
		"summary": gin.H{
			"total_market_value": utils.RoundMoney(portfolio.Summary.TotalMarketValue),
			"total_buy_cost":     utils.RoundMoney(portfolio.Summary.TotalBuyCost),
			"total_net_profit":   utils.RoundMoney(portfolio.Summary.TotalNetProfit),
			"total_return_rate":  utils.RoundMoney(portfolio.Summary.TotalReturnRate),
		},
	})
}

type resetRequest struct {
	UserID string `json:"user_id"`
}

// Reset wipes the journal and restores the default balance. Safe to repeat.
func (h *Handler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if err := h.accounts.ResetAccount(c.Request.Context(), req.UserID); err != nil {
		h.serverError(c, err, "Failed to reset account")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "paper trading account has been reset"})
}

// CoinList returns the supported coins for the trade form dropdown.
func (h *Handler) CoinList(c *gin.Context) {
	coins, err := h.prices.Coins(c.Request.Context())
	if err != nil {
		h.serverError(c, err, "Failed to list coins")
		return
	}

	out := make([]gin.H, 0, len(coins))
	for _, coin := range coins {
		out = append(out, gin.H{"coin_id": coin.Symbol, "coin_name": coin.Name})
	}
	c.JSON(http.StatusOK, out)
}

// CurrentPrices returns every coin's latest price.
func (h *Handler) CurrentPrices(c *gin.Context) {
	prices, err := h.prices.CurrentPrices(c.Request.Context())
	if err != nil {
		h.serverError(c, err, "Failed to read current prices")
		return
	}

	out := make([]gin.H, 0, len(prices))
	for _, point := range prices {
		out = append(out, gin.H{
			"coin_id": point.Symbol,
			"price":   utils.RoundMoney(point.Price),
		})
	}
	c.JSON(http.StatusOK, out)
}

var historyWindows = map[string]int{
	"1d": 1,
	"3d": 3,
	"7d": 7,
}

// PriceHistory returns the ascending price series for one coin over a fixed
// chart window.
func (h *Handler) PriceHistory(c *gin.Context) {
	symbol := c.Param("coin_id")
	chartType := c.DefaultQuery("type", "1d")

	days, ok := historyWindows[chartType]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported chart type"})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	entries, err := h.prices.History(c.Request.Context(), symbol, since)
	if err != nil {
		h.serverError(c, err, "Failed to read price history")
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"label": entry.RecordedAt,
			"price": utils.RoundMoney(entry.Price),
		})
	}
	c.JSON(http.StatusOK, out)
}

// FollowList returns the user's tracked coins plus those still available to
// track.
func (h *Handler) FollowList(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	tracked, err := h.follows.Tracked(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, err, "Failed to list tracked coins")
		return
	}
	untracked, err := h.follows.Untracked(c.Request.Context(), userID)
	if err != nil {
		h.serverError(c, err, "Failed to list untracked coins")
		return
	}

	trackedOut := make([]gin.H, 0, len(tracked))
	for _, coin := range tracked {
		trackedOut = append(trackedOut, gin.H{
			"coin_id":   coin.Symbol,
			"coin_name": coin.Name,
			"price":     utils.RoundMoney(coin.Price),
		})
	}
	untrackedOut := make([]gin.H, 0, len(untracked))
	for _, coin := range untracked {
		untrackedOut = append(untrackedOut, gin.H{
			"coin_id":   coin.Symbol,
			"coin_name": coin.Name,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"tracked":   trackedOut,
		"untracked": untrackedOut,
	})
}

type followRequest struct {
	UserID string `json:"user_id"`
	CoinID string `json:"coin_id"`
	Action string `json:"action"`
}

// UpdateFollowList adds or removes one tracking pair.
func (h *Handler) UpdateFollowList(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.CoinID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and coin_id are required"})
		return
	}

	var err error
	switch req.Action {
	case "add":
		err = h.follows.Add(c.Request.Context(), req.UserID, req.CoinID)
	case "remove":
		err = h.follows.Remove(c.Request.Context(), req.UserID, req.CoinID)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be add or remove"})
		return
	}
	if err != nil {
		h.serverError(c, err, "Failed to update follow list")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (h *Handler) tradeError(c *gin.Context, err error) {
	kind := trader.Kind(err)
	status := http.StatusBadRequest
	if errors.Is(err, trader.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		h.logger.WithError(err).Error("Trade rejected by storage failure")
	} else {
		h.logger.WithError(err).WithField("kind", kind).Info("Trade rejected")
	}

	c.JSON(status, gin.H{
		"status": "fail",
		"kind":   kind,
		"reason": err.Error(),
	})
}

func (h *Handler) serverError(c *gin.Context, err error, msg string) {
	h.logger.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
