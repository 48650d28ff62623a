package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"giftmarket/internal/account"
	"giftmarket/internal/engine"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
	"giftmarket/internal/rates"
)

// Handler holds the services the HTTP layer fronts
type Handler struct {
	accounts      *account.Service
	engine        *engine.Engine
	orders        order.Store
	notifications notification.Store
	rates         *rates.Client
	log           *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(
	accounts *account.Service,
	eng *engine.Engine,
	orders order.Store,
	notifications notification.Store,
	ratesClient *rates.Client,
	log *zap.Logger,
) *Handler {
	return &Handler{
		accounts:      accounts,
		engine:        eng,
		orders:        orders,
		notifications: notifications,
		rates:         ratesClient,
		log:           log,
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) tonPrice(c *gin.Context) {
	quote := h.rates.TonPrice(c.Request.Context())
	c.JSON(http.StatusOK, toTonPriceResponse(quote))
}

func (h *Handler) upsertAccount(c *gin.Context) {
	var req upsertAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	a, err := h.accounts.Upsert(c.Request.Context(), req.ID, req.DisplayName)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}

func (h *Handler) getAccount(c *gin.Context) {
	a, err := h.accounts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}

func (h *Handler) updateRequisites(c *gin.Context) {
	var req updateRequisitesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	a, err := h.accounts.UpdateRequisites(c.Request.Context(), c.Param("id"), account.RequisitesUpdate{
		TonWallet:  req.TonWallet,
		CardNumber: req.CardNumber,
		CardBank:   req.CardBank,
		Telegram:   req.Telegram,
	})
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}

func (h *Handler) listAccountOrders(c *gin.Context) {
	// The account must exist; an empty history is a 200, a missing
	// account a 404.
	accountID := c.Param("id")
	if _, err := h.accounts.Get(c.Request.Context(), accountID); err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	orders, err := h.orders.ListByAccount(c.Request.Context(), accountID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, h.orderViews(c.Request.Context(), orders))
}

func (h *Handler) listAccountNotifications(c *gin.Context) {
	recipientID := c.Param("id")
	if _, err := h.accounts.Get(c.Request.Context(), recipientID); err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			status, body := invalidArgument("limit must be a non-negative integer")
			c.JSON(status, body)
			return
		}
		limit = n
	}

	list, err := h.notifications.ListByRecipient(c.Request.Context(), recipientID, unreadOnly, limit)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponses(list))
}

func (h *Handler) purgeNotifications(c *gin.Context) {
	recipientID := c.Param("id")
	if _, err := h.accounts.Get(c.Request.Context(), recipientID); err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	deleted, err := h.notifications.PurgeByRecipient(c.Request.Context(), recipientID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, purgeResponse{Deleted: deleted})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	category, err := order.ParseCategory(req.Category)
	if err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}
	channel, err := order.ParseChannel(req.Channel)
	if err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		status, body := invalidArgument("amount must be a decimal string")
		c.JSON(status, body)
		return
	}

	o, err := h.engine.CreateOrder(c.Request.Context(), engine.CreateParams{
		SellerID:    req.SellerID,
		Category:    category,
		Channel:     channel,
		Amount:      amount,
		Currency:    req.Currency,
		Description: req.Description,
	})
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusCreated, h.orderView(c.Request.Context(), o))
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.resolveOrder(c)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, h.orderView(c.Request.Context(), o))
}

func (h *Handler) joinOrder(c *gin.Context) {
	var req joinOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	o, err := h.resolveOrder(c)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	joined, err := h.engine.JoinOrder(c.Request.Context(), o.ID, req.BuyerID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, h.orderView(c.Request.Context(), joined))
}

func (h *Handler) setOrderStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}
	if target == order.StatusActive {
		status, body := invalidArgument("orders cannot be moved back to active")
		c.JSON(status, body)
		return
	}

	o, err := h.resolveOrder(c)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	updated, err := h.engine.SetStatus(c.Request.Context(), o.ID, target, req.ActorID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, h.orderView(c.Request.Context(), updated))
}

func (h *Handler) fastTrackOrder(c *gin.Context) {
	var req fastTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	o, err := h.resolveOrder(c)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}

	updated, err := h.engine.FastTrack(c.Request.Context(), o.ID, req.OperatorID, mode)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, h.orderView(c.Request.Context(), updated))
}

// orderView renders an order with the party display names joined in.
// Name resolution is best-effort: a missing profile leaves the name
// empty rather than failing the read.
func (h *Handler) orderView(ctx context.Context, o *order.Order) orderResponse {
	resp := toOrderResponse(o)
	if seller, err := h.accounts.Get(ctx, o.SellerID); err == nil {
		resp.SellerName = seller.DisplayName
	}
	if o.BuyerID != "" {
		if buyer, err := h.accounts.Get(ctx, o.BuyerID); err == nil {
			resp.BuyerName = buyer.DisplayName
		}
	}
	return resp
}

// orderViews renders a history page, resolving each party name once
func (h *Handler) orderViews(ctx context.Context, orders []*order.Order) []orderResponse {
	names := make(map[string]string)
	lookup := func(id string) string {
		if id == "" {
			return ""
		}
		if name, ok := names[id]; ok {
			return name
		}
		var name string
		if a, err := h.accounts.Get(ctx, id); err == nil {
			name = a.DisplayName
		}
		names[id] = name
		return name
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp := toOrderResponse(o)
		resp.SellerName = lookup(o.SellerID)
		resp.BuyerName = lookup(o.BuyerID)
		out = append(out, resp)
	}
	return out
}

// resolveOrder looks the path parameter up as a shareable code first,
// then as a numeric sequence id. Codes are what participants exchange,
// so they win on the rare all-digit collision.
func (h *Handler) resolveOrder(c *gin.Context) (*order.Order, error) {
	ref := c.Param("id")

	o, err := h.orders.GetByCode(c.Request.Context(), ref)
	if err == nil {
		return o, nil
	}

	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		return h.orders.GetByID(c.Request.Context(), id)
	}
	return nil, err
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		status, body := invalidArgument("notification id must be numeric")
		c.JSON(status, body)
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), id)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponse(n))
}

func (h *Handler) deleteNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		status, body := invalidArgument("notification id must be numeric")
		c.JSON(status, body)
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), id); err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) promoteOperator(c *gin.Context) {
	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	a, err := h.accounts.PromoteToOperator(c.Request.Context(), req.AdminID, req.TargetID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}

func (h *Handler) demoteOperator(c *gin.Context) {
	adminID := c.Query("admin_id")
	if adminID == "" {
		status, body := invalidArgument("admin_id query parameter is required")
		c.JSON(status, body)
		return
	}

	a, err := h.accounts.DemoteFromOperator(c.Request.Context(), adminID, c.Param("id"))
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}

func (h *Handler) promoteAdministrator(c *gin.Context) {
	var req roleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status, body := invalidArgument(err.Error())
		c.JSON(status, body)
		return
	}

	a, err := h.accounts.PromoteToAdministrator(c.Request.Context(), req.AdminID, req.TargetID)
	if err != nil {
		status, body := MapErrorToHTTP(err)
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, toAccountResponse(a))
}
