package api

import (
	"time"

	"giftmarket/internal/account"
	"giftmarket/internal/notification"
	"giftmarket/internal/order"
	"giftmarket/internal/rates"
)

// Monetary amounts cross the wire as decimal strings; floats would
// corrupt them.

type upsertAccountRequest struct {
	ID          string `json:"id" binding:"required"`
	DisplayName string `json:"display_name"`
}

type updateRequisitesRequest struct {
	TonWallet  *string `json:"ton_wallet"`
	CardNumber *string `json:"card_number"`
	CardBank   *string `json:"card_bank"`
	Telegram   *string `json:"telegram"`
}

type createOrderRequest struct {
	SellerID    string `json:"seller_id" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Channel     string `json:"channel" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type joinOrderRequest struct {
	BuyerID string `json:"buyer_id" binding:"required"`
}

type setStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	ActorID string `json:"actor_id" binding:"required"`
}

type fastTrackRequest struct {
	OperatorID string `json:"operator_id" binding:"required"`
	Mode       string `json:"mode" binding:"required"`
}

type roleChangeRequest struct {
	AdminID  string `json:"admin_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
}

type requisitesResponse struct {
	TonWallet  string `json:"ton_wallet,omitempty"`
	CardNumber string `json:"card_number,omitempty"`
	CardBank   string `json:"card_bank,omitempty"`
	Telegram   string `json:"telegram,omitempty"`
}

type statsResponse struct {
	CompletedDeals int64             `json:"completed_deals"`
	Volumes        map[string]string `json:"volumes"`
}

type accountResponse struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"display_name"`
	Requisites  requisitesResponse `json:"requisites"`
	Role        string             `json:"role"`
	Stats       statsResponse      `json:"stats"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type orderResponse struct {
	ID               int64      `json:"id"`
	Code             string     `json:"code"`
	SellerID         string     `json:"seller_id"`
	SellerName       string     `json:"seller_name,omitempty"`
	BuyerID          string     `json:"buyer_id,omitempty"`
	BuyerName        string     `json:"buyer_name,omitempty"`
	Category         string     `json:"category"`
	Channel          string     `json:"channel"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	Description      string     `json:"description,omitempty"`
	SellerRequisites string     `json:"seller_requisites"`
	Status           string     `json:"status"`
	FastTracked      bool       `json:"fast_tracked,omitempty"`
	FastTrackedBy    string     `json:"fast_tracked_by,omitempty"`
	FastTrackedAt    *time.Time `json:"fast_tracked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type notificationResponse struct {
	ID          int64      `json:"id"`
	RecipientID string     `json:"recipient_id"`
	Category    string     `json:"category"`
	Message     string     `json:"message"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type tonPriceResponse struct {
	PriceUSD  string    `json:"price_usd"`
	Fallback  bool      `json:"fallback,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

func toAccountResponse(a *account.Account) accountResponse {
	volumes := make(map[string]string, len(a.Stats.Volumes))
	for currency, volume := range a.Stats.Volumes {
		volumes[currency] = volume.String()
	}
	return accountResponse{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Requisites: requisitesResponse{
			TonWallet:  a.Requisites.TonWallet,
			CardNumber: a.Requisites.CardNumber,
			CardBank:   a.Requisites.CardBank,
			Telegram:   a.Requisites.Telegram,
		},
		Role: string(a.Role),
		Stats: statsResponse{
			CompletedDeals: a.Stats.CompletedDeals,
			Volumes:        volumes,
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toOrderResponse(o *order.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		Code:             o.Code,
		SellerID:         o.SellerID,
		BuyerID:          o.BuyerID,
		Category:         string(o.Category),
		Channel:          string(o.Channel),
		Amount:           o.Amount.String(),
		Currency:         o.Currency,
		Description:      o.Description,
		SellerRequisites: o.SellerRequisites,
		Status:           string(o.Status),
		FastTracked:      o.FastTracked,
		FastTrackedBy:    o.FastTrackedBy,
		FastTrackedAt:    o.FastTrackedAt,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Category:    n.Category,
		Message:     n.Message,
		Read:        n.Read,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}

func toNotificationResponses(list []*notification.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	return out
}

func toTonPriceResponse(q rates.Quote) tonPriceResponse {
	return tonPriceResponse{
		PriceUSD:  q.PriceUSD.String(),
		Fallback:  q.Fallback,
		FetchedAt: q.FetchedAt,
	}
}
