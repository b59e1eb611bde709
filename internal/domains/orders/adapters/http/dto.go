package http

import (
	"time"

	invdomain "github.com/dealgrid/ordercore/internal/domains/inventory/domain"
	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
)

type lineRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required"`
}

type deliveryRequest struct {
	Address  string `json:"address"`
	FeeCents int64  `json:"fee_cents"`
}

type createOrderRequest struct {
	Channel        string           `json:"channel"`
	IdempotencyKey string           `json:"idempotency_key"`
	OrderType      string           `json:"order_type" binding:"required"`
	StoreID        int64            `json:"store_id" binding:"required"`
	CustomerID     int64            `json:"customer_id" binding:"required"`
	Lines          []lineRequest    `json:"lines" binding:"required"`
	Delivery       *deliveryRequest `json:"delivery_info"`
}

type statusUpdateRequest struct {
	TargetStatus string `json:"target_status" binding:"required"`
	ActorRole    string `json:"actor_role" binding:"required"`
	Reason       string `json:"reason"`
}

type paymentUpdateRequest struct {
	PaymentStatus  string `json:"payment_status" binding:"required"`
	ProofReference string `json:"proof_reference"`
}

type listItemRequest struct {
	StoreID    int64  `json:"store_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required"`
	Available  int    `json:"available"`
}

type restockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

type lineResponse struct {
	ItemID     int64 `json:"item_id"`
	Quantity   int   `json:"quantity"`
	PriceCents int64 `json:"price_cents"`
}

type orderResponse struct {
	OrderID          string         `json:"order_id"`
	OrderType        string         `json:"order_type"`
	Status           string         `json:"status"`
	PaymentStatus    string         `json:"payment_status"`
	StoreID          int64          `json:"store_id"`
	CustomerID       int64          `json:"customer_id"`
	Lines            []lineResponse `json:"lines"`
	TotalCents       int64          `json:"total_cents"`
	DeliveryFeeCents int64          `json:"delivery_fee_cents,omitempty"`
	DeliveryAddress  string         `json:"delivery_address,omitempty"`
	CancelReason     string         `json:"cancel_reason,omitempty"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
}

type itemResponse struct {
	ItemID     int64  `json:"item_id"`
	StoreID    int64  `json:"store_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Available  int    `json:"available"`
}

func toCreateInput(req createOrderRequest, channel, idempotencyKey string) types.CreateOrderInput {
	input := types.CreateOrderInput{
		Channel:        channel,
		IdempotencyKey: idempotencyKey,
		Type:           domain.Type(req.OrderType),
		StoreID:        req.StoreID,
		CustomerID:     req.CustomerID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, types.LineInput{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	if req.Delivery != nil {
		input.Delivery = &types.DeliveryInput{Address: req.Delivery.Address, FeeCents: req.Delivery.FeeCents}
	}
	return input
}

func fromOrder(order *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:          order.ID,
		OrderType:        string(order.Type),
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		StoreID:          order.StoreID,
		CustomerID:       order.CustomerID,
		TotalCents:       order.TotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		DeliveryAddress:  order.DeliveryAddress,
		CancelReason:     order.CancelReason,
		CreatedAt:        order.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        order.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ItemID:     line.ItemID,
			Quantity:   line.Quantity,
			PriceCents: line.PriceCents,
		})
	}
	return resp
}

func fromItem(item *invdomain.Item) itemResponse {
	return itemResponse{
		ItemID:     item.ID,
		StoreID:    item.StoreID,
		Name:       item.Name,
		PriceCents: item.PriceCents,
		Available:  item.Available,
	}
}
