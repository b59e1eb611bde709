package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	invports "github.com/dealgrid/ordercore/internal/domains/inventory/ports"
	"github.com/dealgrid/ordercore/internal/domains/orders/application/types"
	"github.com/dealgrid/ordercore/internal/domains/orders/domain"
	ordersports "github.com/dealgrid/ordercore/internal/domains/orders/ports"
	apperrors "github.com/dealgrid/ordercore/internal/shared/errors"
)

// Channel and idempotency-key headers set by the three client surfaces.
const (
	HeaderChannel        = "X-Channel"
	HeaderIdempotencyKey = "X-Idempotency-Key"
)

// Handler exposes the coordinator to the bot, web, and panel channels. All
// mutations go through the injected services; nothing here touches storage.
type Handler struct {
	orders    ordersports.Service
	inventory invports.Service
	responder *apperrors.ChainedResponder
}

// NewHandler wires the HTTP surface.
func NewHandler(orders ordersports.Service, inventory invports.Service) *Handler {
	return &Handler{
		orders:    orders,
		inventory: inventory,
		responder: apperrors.NewChainedResponder("", problemFromError),
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/healthz", h.health)
	v1 := router.Group("/v1")
	v1.POST("/orders", h.createOrder)
	v1.GET("/orders", h.customerOrders)
	v1.GET("/orders/:id", h.getOrder)
	v1.POST("/orders/:id/status", h.updateStatus)
	v1.POST("/orders/:id/payment", h.applyPayment)
	v1.POST("/items", h.listItem)
	v1.POST("/items/:id/restock", h.restock)
	v1.GET("/stores/:id/items", h.storeItems)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	channel := strings.TrimSpace(c.GetHeader(HeaderChannel))
	if channel == "" {
		channel = strings.TrimSpace(req.Channel)
	}
	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}
	order, err := h.orders.CreateOrder(c.Request.Context(), toCreateInput(req, channel, key))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromOrder(order))
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromOrder(order))
}

func (h *Handler) customerOrders(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customer_id"), 10, 64)
	if err != nil || customerID <= 0 {
		h.responder.BadRequest(c, "customer_id must be a positive integer")
		return
	}
	orders, err := h.orders.CustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, fromOrder(order))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), types.StatusUpdateInput{
		OrderID: c.Param("id"),
		Target:  domain.Status(req.TargetStatus),
		Actor:   domain.ActorRole(req.ActorRole),
		Reason:  req.Reason,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromOrder(order))
}

func (h *Handler) applyPayment(c *gin.Context) {
	var req paymentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	order, err := h.orders.ApplyPaymentStatus(c.Request.Context(), types.PaymentUpdateInput{
		OrderID:  c.Param("id"),
		Status:   domain.PaymentStatus(req.PaymentStatus),
		ProofRef: req.ProofReference,
	})
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromOrder(order))
}

func (h *Handler) listItem(c *gin.Context) {
	var req listItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	item, err := h.inventory.ListItem(c.Request.Context(), req.StoreID, req.Name, req.PriceCents, req.Available)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fromItem(item))
}

func (h *Handler) restock(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || itemID <= 0 {
		h.responder.BadRequest(c, "item id must be a positive integer")
		return
	}
	var req restockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder.BadRequest(c, err.Error())
		return
	}
	item, err := h.inventory.Restock(c.Request.Context(), itemID, req.Quantity)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fromItem(item))
}

func (h *Handler) storeItems(c *gin.Context) {
	storeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || storeID <= 0 {
		h.responder.BadRequest(c, "store id must be a positive integer")
		return
	}
	items, err := h.inventory.StoreItems(c.Request.Context(), storeID)
	if err != nil {
		h.responder.RespondError(c, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, fromItem(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
