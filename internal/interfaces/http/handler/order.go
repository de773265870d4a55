package handler

import (
	appadoption "github.com/farmlink/backend/internal/application/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/farmlink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler handles adoption order API endpoints
type OrderHandler struct {
	BaseHandler
	allocationService *appadoption.AllocationService
	paymentService    *appadoption.PaymentService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(allocationService *appadoption.AllocationService, paymentService *appadoption.PaymentService) *OrderHandler {
	return &OrderHandler{
		allocationService: allocationService,
		paymentService:    paymentService,
	}
}

// RegisterRoutes registers order routes, all require authentication
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	orders := rg.Group("/orders", authMW)
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:order_no", h.Get)
		orders.POST("/:order_no/cancel", h.Cancel)
	}
}

// CreateOrderRequest represents a request to reserve units of a project
type CreateOrderRequest struct {
	ProjectID      string `json:"project_id" binding:"required,uuid"`
	UnitCount      int    `json:"unit_count" binding:"required,min=1,max=100"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=100"`
}

// CancelOrderRequest carries the optional reason for a buyer cancellation
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// Create reserves units and creates a pending order.
// Retrying with the same idempotency key returns the original order.
func (h *OrderHandler) Create(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	order, err := h.allocationService.ReserveUnits(c.Request.Context(), appadoption.ReserveUnitsRequest{
		ProjectID:      projectID,
		BuyerID:        buyerID,
		UnitCount:      req.UnitCount,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// List returns the authenticated buyer's orders, newest first
func (h *OrderHandler) List(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}

	orders, total, err := h.allocationService.ListByBuyer(c.Request.Context(), buyerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, orders, total, req.Page, req.PageSize)
}

// Get returns one order by order number.
// Buyers can only read their own orders.
func (h *OrderHandler) Get(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	orderNo := c.Param("order_no")
	order, err := h.allocationService.GetByOrderNo(c.Request.Context(), orderNo)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if order.BuyerID != buyerID.String() {
		h.NotFound(c, "Order not found")
		return
	}

	h.Success(c, order)
}

// Cancel cancels a pending order and releases its units
func (h *OrderHandler) Cancel(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	orderNo := c.Param("order_no")

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, err.Error())
		return
	}

	existing, err := h.allocationService.GetByOrderNo(c.Request.Context(), orderNo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if existing.BuyerID != buyerID.String() {
		h.NotFound(c, "Order not found")
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "cancelled by buyer"
	}

	order, err := h.paymentService.CancelPayment(c.Request.Context(), orderNo, reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
