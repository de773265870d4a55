package handler

import (
	appadoption "github.com/farmlink/backend/internal/application/adoption"
	"github.com/gin-gonic/gin"
)

// PaymentCallbackHandler receives asynchronous payment gateway notifications.
// The gateway retries until it gets a success response, so the endpoint must
// be idempotent and must acknowledge duplicates.
type PaymentCallbackHandler struct {
	BaseHandler
	paymentService *appadoption.PaymentService
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(paymentService *appadoption.PaymentService) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{paymentService: paymentService}
}

// RegisterRoutes registers the callback route. The gateway authenticates via
// its own signature scheme, not user JWTs.
func (h *PaymentCallbackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/callback", h.Notify)
}

// PaymentCallbackRequest is the normalized gateway notification payload
type PaymentCallbackRequest struct {
	NotificationID string `json:"notification_id" binding:"required,max=100"`
	OrderNo        string `json:"order_no" binding:"required,max=64"`
	PaymentRef     string `json:"payment_ref" binding:"max=100"`
	Outcome        string `json:"outcome" binding:"required,oneof=SUCCESS FAILURE"`
}

// Notify processes a payment result notification
func (h *PaymentCallbackHandler) Notify(c *gin.Context) {
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.paymentService.HandleNotification(c.Request.Context(), appadoption.PaymentNotification{
		NotificationID: req.NotificationID,
		OrderNo:        req.OrderNo,
		PaymentRef:     req.PaymentRef,
		Outcome:        appadoption.PaymentOutcome(req.Outcome),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}
