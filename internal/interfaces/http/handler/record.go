package handler

import (
	appadoption "github.com/farmlink/backend/internal/application/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/farmlink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecordHandler handles adoption record API endpoints
type RecordHandler struct {
	BaseHandler
	recordService *appadoption.RecordService
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(recordService *appadoption.RecordService) *RecordHandler {
	return &RecordHandler{recordService: recordService}
}

// RegisterRoutes registers record routes, all require authentication
func (h *RecordHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	records := rg.Group("/records", authMW)
	{
		records.GET("", h.List)
		records.GET("/order/:order_id", h.ListByOrder)
	}
}

// List returns the authenticated buyer's adoption records
func (h *RecordHandler) List(c *gin.Context) {
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
	}

	records, total, err := h.recordService.ListByBuyer(c.Request.Context(), buyerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, records, total, req.Page, req.PageSize)
}

// ListByOrder returns the records created by one paid order
func (h *RecordHandler) ListByOrder(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("order_id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	records, err := h.recordService.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}
