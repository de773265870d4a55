package handler

import (
	appfarm "github.com/farmlink/backend/internal/application/farm"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/farmlink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FarmHandler handles farm catalog API endpoints
type FarmHandler struct {
	BaseHandler
	farmService *appfarm.FarmService
}

// NewFarmHandler creates a new FarmHandler
func NewFarmHandler(farmService *appfarm.FarmService) *FarmHandler {
	return &FarmHandler{farmService: farmService}
}

// RegisterRoutes registers farm routes, the catalog is public
func (h *FarmHandler) RegisterRoutes(rg *gin.RouterGroup) {
	farms := rg.Group("/farms")
	{
		farms.GET("", h.List)
		farms.GET("/:id", h.Get)
	}
}

// List returns farms, optionally filtered by region
func (h *FarmHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		Filters:  make(map[string]interface{}),
	}
	if region := c.Query("region"); region != "" {
		filter.Filters["region"] = region
	}

	farms, total, err := h.farmService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, farms, total, req.Page, req.PageSize)
}

// Get returns one farm and its crops
func (h *FarmHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid farm ID")
		return
	}

	farm, crops, err := h.farmService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"farm":  farm,
		"crops": crops,
	})
}
