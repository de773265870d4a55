package handler

import (
	"context"
	"time"

	appadoption "github.com/farmlink/backend/internal/application/adoption"
	"github.com/farmlink/backend/internal/domain/shared"
	"github.com/farmlink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProjectHandler handles adoption project API endpoints
type ProjectHandler struct {
	BaseHandler
	projectService *appadoption.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *appadoption.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// RegisterRoutes registers project routes. Listing and reading are public,
// lifecycle operations require the admin role.
func (h *ProjectHandler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	projects := rg.Group("/projects")
	{
		projects.GET("", h.List)
		projects.GET("/:id", h.Get)
	}

	admin := rg.Group("/projects", authMW, adminMW)
	{
		admin.POST("", h.Create)
		admin.POST("/:id/open", h.Open)
		admin.POST("/:id/start-growing", h.StartGrowing)
		admin.POST("/:id/complete-harvest", h.CompleteHarvest)
		admin.POST("/:id/deliver", h.MarkDelivered)
	}
}

// CreateProjectRequest represents a request to create an adoption project
type CreateProjectRequest struct {
	FarmID      string    `json:"farm_id" binding:"required,uuid"`
	CropID      string    `json:"crop_id" binding:"required,uuid"`
	Name        string    `json:"name" binding:"required,min=1,max=200"`
	Description string    `json:"description" binding:"max=2000"`
	TotalUnits  int       `json:"total_units" binding:"required,min=1,max=10000"`
	UnitPrice   string    `json:"unit_price" binding:"required"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
}

// List returns adoption projects, optionally filtered by status or farm
func (h *ProjectHandler) List(c *gin.Context) {
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
		Filters:  make(map[string]interface{}),
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if farmID := c.Query("farm_id"); farmID != "" {
		filter.Filters["farm_id"] = farmID
	}

	projects, total, err := h.projectService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, projects, total, req.Page, req.PageSize)
}

// Get returns one adoption project by ID
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, project)
}

// Create creates a new adoption project in DRAFT state
func (h *ProjectHandler) Create(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	farmID, err := uuid.Parse(req.FarmID)
	if err != nil {
		h.BadRequest(c, "Invalid farm ID")
		return
	}
	cropID, err := uuid.Parse(req.CropID)
	if err != nil {
		h.BadRequest(c, "Invalid crop ID")
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), appadoption.CreateProjectRequest{
		FarmID:      farmID,
		CropID:      cropID,
		Name:        req.Name,
		Description: req.Description,
		TotalUnits:  req.TotalUnits,
		UnitPrice:   req.UnitPrice,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, project)
}

// Open opens a project for adoption orders
func (h *ProjectHandler) Open(c *gin.Context) {
	h.transition(c, h.projectService.Open)
}

// StartGrowing moves a project into the growing phase
func (h *ProjectHandler) StartGrowing(c *gin.Context) {
	h.transition(c, h.projectService.StartGrowing)
}

// CompleteHarvest completes a project and advances its units and records
func (h *ProjectHandler) CompleteHarvest(c *gin.Context) {
	h.transition(c, h.projectService.CompleteHarvest)
}

// MarkDelivered marks all harvested records of a project as delivered
func (h *ProjectHandler) MarkDelivered(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	delivered, err := h.projectService.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"delivered": delivered})
}

func (h *ProjectHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*appadoption.ProjectResponse, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	project, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, project)
}

func (h *ProjectHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid project ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return uuid.Nil, false
	}
	return id, true
}
