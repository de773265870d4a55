package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/farmlink/backend/internal/infrastructure/scheduler"
	"github.com/farmlink/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SystemHandler handles health and operational API endpoints
type SystemHandler struct {
	BaseHandler
	db        *gorm.DB
	reclaimer *scheduler.ReclaimScheduler
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db *gorm.DB, reclaimer *scheduler.ReclaimScheduler) *SystemHandler {
	return &SystemHandler{
		db:        db,
		reclaimer: reclaimer,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers system routes. The reclaim trigger is an
// operational endpoint restricted to admins.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	system := rg.Group("/system")
	{
		system.GET("/health", h.Health)
		system.GET("/info", h.Info)
	}

	admin := rg.Group("/admin", authMW, adminMW)
	{
		admin.POST("/reclaim", h.TriggerReclaim)
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Health reports service and database health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
		return
	}

	h.Success(c, resp)
}

// InfoResponse represents the system information response
type InfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Info returns basic system information
func (h *SystemHandler) Info(c *gin.Context) {
	h.Success(c, InfoResponse{
		Name:      "FarmLink Adoption API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// TriggerReclaim runs a reclaim sweep immediately
func (h *SystemHandler) TriggerReclaim(c *gin.Context) {
	reclaimed, err := h.reclaimer.RunOnce(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"reclaimed": reclaimed})
}
