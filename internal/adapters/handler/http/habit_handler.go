package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/strovahq/challenge-engine/internal/adapters/handler/http/middleware"
	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/services"
)

type HabitHandler struct {
	svc *services.HabitService
}

func NewHabitHandler(svc *services.HabitService) *HabitHandler {
	return &HabitHandler{
		svc: svc,
	}
}

type habitRequest struct {
	Name        string `json:"name" binding:"required"`
	Methodology string `json:"methodology" binding:"required"`
	Unit        string `json:"unit"`
	TargetValue int    `json:"target_value"`

	RecurrenceType string `json:"recurrence_type" binding:"required"`
	Weekdays       []int  `json:"weekdays"`
	WeeklyCount    int    `json:"weekly_count"`
}

func (r habitRequest) recurrence() domain.Recurrence {
	return domain.Recurrence{
		Type:        r.RecurrenceType,
		Weekdays:    r.Weekdays,
		WeeklyCount: r.WeeklyCount,
	}
}

func (h *HabitHandler) RegisterRoutes(router *gin.RouterGroup) {
	habits := router.Group("/habits")
	{
		habits.POST("", h.Create)
		habits.GET("", h.List)
		habits.GET("/:id", h.Get)
		habits.PUT("/:id", h.Update)
		habits.POST("/:id/archive", h.Archive)
		habits.POST("/:id/restore", h.Restore)
	}
}

func (h *HabitHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Create(c.Request.Context(), services.CreateHabitInput{
		OwnerID:     userID,
		Name:        req.Name,
		Methodology: req.Methodology,
		Unit:        req.Unit,
		TargetValue: req.TargetValue,
		Recurrence:  req.recurrence(),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, habit)
}

func (h *HabitHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	list, err := h.svc.ListByOwnerID(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *HabitHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	habit, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	habit, err := h.svc.Update(c.Request.Context(), services.UpdateHabitInput{
		ID:          c.Param("id"),
		OwnerID:     userID,
		Name:        req.Name,
		Methodology: req.Methodology,
		Unit:        req.Unit,
		TargetValue: req.TargetValue,
		Recurrence:  req.recurrence(),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, habit)
}

func (h *HabitHandler) Archive(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Archive(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *HabitHandler) Restore(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Restore(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
