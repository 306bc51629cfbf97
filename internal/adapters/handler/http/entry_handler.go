package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strovahq/challenge-engine/internal/adapters/handler/http/middleware"
	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/services"
)

type EntryHandler struct {
	svc *services.EntryService
}

func NewEntryHandler(svc *services.EntryService) *EntryHandler {
	return &EntryHandler{
		svc: svc,
	}
}

type checkRequest struct {
	EntryDate string `json:"entry_date" binding:"required"`
	Completed bool   `json:"completed"`
	Value     int    `json:"value"`
}

const dayFormat = "2006-01-02"

func (h *EntryHandler) RegisterRoutes(router *gin.RouterGroup) {
	entries := router.Group("/habits/:id/entries")
	{
		entries.POST("", h.Check)
		entries.GET("", h.List)
		entries.DELETE("/:date", h.Uncheck)
	}
}

// Check marks one calendar day done for a habit. Re-checking the same day
// replaces the previous entry instead of adding a second one.
func (h *EntryHandler) Check(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	entryDate, err := time.Parse(dayFormat, req.EntryDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry_date, use YYYY-MM-DD"})
		return
	}

	entry, err := h.svc.Check(c.Request.Context(), services.CheckInput{
		HabitID:   c.Param("id"),
		UserID:    userID,
		EntryDate: entryDate,
		Completed: req.Completed,
		Value:     req.Value,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *EntryHandler) Uncheck(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	entryDate, err := time.Parse(dayFormat, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
		return
	}

	if err := h.svc.Uncheck(c.Request.Context(), c.Param("id"), userID, entryDate); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *EntryHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if t := c.Query("to"); t != "" {
		if parsed, err := time.Parse(dayFormat, t); err == nil {
			to = parsed
		}
	}
	if f := c.Query("from"); f != "" {
		if parsed, err := time.Parse(dayFormat, f); err == nil {
			from = parsed
		}
	}

	list, err := h.svc.ListByHabitID(c.Request.Context(), c.Param("id"), userID, from, to)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized access"})

	case errors.Is(err, domain.ErrHabitNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrMilestoneNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})

	case errors.Is(err, domain.ErrAlreadyJoined):
		c.JSON(http.StatusConflict, gin.H{"error": "already joined this challenge"})

	case errors.Is(err, domain.ErrHabitArchived),
		errors.Is(err, domain.ErrHabitNotStreakable),
		errors.Is(err, domain.ErrNoLinkedHabits),
		errors.Is(err, domain.ErrSingleModeNeedsOne),
		errors.Is(err, domain.ErrMinimumWithoutCount),
		errors.Is(err, domain.ErrMinimumExceedsLinked),
		errors.Is(err, domain.ErrMinimumOutsideMinMode),
		errors.Is(err, domain.ErrChallengeCancelled),
		errors.Is(err, domain.ErrChallengeFinished),
		errors.Is(err, domain.ErrChallengeNotActive),
		errors.Is(err, domain.ErrParticipantDropped):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case isValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func isValidationError(err error) bool {
	validation := []error{
		domain.ErrHabitNameEmpty,
		domain.ErrHabitNameTooLong,
		domain.ErrInvalidWeekdays,
		domain.ErrNoWeekdays,
		domain.ErrInvalidWeeklyCount,
		domain.ErrInvalidTarget,
		domain.ErrInvalidMethodology,
		domain.ErrInvalidRecurrence,
		domain.ErrChallengeTitleEmpty,
		domain.ErrInvalidChallengeType,
		domain.ErrInvalidMatchMode,
		domain.ErrInvalidDateRange,
		domain.ErrInvalidChallengeTarget,
		domain.ErrInvalidGracePeriod,
	}
	for _, v := range validation {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
