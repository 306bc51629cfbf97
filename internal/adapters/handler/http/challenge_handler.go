package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/strovahq/challenge-engine/internal/adapters/handler/http/middleware"
	"github.com/strovahq/challenge-engine/internal/core/domain"
	"github.com/strovahq/challenge-engine/internal/core/services"
)

type ChallengeHandler struct {
	svc    *services.ChallengeService
	boards *services.LeaderboardService
}

func NewChallengeHandler(svc *services.ChallengeService, boards *services.LeaderboardService) *ChallengeHandler {
	return &ChallengeHandler{
		svc:    svc,
		boards: boards,
	}
}

type milestoneRequest struct {
	Value float64 `json:"value" binding:"required"`
	Label string  `json:"label"`
}

type createChallengeRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Type        string `json:"type" binding:"required"`

	TargetValue       int    `json:"target_value" binding:"required"`
	TargetUnit        string `json:"target_unit"`
	MinimumDailyValue int    `json:"minimum_daily_value"`
	GracePeriodHours  int    `json:"grace_period_hours"`
	AllowMakeupDays   bool   `json:"allow_makeup_days"`

	MatchMode    string `json:"match_mode" binding:"required"`
	MatchMinimum int    `json:"match_minimum"`

	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`

	Milestones []milestoneRequest `json:"milestones"`
}

type joinRequest struct {
	HabitIDs   []string `json:"habit_ids" binding:"required"`
	ShareLevel string   `json:"share_level"`
}

func (h *ChallengeHandler) RegisterRoutes(router *gin.RouterGroup) {
	challenges := router.Group("/challenges")
	{
		challenges.POST("", h.Create)
		challenges.GET("", h.List)
		challenges.GET("/:id", h.Get)
		challenges.POST("/:id/join", h.Join)
		challenges.POST("/:id/leave", h.Leave)
		challenges.POST("/:id/cancel", h.Cancel)
		challenges.GET("/:id/participants/:userID/progress", h.Progress)
		challenges.GET("/:id/milestones", h.Milestones)
		challenges.GET("/:id/leaderboard", h.Leaderboard)
	}
}

func (h *ChallengeHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req createChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(dayFormat, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_date, use YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(dayFormat, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_date, use YYYY-MM-DD"})
		return
	}

	input := services.CreateChallengeInput{
		WorkspaceID: req.WorkspaceID,
		CreatorID:   userID,
		Title:       req.Title,
		Type:        domain.ChallengeType(req.Type),
		Rules: domain.ChallengeRules{
			TargetValue:       req.TargetValue,
			TargetUnit:        req.TargetUnit,
			MinimumDailyValue: req.MinimumDailyValue,
			GracePeriodHours:  req.GracePeriodHours,
			AllowMakeupDays:   req.AllowMakeupDays,
		},
		MatchMode:    domain.MatchMode(req.MatchMode),
		MatchMinimum: req.MatchMinimum,
		StartDate:    start,
		EndDate:      end,
	}
	for _, m := range req.Milestones {
		input.Milestones = append(input.Milestones, services.MilestoneInput{Value: m.Value, Label: m.Label})
	}

	challenge, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

func (h *ChallengeHandler) List(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}

	list, err := h.svc.ListByWorkspaceID(c.Request.Context(), workspaceID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *ChallengeHandler) Get(c *gin.Context) {
	challenge, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge,
		"status":    challenge.StatusAt(time.Now()),
	})
}

func (h *ChallengeHandler) Join(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participant, err := h.svc.Join(c.Request.Context(), c.Param("id"), userID, req.HabitIDs, domain.ShareLevel(req.ShareLevel))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

func (h *ChallengeHandler) Leave(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Leave(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChallengeHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), c.Param("id"), userID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Progress renders another participant's progress through the visibility
// capability check: the response only carries the fields the target's
// share level grants the viewer.
func (h *ChallengeHandler) Progress(c *gin.Context) {
	viewerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user context missing"})
		return
	}

	challenge, err := h.svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	targetID := c.Param("userID")
	participant, err := h.svc.GetParticipant(c.Request.Context(), challenge.ID, targetID)
	if err != nil {
		handleError(c, err)
		return
	}

	role := domain.RoleMember
	switch {
	case viewerID == targetID:
		role = domain.RoleSelf
	case viewerID == challenge.CreatorID:
		role = domain.RoleAdmin
	}

	c.JSON(http.StatusOK, renderProgress(participant, domain.VisibleFields(role, participant.Share)))
}

func renderProgress(p *domain.Participant, fields map[domain.Field]bool) gin.H {
	out := gin.H{
		"user_id": p.UserID,
		"status":  p.Status,
	}

	if fields[domain.FieldCurrentValue] {
		out["current_value"] = p.Progress.CurrentValue
	}
	if fields[domain.FieldCompletionRate] {
		out["completion_rate"] = p.Progress.CompletionRate
	}
	if fields[domain.FieldStreaks] {
		out["current_streak"] = p.Progress.CurrentStreak
		out["longest_streak"] = p.Progress.LongestStreak
	}
	if fields[domain.FieldHistory] {
		out["linked_habit_ids"] = p.LinkedHabitIDs
		out["value_reached_at"] = p.Progress.ValueReachedAt
		out["joined_at"] = p.JoinedAt
	}

	return out
}

func (h *ChallengeHandler) Milestones(c *gin.Context) {
	milestones, err := h.svc.ListMilestones(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, milestones)
}

func (h *ChallengeHandler) Leaderboard(c *gin.Context) {
	board, err := h.boards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, board)
}
