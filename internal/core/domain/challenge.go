package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrChallengeNotFound      = errors.New("challenge not found")
	ErrChallengeTitleEmpty    = errors.New("challenge title cannot be empty")
	ErrInvalidChallengeType   = errors.New("invalid challenge type (must be streak, cumulative, consistency, or team_goal)")
	ErrInvalidMatchMode       = errors.New("invalid habit match mode (must be single, any, all, or minimum)")
	ErrInvalidDateRange       = errors.New("challenge end date must be after start date")
	ErrInvalidChallengeTarget = errors.New("challenge target value must be positive")
	ErrInvalidGracePeriod     = errors.New("grace period hours cannot be negative")
	ErrChallengeNotActive     = errors.New("challenge is not active")
	ErrChallengeCancelled     = errors.New("challenge has been cancelled")
	ErrChallengeFinished      = errors.New("challenge has already finished")

	ErrNoLinkedHabits        = errors.New("at least one habit must be linked")
	ErrSingleModeNeedsOne    = errors.New("single match mode requires exactly one linked habit")
	ErrMinimumWithoutCount   = errors.New("minimum match mode requires a match minimum of at least 1")
	ErrMinimumExceedsLinked  = errors.New("match minimum cannot exceed the number of linked habits")
	ErrMinimumOutsideMinMode = errors.New("match minimum is only valid with the minimum match mode")
)

// ChallengeType selects which metric drives a participant's progress.
type ChallengeType string

const (
	ChallengeStreak      ChallengeType = "streak"
	ChallengeCumulative  ChallengeType = "cumulative"
	ChallengeConsistency ChallengeType = "consistency"
	ChallengeTeamGoal    ChallengeType = "team_goal"
)

// MatchMode is how several linked habits' daily states collapse into one
// day credit. It is validated once, here, and switched exhaustively in the
// engine rather than compared ad hoc.
type MatchMode string

const (
	MatchSingle  MatchMode = "single"
	MatchAny     MatchMode = "any"
	MatchAll     MatchMode = "all"
	MatchMinimum MatchMode = "minimum"
)

// ChallengeStatus is derived from the clock except for the terminal
// cancelled transition.
type ChallengeStatus string

const (
	StatusUpcoming  ChallengeStatus = "upcoming"
	StatusActive    ChallengeStatus = "active"
	StatusCompleted ChallengeStatus = "completed"
	StatusCancelled ChallengeStatus = "cancelled"
)

type ChallengeRules struct {
	TargetValue       int    `json:"target_value" db:"target_value"`
	TargetUnit        string `json:"target_unit" db:"target_unit"`
	MinimumDailyValue int    `json:"minimum_daily_value" db:"minimum_daily_value"`
	GracePeriodHours  int    `json:"grace_period_hours" db:"grace_period_hours"`
	AllowMakeupDays   bool   `json:"allow_makeup_days" db:"allow_makeup_days"`
}

type Challenge struct {
	ID          string         `json:"id" db:"id"`
	WorkspaceID string         `json:"workspace_id" db:"workspace_id"`
	CreatorID   string         `json:"creator_id" db:"creator_id"`
	Title       string         `json:"title" db:"title"`
	Type        ChallengeType  `json:"type" db:"type"`
	Rules       ChallengeRules `json:"rules"`

	MatchMode    MatchMode `json:"match_mode" db:"match_mode"`
	MatchMinimum int       `json:"match_minimum,omitempty" db:"match_minimum"`

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func NewChallenge(workspaceID, creatorID, title string, cType ChallengeType, rules ChallengeRules, mode MatchMode, matchMinimum int, start, end time.Time) (*Challenge, error) {
	c := &Challenge{
		ID:           uuid.New().String(),
		WorkspaceID:  workspaceID,
		CreatorID:    creatorID,
		Title:        strings.TrimSpace(title),
		Type:         cType,
		Rules:        rules,
		MatchMode:    mode,
		MatchMinimum: matchMinimum,
		StartDate:    DayOf(start),
		EndDate:      DayOf(end),
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	return c, nil
}

func (c *Challenge) validate() error {
	if c.Title == "" {
		return ErrChallengeTitleEmpty
	}

	switch c.Type {
	case ChallengeStreak, ChallengeCumulative, ChallengeConsistency, ChallengeTeamGoal:
	default:
		return ErrInvalidChallengeType
	}

	switch c.MatchMode {
	case MatchSingle, MatchAny, MatchAll:
		if c.MatchMinimum != 0 {
			return ErrMinimumOutsideMinMode
		}
	case MatchMinimum:
		if c.MatchMinimum < 1 {
			return ErrMinimumWithoutCount
		}
	default:
		return ErrInvalidMatchMode
	}

	if c.Rules.TargetValue < 1 {
		return ErrInvalidChallengeTarget
	}
	if c.Rules.GracePeriodHours < 0 {
		return ErrInvalidGracePeriod
	}

	if !c.EndDate.After(c.StartDate) {
		return ErrInvalidDateRange
	}

	return nil
}

// ValidateLinkedHabits rejects the configuration errors the engine is
// entitled to assume away: empty link sets, single mode with several
// habits, a minimum above the link count, and non-streakable rules inside
// a streak challenge. Called at join time, never silently coerced.
func (c *Challenge) ValidateLinkedHabits(habits []*Habit) error {
	if len(habits) == 0 {
		return ErrNoLinkedHabits
	}

	switch c.MatchMode {
	case MatchSingle:
		if len(habits) != 1 {
			return ErrSingleModeNeedsOne
		}
	case MatchMinimum:
		if c.MatchMinimum > len(habits) {
			return ErrMinimumExceedsLinked
		}
	}

	if c.Type == ChallengeStreak {
		for _, h := range habits {
			if !h.Recurrence.HasFixedSchedule() {
				return ErrHabitNotStreakable
			}
		}
	}

	return nil
}

// StatusAt derives the lifecycle status at a given instant. Cancellation
// is the only stored transition; everything else follows the calendar.
func (c *Challenge) StatusAt(now time.Time) ChallengeStatus {
	if c.CancelledAt != nil {
		return StatusCancelled
	}

	day := DayOf(now)
	if day.Before(c.StartDate) {
		return StatusUpcoming
	}
	if day.After(c.EndDate) {
		return StatusCompleted
	}
	return StatusActive
}

// Cancel marks the challenge cancelled. Terminal: a completed or already
// cancelled challenge cannot regress.
func (c *Challenge) Cancel(now time.Time) error {
	switch c.StatusAt(now) {
	case StatusCancelled:
		return ErrChallengeCancelled
	case StatusCompleted:
		return ErrChallengeFinished
	}

	t := now.UTC()
	c.CancelledAt = &t
	c.UpdatedAt = t
	return nil
}

// ElapsedWindow is the slice of the challenge calendar that has already
// happened: [StartDate, min(today, EndDate)]. Second return is false when
// the challenge has not started yet.
func (c *Challenge) ElapsedWindow(now time.Time) (time.Time, time.Time, bool) {
	day := DayOf(now)
	if day.Before(c.StartDate) {
		return time.Time{}, time.Time{}, false
	}
	end := c.EndDate
	if day.Before(end) {
		end = day
	}
	return c.StartDate, end, true
}
