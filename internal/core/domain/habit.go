package domain

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrHabitNameEmpty     = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong   = errors.New("habit name is too long (max 100 chars)")
	ErrHabitInvalidOwner  = errors.New("invalid owner id")
	ErrInvalidWeekdays    = errors.New("invalid weekdays (must be 0-6)")
	ErrNoWeekdays         = errors.New("specific_days rule requires at least one weekday")
	ErrInvalidWeeklyCount = errors.New("weekly count must be between 1 and 7")
	ErrInvalidTarget      = errors.New("target value must be positive")
	ErrInvalidMethodology = errors.New("invalid methodology (must be boolean, numeric, duration, or rating)")
	ErrInvalidRecurrence  = errors.New("invalid recurrence type (must be daily, specific_days, or weekly_count)")
	ErrHabitArchived      = errors.New("cannot update an archived habit")
	ErrHabitNotStreakable = errors.New("habit recurrence has no fixed schedule and cannot back a streak")
)

const (
	RecurrenceDaily        = "daily"
	RecurrenceSpecificDays = "specific_days"
	RecurrenceWeeklyCount  = "weekly_count"

	MethodologyBoolean  = "boolean"
	MethodologyNumeric  = "numeric"
	MethodologyDuration = "duration"
	MethodologyRating   = "rating"

	MaxHabitNameLen = 100
)

// Recurrence describes when a habit is due. For daily and specific_days
// dueness is a per-day fact; for weekly_count it is a window fact and the
// Weekdays field is unused.
type Recurrence struct {
	Type        string `json:"type" db:"recurrence_type"`
	Weekdays    []int  `json:"weekdays,omitempty"`
	WeeklyCount int    `json:"weekly_count,omitempty" db:"weekly_count"`
}

// HasFixedSchedule reports whether the rule names concrete due days.
// Streak semantics only apply to fixed-schedule rules.
func (r Recurrence) HasFixedSchedule() bool {
	return r.Type == RecurrenceDaily || r.Type == RecurrenceSpecificDays
}

func (r Recurrence) Validate() error {
	switch r.Type {
	case RecurrenceDaily:
		return nil
	case RecurrenceSpecificDays:
		if len(r.Weekdays) == 0 {
			return ErrNoWeekdays
		}
		for _, d := range r.Weekdays {
			if d < 0 || d > 6 {
				return ErrInvalidWeekdays
			}
		}
		return nil
	case RecurrenceWeeklyCount:
		if r.WeeklyCount < 1 || r.WeeklyCount > 7 {
			return ErrInvalidWeeklyCount
		}
		return nil
	default:
		return ErrInvalidRecurrence
	}
}

type Habit struct {
	ID          string     `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	Name        string     `json:"name" db:"name"`
	Recurrence  Recurrence `json:"recurrence"`
	Methodology string     `json:"methodology" db:"methodology"`
	TargetValue int        `json:"target_value" db:"target_value"`
	Unit        string     `json:"unit" db:"unit"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

func normalizeWeekdays(days []int) []int {
	if len(days) == 0 {
		return nil
	}

	seen := make(map[int]bool)
	var unique []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	sort.Ints(unique)
	return unique
}

func validateHabit(name, methodology string, target int, rec Recurrence) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrHabitNameEmpty
	}
	if len(trimmed) > MaxHabitNameLen {
		return ErrHabitNameTooLong
	}

	switch methodology {
	case MethodologyBoolean, MethodologyNumeric, MethodologyDuration, MethodologyRating:
	default:
		return ErrInvalidMethodology
	}

	if methodology != MethodologyBoolean && target < 1 {
		return ErrInvalidTarget
	}

	return rec.Validate()
}

func NewHabit(ownerID, name, methodology, unit string, target int, rec Recurrence) (*Habit, error) {
	if ownerID == "" {
		return nil, ErrHabitInvalidOwner
	}

	if methodology == MethodologyBoolean {
		target = 1
	}

	if err := validateHabit(name, methodology, target, rec); err != nil {
		return nil, err
	}

	rec.Weekdays = normalizeWeekdays(rec.Weekdays)

	now := time.Now().UTC()

	return &Habit{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Recurrence:  rec,
		Methodology: methodology,
		TargetValue: target,
		Unit:        unit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (h *Habit) Update(name, methodology, unit string, target int, rec Recurrence) error {
	if h.ArchivedAt != nil {
		return ErrHabitArchived
	}

	if methodology == MethodologyBoolean {
		target = 1
	}

	if err := validateHabit(name, methodology, target, rec); err != nil {
		return err
	}

	rec.Weekdays = normalizeWeekdays(rec.Weekdays)

	h.Name = strings.TrimSpace(name)
	h.Methodology = methodology
	h.Unit = unit
	h.TargetValue = target
	h.Recurrence = rec
	h.UpdatedAt = time.Now().UTC()

	return nil
}

// IsArchived reports whether the habit has been soft-archived. Archived
// habits stay on disk while challenges still reference them; they simply
// stop earning day credit.
func (h *Habit) IsArchived() bool {
	return h.ArchivedAt != nil
}

func (h *Habit) Archive() {
	if h.ArchivedAt != nil {
		return
	}

	now := time.Now().UTC()
	h.ArchivedAt = &now
	h.UpdatedAt = now
}

func (h *Habit) Restore() {
	if h.ArchivedAt == nil {
		return
	}
	h.ArchivedAt = nil
	h.UpdatedAt = time.Now().UTC()
}
