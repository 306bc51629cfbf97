package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound     = errors.New("completion entry not found")
	ErrEntryInvalid      = errors.New("invalid completion entry data")
	ErrEntryValueMissing = errors.New("non-boolean habit requires a value")
)

// CompletionEntry is one cell of the completion ledger. Exactly one entry
// may exist per (HabitID, EntryDate); writes are upserts, never appends.
type CompletionEntry struct {
	ID      string `json:"id" db:"id"`
	HabitID string `json:"habit_id" db:"habit_id"`
	UserID  string `json:"user_id" db:"user_id"`

	// EntryDate is the calendar day the completion belongs to, normalized
	// to UTC midnight by the caller before it reaches the engine.
	EntryDate time.Time `json:"entry_date" db:"entry_date"`
	Completed bool      `json:"completed" db:"completed"`
	Value     int       `json:"value" db:"value"`

	// RecordedAt is the wall-clock moment the user logged the completion.
	// It is what grace-period coverage is judged against, and is distinct
	// from EntryDate: a Tuesday run logged Wednesday morning still belongs
	// to Tuesday.
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewCompletionEntry(habitID, userID string, entryDate time.Time, completed bool, value int) *CompletionEntry {
	now := time.Now().UTC()

	return &CompletionEntry{
		ID:         uuid.NewString(),
		HabitID:    habitID,
		UserID:     userID,
		EntryDate:  DayOf(entryDate),
		Completed:  completed,
		Value:      value,
		RecordedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (e *CompletionEntry) Validate() error {
	if strings.TrimSpace(e.HabitID) == "" {
		return errors.New("habit_id is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("user_id is required")
	}
	if e.Value < 0 {
		return errors.New("value cannot be negative")
	}
	if e.EntryDate.IsZero() {
		return errors.New("entry_date is required")
	}
	return nil
}

// Qualifies reports whether the entry satisfies the habit's methodology:
// boolean habits need Completed, everything else needs Value >= target.
func (e *CompletionEntry) Qualifies(h *Habit) bool {
	return e.QualifiesWithMinimum(h, 0)
}

// QualifiesWithMinimum additionally enforces a challenge-level minimum
// daily value on top of the habit's own target. A zero minimum means the
// challenge imposes nothing extra.
func (e *CompletionEntry) QualifiesWithMinimum(h *Habit, minimum int) bool {
	if h == nil {
		return false
	}

	if h.Methodology == MethodologyBoolean {
		return e.Completed
	}

	if e.Value < h.TargetValue {
		return false
	}
	return e.Value >= minimum
}

// DayOf truncates a timestamp to its UTC calendar day. All ledger math in
// the engine operates on these normalized days.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DayKey renders a normalized day as a map key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
