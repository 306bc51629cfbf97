package http_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strovahq/challenge-engine/internal/core/domain"
)

func TestGetWindowStats(t *testing.T) {
	t.Run("Success: 200 with per-habit consistency", func(t *testing.T) {
		app := newTestApp()
		h := app.mustCreateHabit(t, "user-1", "Journal", domain.Recurrence{Type: domain.RecurrenceDaily})

		end := time.Now().UTC()
		start := end.AddDate(0, 0, -6)

		// Check 3 of the last 7 days.
		for _, offset := range []int{0, -2, -4} {
			day := end.AddDate(0, 0, offset).Format("2006-01-02")
			require.Equal(t, http.StatusCreated, app.do(t, "POST", "/api/v1/habits/"+h.ID+"/entries", "user-1", map[string]interface{}{
				"entry_date": day,
				"completed":  true,
			}).Code)
		}

		path := fmt.Sprintf("/api/v1/stats?start_date=%s&end_date=%s",
			start.Format("2006-01-02"), end.Format("2006-01-02"))

		w := app.do(t, "GET", path, "user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, float64(1), body["total_habits"])

		habitStats := body["habits"].([]interface{})
		require.Len(t, habitStats, 1)

		hs := habitStats[0].(map[string]interface{})
		assert.Equal(t, "Journal", hs["habit_name"])
		assert.Equal(t, float64(3), hs["days_completed"])
		assert.InDelta(t, 42.9, hs["completion_rate"].(float64), 0.01)
	})

	t.Run("Archived habits are excluded", func(t *testing.T) {
		app := newTestApp()
		h := app.mustCreateHabit(t, "user-1", "Old habit", domain.Recurrence{Type: domain.RecurrenceDaily})
		require.Equal(t, http.StatusNoContent, app.do(t, "POST", "/api/v1/habits/"+h.ID+"/archive", "user-1", nil).Code)

		w := app.do(t, "GET", "/api/v1/stats", "user-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		body := decodeBody(t, w)
		assert.Empty(t, body["habits"])
	})

	t.Run("Fail: 400 inverted range", func(t *testing.T) {
		app := newTestApp()

		w := app.do(t, "GET", "/api/v1/stats?start_date=2026-05-10&end_date=2026-05-01", "user-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
