package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gatewatch/gatewatch-go/internal/datastore"
)

// History query bounds. Requests outside them are clamped, not rejected.
const (
	defaultHistoryDays = 7
	maxHistoryDays     = 365
)

// CurrentResponse is the live headcount.
type CurrentResponse struct {
	Onsite    int       `json:"onsite"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionResponse is one open attendance session.
type SessionResponse struct {
	ID            uint      `json:"id"`
	EntryTime     time.Time `json:"entry_time"`
	EntryCamera   string    `json:"entry_camera"`
	MinutesOnsite int       `json:"minutes_onsite"`
	Status        string    `json:"status"`
}

// SummaryResponse is one day of aggregates.
type SummaryResponse struct {
	Date                  string     `json:"date"`
	TotalEntries          int        `json:"total_entries"`
	TotalExits            int        `json:"total_exits"`
	CurrentOnsite         int        `json:"current_onsite"`
	PeakOnsite            int        `json:"peak_onsite"`
	PeakTime              *time.Time `json:"peak_time,omitempty"`
	TotalPersonMinutes    int        `json:"total_person_minutes"`
	AverageHoursPerPerson float64    `json:"average_hours_per_person"`
}

// CurrentOnsite handles GET /api/v1/attendance/current
func (c *Controller) CurrentOnsite(ctx echo.Context) error {
	onsite, err := c.attendance.CurrentOnsiteCount()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read onsite counter", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, CurrentResponse{
		Onsite:    onsite,
		Timestamp: time.Now(),
	})
}

// ActiveSessions handles GET /api/v1/attendance/sessions/active
func (c *Controller) ActiveSessions(ctx echo.Context) error {
	sessions, err := c.attendance.ActiveSessions()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list active sessions", http.StatusInternalServerError)
	}

	now := time.Now()
	responses := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		responses = append(responses, sessionResponse(&sessions[i], now))
	}
	return ctx.JSON(http.StatusOK, responses)
}

// TodaySummary handles GET /api/v1/attendance/summary/today. A day without
// activity yields a zero-valued summary, not a 404.
func (c *Controller) TodaySummary(ctx echo.Context) error {
	summary, err := c.attendance.TodaySummary()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read today's summary", http.StatusInternalServerError)
	}
	if summary == nil {
		now := time.Now()
		summary = &datastore.DailySummary{
			Date: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		}
	}
	return ctx.JSON(http.StatusOK, summaryResponse(summary))
}

// SummaryHistory handles GET /api/v1/attendance/summary/history?days=N
func (c *Controller) SummaryHistory(ctx echo.Context) error {
	days := defaultHistoryDays
	if raw := ctx.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
		}
		days = parsed
	}
	if days < 1 {
		days = 1
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}

	summaries, err := c.attendance.SummaryHistory(days)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read summary history", http.StatusInternalServerError)
	}

	responses := make([]SummaryResponse, 0, len(summaries))
	for i := range summaries {
		responses = append(responses, summaryResponse(&summaries[i]))
	}
	return ctx.JSON(http.StatusOK, responses)
}

func sessionResponse(s *datastore.AttendanceSession, now time.Time) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		EntryTime:     s.EntryTime,
		EntryCamera:   s.EntryCamera,
		MinutesOnsite: int(now.Sub(s.EntryTime).Minutes()),
		Status:        s.Status,
	}
}

func summaryResponse(s *datastore.DailySummary) SummaryResponse {
	return SummaryResponse{
		Date:                  s.Date.Format("2006-01-02"),
		TotalEntries:          s.TotalEntries,
		TotalExits:            s.TotalExits,
		CurrentOnsite:         s.CurrentOnsite,
		PeakOnsite:            s.PeakOnsite,
		PeakTime:              s.PeakTime,
		TotalPersonMinutes:    s.TotalPersonMinutes,
		AverageHoursPerPerson: s.AverageHoursPerPerson(),
	}
}
