package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brmlabs/renewal-calendar/internal/calendar"
	"github.com/brmlabs/renewal-calendar/internal/entity"
)

// CalendarMailer delivers a serialized calendar; wired to the SMTP sender
// in production.
type CalendarMailer interface {
	SendCalendar(to []string, ics string, filename string) error
}

type CalendarHandler struct {
	store  ContractStore
	mailer CalendarMailer
	logger *slog.Logger
}

func NewCalendarHandler(store ContractStore, mailer CalendarMailer, logger *slog.Logger) *CalendarHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarHandler{store: store, mailer: mailer, logger: logger}
}

// Events returns the derived calendar events for all contracts. Events are
// recomputed on every read and never stored.
func (h *CalendarHandler) Events(c *gin.Context) {
	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}
	events := calendar.DeriveEvents(contracts)
	if events == nil {
		events = []entity.CalendarEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ICS exports the calendar as a downloadable .ics file. The optional
// reminder_days query parameter adds a display alarm that many days before
// each event.
func (h *CalendarHandler) ICS(c *gin.Context) {
	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}

	reminderDays := 0
	if raw := c.Query("reminder_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorEnvelope("bad_request", "reminder_days must be an integer"))
			return
		}
		reminderDays = n
	}

	events := calendar.DeriveEvents(contracts)
	ics := calendar.GenerateICS(events, reminderDays)

	c.Header("Content-Disposition", "attachment; filename="+calendar.ICSFilename)
	c.Data(http.StatusOK, calendar.ICSContentType, []byte(ics))
}

type emailCalendarRequest struct {
	To           []string `json:"to" binding:"required,min=1,dive,email"`
	ReminderDays *int     `json:"reminder_days"`
}

// Email sends the serialized calendar to the given recipients as a
// text/calendar attachment.
func (h *CalendarHandler) Email(c *gin.Context) {
	var req emailCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorEnvelope("validation_error", err.Error()))
		return
	}

	contracts, err := h.store.ListContracts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to list contracts"))
		return
	}

	reminderDays := 0
	if req.ReminderDays != nil {
		reminderDays = *req.ReminderDays
	}
	events := calendar.DeriveEvents(contracts)
	ics := calendar.GenerateICS(events, reminderDays)

	if err := h.mailer.SendCalendar(req.To, ics, calendar.ICSFilename); err != nil {
		h.logger.Error("calendar.email_failed", "recipients", len(req.To), "error", err)
		c.JSON(http.StatusInternalServerError, errorEnvelope("internal", "failed to send calendar email"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
