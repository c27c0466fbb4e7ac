package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/entity"
)

const (
	// ICSFilename is the fixed download name for the exported calendar.
	ICSFilename = "brm-renewal-calendar.ics"
	// ICSContentType is the media type of the exported calendar.
	ICSContentType = "text/calendar"

	uidSuffix = "@brm-renewal-calendar"
)

// clock is swappable so tests can pin DTSTAMP.
var clock = time.Now

// GenerateICS renders events into iCalendar interchange text, one VEVENT per
// input event in input order. If reminderDays is positive, each event gets a
// display alarm firing that many days before the all-day start. Lines are
// CRLF-terminated; consumers of the format reject bare LF.
func GenerateICS(events []entity.CalendarEvent, reminderDays int) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//BRM//Renewal Calendar//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:BRM Contract Renewals",
		"X-WR-CALDESC:Contract renewal dates and notice deadlines",
	}

	stamp := clock().UTC().Format("20060102T150405Z")

	for _, event := range events {
		dateStr := event.Date.Format("20060102")

		priority := "5"
		if event.Kind == constants.EventNoticeDeadline {
			priority = "1"
		}

		lines = append(lines,
			"BEGIN:VEVENT",
			fmt.Sprintf("UID:%s%s", event.ID, uidSuffix),
			fmt.Sprintf("DTSTART;VALUE=DATE:%s", dateStr),
			fmt.Sprintf("DTEND;VALUE=DATE:%s", dateStr),
			fmt.Sprintf("DTSTAMP:%s", stamp),
			fmt.Sprintf("SUMMARY:%s", event.Title),
			fmt.Sprintf("DESCRIPTION:%s", event.Subtitle),
			fmt.Sprintf("PRIORITY:%s", priority),
			"STATUS:CONFIRMED",
			"TRANSP:TRANSPARENT",
		)
		lines = append(lines, alarmBlock(reminderDays)...)
		lines = append(lines, "END:VEVENT")
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n")
}

// alarmBlock returns a VALARM firing reminderDays before the all-day event
// start, or nothing for a zero or negative lead time.
func alarmBlock(reminderDays int) []string {
	if reminderDays <= 0 {
		return nil
	}
	minutes := reminderDays * 24 * 60
	return []string{
		"BEGIN:VALARM",
		fmt.Sprintf("TRIGGER:-PT%dM", minutes),
		"ACTION:DISPLAY",
		"DESCRIPTION:Reminder",
		"END:VALARM",
	}
}
