package calendar

import (
	"fmt"
	"time"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/entity"
)

// ComputeNoticeDeadline derives the notice deadline as a pure function of
// renewal date and notice period: renewal_date minus notice_period_days.
// Absent inputs yield an absent deadline; it is never set independently.
func ComputeNoticeDeadline(renewalDate *time.Time, noticePeriodDays *int) *time.Time {
	if renewalDate == nil || noticePeriodDays == nil {
		return nil
	}
	d := renewalDate.AddDate(0, 0, -*noticePeriodDays)
	return &d
}

// DeriveEvents produces calendar events for a list of contracts. Event ids
// are deterministic (`<kind>_<record id>`) so re-derivation over the same
// records is idempotent. A contract that renews does not also expire: the
// expiration event is emitted only when no renewal date is set.
func DeriveEvents(contracts []*entity.Contract) []entity.CalendarEvent {
	var events []entity.CalendarEvent

	for _, c := range contracts {
		displayName := c.Display()

		if c.NoticeDeadline != nil {
			events = append(events, entity.CalendarEvent{
				ID:         eventID(constants.EventNoticeDeadline, c),
				ContractID: c.ID,
				Date:       *c.NoticeDeadline,
				Kind:       constants.EventNoticeDeadline,
				Title:      displayName + " — Notice Deadline",
				Subtitle:   "Last day to provide renewal notice",
			})
		}

		if c.RenewalDate != nil {
			events = append(events, entity.CalendarEvent{
				ID:         eventID(constants.EventRenewalDate, c),
				ContractID: c.ID,
				Date:       *c.RenewalDate,
				Kind:       constants.EventRenewalDate,
				Title:      displayName + " — Renewal Date",
				Subtitle:   "Contract renewal date",
			})
		}

		if c.EndDate != nil && c.RenewalDate == nil {
			events = append(events, entity.CalendarEvent{
				ID:         eventID(constants.EventExpiration, c),
				ContractID: c.ID,
				Date:       *c.EndDate,
				Kind:       constants.EventExpiration,
				Title:      displayName + " — Expiration",
				Subtitle:   "Contract expiration date",
			})
		}
	}

	return events
}

func eventID(kind constants.EventKind, c *entity.Contract) string {
	return fmt.Sprintf("%s_%s", kind, c.ID)
}
