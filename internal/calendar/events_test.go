package calendar

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brmlabs/renewal-calendar/constants"
	"github.com/brmlabs/renewal-calendar/internal/entity"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestComputeNoticeDeadline(t *testing.T) {
	got := ComputeNoticeDeadline(datePtr(2025, time.January, 1), intPtr(60))
	require.NotNil(t, got)
	require.Equal(t, date(2024, time.November, 2), *got)
}

func TestComputeNoticeDeadlineAbsentInputs(t *testing.T) {
	require.Nil(t, ComputeNoticeDeadline(nil, intPtr(60)))
	require.Nil(t, ComputeNoticeDeadline(datePtr(2025, time.January, 1), nil))
	require.Nil(t, ComputeNoticeDeadline(nil, nil))
}

func TestComputeNoticeDeadlineIsIdempotent(t *testing.T) {
	renewal := datePtr(2025, time.March, 15)
	days := intPtr(30)

	first := ComputeNoticeDeadline(renewal, days)
	second := ComputeNoticeDeadline(renewal, days)
	require.Equal(t, *first, *second)
}

func TestDeriveEventsFullContract(t *testing.T) {
	c := &entity.Contract{
		ID:             uuid.New(),
		FileName:       "acme.pdf",
		DisplayName:    strPtr("Acme, Inc."),
		EndDate:        datePtr(2025, time.January, 1),
		RenewalDate:    datePtr(2025, time.January, 1),
		NoticeDeadline: datePtr(2024, time.November, 2),
	}

	events := DeriveEvents([]*entity.Contract{c})
	require.Len(t, events, 2) // renewal supersedes expiration

	require.Equal(t, fmt.Sprintf("notice_deadline_%s", c.ID), events[0].ID)
	require.Equal(t, constants.EventNoticeDeadline, events[0].Kind)
	require.Equal(t, "Acme, Inc. — Notice Deadline", events[0].Title)
	require.Equal(t, date(2024, time.November, 2), events[0].Date)

	require.Equal(t, fmt.Sprintf("renewal_date_%s", c.ID), events[1].ID)
	require.Equal(t, constants.EventRenewalDate, events[1].Kind)
	require.Equal(t, "Acme, Inc. — Renewal Date", events[1].Title)
}

func TestDeriveEventsExpirationOnlyWithoutRenewal(t *testing.T) {
	c := &entity.Contract{
		ID:       uuid.New(),
		FileName: "lease_2024.pdf",
		EndDate:  datePtr(2025, time.June, 30),
	}

	events := DeriveEvents([]*entity.Contract{c})
	require.Len(t, events, 1)
	require.Equal(t, constants.EventExpiration, events[0].Kind)
	require.Equal(t, fmt.Sprintf("expiration_%s", c.ID), events[0].ID)
	// no display name set, so the file stem is used
	require.Equal(t, "lease_2024 — Expiration", events[0].Title)
}

func TestDeriveEventsNoDatesNoEvents(t *testing.T) {
	c := &entity.Contract{ID: uuid.New(), FileName: "empty.pdf"}
	require.Empty(t, DeriveEvents([]*entity.Contract{c}))
}

func TestDeriveEventsIdempotent(t *testing.T) {
	c := &entity.Contract{
		ID:          uuid.New(),
		FileName:    "acme.pdf",
		RenewalDate: datePtr(2025, time.January, 1),
	}

	first := DeriveEvents([]*entity.Contract{c})
	second := DeriveEvents([]*entity.Contract{c})
	require.Equal(t, first, second)
}
