package consistency_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubedasmusas/backend/internal/consistency"
)

var today = time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)

func fullLog(daysAgo int) consistency.DailyLog {
	d := consistency.DateOnly(today).AddDate(0, 0, -daysAgo)
	return consistency.DailyLog{
		Date:       d,
		AteHealthy: true,
		Trained:    true,
		DrankWater: true,
		UpdatedAt:  d,
	}
}

func TestToggleCheckCreatesZeroInitializedLog(t *testing.T) {
	log, err := consistency.ToggleCheck(nil, consistency.FieldTrained, today)
	require.NoError(t, err)

	assert.True(t, log.Trained)
	assert.False(t, log.AteHealthy)
	assert.False(t, log.DrankWater)
	assert.Equal(t, consistency.DateOnly(today), log.Date)
}

func TestToggleCheckFlipsOnlyOneField(t *testing.T) {
	existing := &consistency.DailyLog{
		Date:       consistency.DateOnly(today),
		AteHealthy: true,
		Trained:    true,
		Note:       "leg day",
	}

	log, err := consistency.ToggleCheck(existing, consistency.FieldTrained, today)
	require.NoError(t, err)

	assert.False(t, log.Trained, "toggling an on field turns it off")
	assert.True(t, log.AteHealthy, "other fields stay as recorded")
	assert.Equal(t, "leg day", log.Note)
}

func TestToggleCheckUnknownField(t *testing.T) {
	_, err := consistency.ToggleCheck(nil, consistency.CheckField("slept_well"), today)
	assert.ErrorIs(t, err, consistency.ErrUnknownField)
}

func TestBuildCalendarAlwaysReturnsWindowDays(t *testing.T) {
	cal := consistency.BuildCalendar(nil, 7, today)
	require.Len(t, cal.Entries, 7)
	for _, e := range cal.Entries {
		assert.Equal(t, 0, e.Completed)
		assert.False(t, e.HasLog)
	}

	// Oldest to newest, ending at today.
	assert.Equal(t, consistency.DateOnly(today), cal.Entries[6].Date)
	assert.Equal(t, consistency.DateOnly(today).AddDate(0, 0, -6), cal.Entries[0].Date)
}

func TestBuildCalendarCountsChecks(t *testing.T) {
	logs := []consistency.DailyLog{
		fullLog(0),
		{Date: consistency.DateOnly(today).AddDate(0, 0, -2), Trained: true},
	}

	cal := consistency.BuildCalendar(logs, 7, today)
	require.Len(t, cal.Entries, 7)
	assert.Equal(t, 3, cal.Entries[6].Completed)
	assert.Equal(t, 1, cal.Entries[4].Completed)
	assert.Equal(t, 0, cal.Entries[5].Completed)
}

func TestBuildCalendarDuplicateDatesLastUpdatedWins(t *testing.T) {
	date := consistency.DateOnly(today)
	older := consistency.DailyLog{Date: date, Trained: true, UpdatedAt: today.Add(-2 * time.Hour)}
	newer := consistency.DailyLog{Date: date, AteHealthy: true, DrankWater: true, UpdatedAt: today.Add(-time.Hour)}

	cal := consistency.BuildCalendar([]consistency.DailyLog{older, newer}, 7, today)
	last := cal.Entries[6]
	assert.Equal(t, 2, last.Completed, "the most recently updated record wins")
	assert.False(t, last.Trained)
	assert.Equal(t, 1, cal.Duplicates)
}

func TestPercentageThreeOfSeven(t *testing.T) {
	logs := []consistency.DailyLog{fullLog(0), fullLog(1), fullLog(3)}
	// 3/7 = 42.857..., rounded to 43.
	assert.Equal(t, 43, consistency.Percentage(logs, 7, today))
}

func TestPercentageFixedDenominatorForNewAccounts(t *testing.T) {
	// Only one day of history, still divided by the full window.
	logs := []consistency.DailyLog{fullLog(0)}
	assert.Equal(t, 14, consistency.Percentage(logs, 7, today))
	assert.Equal(t, 3, consistency.Percentage(logs, 30, today))
}

func TestPercentageIgnoresDaysOutsideWindow(t *testing.T) {
	logs := []consistency.DailyLog{fullLog(0), fullLog(7), fullLog(10)}
	assert.Equal(t, 14, consistency.Percentage(logs, 7, today))
}

func TestPercentagePartialDaysDoNotCount(t *testing.T) {
	logs := []consistency.DailyLog{
		{Date: consistency.DateOnly(today), Trained: true, DrankWater: true},
	}
	assert.Equal(t, 0, consistency.Percentage(logs, 7, today))
}

func TestPercentageEmpty(t *testing.T) {
	assert.Equal(t, 0, consistency.Percentage(nil, 7, today))
	assert.Equal(t, 0, consistency.Percentage(nil, 0, today))
}
