// Package consistency turns per-day habit check-ins into calendar views and
// rolling consistency percentages. Like the moderation core it is pure: the
// reference day is always a parameter and no storage is touched.
package consistency

import (
	"errors"
	"math"
	"time"
)

// CheckField names one of the three daily habit booleans.
type CheckField string

const (
	FieldAteHealthy CheckField = "ate_healthy"
	FieldTrained    CheckField = "trained"
	FieldDrankWater CheckField = "drank_water"
)

// ErrUnknownField is returned by ToggleCheck for a field name outside the
// three habit booleans.
var ErrUnknownField = errors.New("unknown check-in field")

// DailyLog is one user's check-ins for one calendar day. At most one record
// exists per (user, date); a missing record means zero checks for that day.
type DailyLog struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Date       time.Time `json:"date" bson:"date"`
	AteHealthy bool      `json:"ate_healthy" bson:"ate_healthy"`
	Trained    bool      `json:"trained" bson:"trained"`
	DrankWater bool      `json:"drank_water" bson:"drank_water"`
	Note       string    `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// CompletedCount is the number of true booleans, 0-3.
func (l DailyLog) CompletedCount() int {
	n := 0
	for _, b := range []bool{l.AteHealthy, l.Trained, l.DrankWater} {
		if b {
			n++
		}
	}
	return n
}

// FullyChecked reports whether all three habits are checked.
func (l DailyLog) FullyChecked() bool { return l.CompletedCount() == 3 }

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ToggleCheck flips exactly one field on today's log and returns the record
// to upsert. When existing is nil a zero-initialized log for now's date is
// created first, so the first toggle of a day yields one checked field and
// two unchecked ones.
func ToggleCheck(existing *DailyLog, field CheckField, now time.Time) (DailyLog, error) {
	var log DailyLog
	if existing != nil {
		log = *existing
	} else {
		log = DailyLog{Date: DateOnly(now), CreatedAt: now.UTC()}
	}

	switch field {
	case FieldAteHealthy:
		log.AteHealthy = !log.AteHealthy
	case FieldTrained:
		log.Trained = !log.Trained
	case FieldDrankWater:
		log.DrankWater = !log.DrankWater
	default:
		return DailyLog{}, ErrUnknownField
	}

	log.UpdatedAt = now.UTC()
	return log, nil
}

// CalendarEntry is one day in the calendar strip.
type CalendarEntry struct {
	Date       time.Time `json:"date"`
	AteHealthy bool      `json:"ate_healthy"`
	Trained    bool      `json:"trained"`
	DrankWater bool      `json:"drank_water"`
	Completed  int       `json:"completed"`
	HasLog     bool      `json:"has_log"`
}

// Calendar is a fixed-size window of days ending at the reference day.
// Duplicates counts dates for which more than one log existed in the input;
// it is a data-quality signal, the entries themselves use the most recently
// updated record per date.
type Calendar struct {
	Entries    []CalendarEntry `json:"entries"`
	Duplicates int             `json:"duplicates,omitempty"`
}

// latestPerDate collapses logs onto their calendar date, last-updated wins.
func latestPerDate(logs []DailyLog) (map[time.Time]DailyLog, int) {
	byDate := make(map[time.Time]DailyLog, len(logs))
	duplicates := 0
	for _, l := range logs {
		key := DateOnly(l.Date)
		prev, ok := byDate[key]
		if !ok {
			byDate[key] = l
			continue
		}
		duplicates++
		if l.UpdatedAt.After(prev.UpdatedAt) {
			byDate[key] = l
		}
	}
	return byDate, duplicates
}

// BuildCalendar produces exactly windowDays entries, one per calendar day
// ending at today inclusive, oldest first. Days without a log yield
// Completed = 0. The function is total: no day is ever omitted.
func BuildCalendar(logs []DailyLog, windowDays int, today time.Time) Calendar {
	if windowDays <= 0 {
		return Calendar{Entries: []CalendarEntry{}}
	}

	byDate, duplicates := latestPerDate(logs)
	end := DateOnly(today)

	entries := make([]CalendarEntry, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		entry := CalendarEntry{Date: day}
		if l, ok := byDate[day]; ok {
			entry.AteHealthy = l.AteHealthy
			entry.Trained = l.Trained
			entry.DrankWater = l.DrankWater
			entry.Completed = l.CompletedCount()
			entry.HasLog = true
		}
		entries = append(entries, entry)
	}
	return Calendar{Entries: entries, Duplicates: duplicates}
}

// Percentage is the share of days in the window where all three habits were
// checked, rounded to the nearest integer, 0-100. The denominator is always
// the fixed window size (7 or 30), even when the account is younger than the
// window; new accounts showing low consistency until history accumulates is
// intended behavior, not a bug.
func Percentage(logs []DailyLog, windowDays int, today time.Time) int {
	if windowDays <= 0 {
		return 0
	}

	byDate, _ := latestPerDate(logs)
	end := DateOnly(today)
	start := end.AddDate(0, 0, -(windowDays - 1))

	full := 0
	for date, l := range byDate {
		if date.Before(start) || date.After(end) {
			continue
		}
		if l.FullyChecked() {
			full++
		}
	}
	return int(math.Round(float64(full) / float64(windowDays) * 100))
}
