package models

import "time"

// DateLayout is the calendar-day key format for daily mood records.
const DateLayout = "2006-01-02"

// DailyMood records the mood for one calendar day. At most one row
// exists per day; the latest write wins.
type DailyMood struct {
	Date      string    `db:"date" json:"date"`
	Mood      string    `db:"mood" json:"mood"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// TableName returns the table name for DailyMood.
func (DailyMood) TableName() string {
	return "daily_moods"
}

// Day returns the calendar-day key for t in local time.
func Day(t time.Time) string {
	return t.Format(DateLayout)
}
