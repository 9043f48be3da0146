package domain

import "time"

// Sale records a single completed sale attributed to a user.
type Sale struct {
	ID     string    `json:"id" bson:"_id,omitempty"`
	Amount float64   `json:"amount" bson:"amount"`
	Date   time.Time `json:"date" bson:"date"`
	UserID string    `json:"user_id" bson:"user_id"`
}

// SalesPeriod selects a reporting window anchored at the current day.
type SalesPeriod string

const (
	PeriodDay   SalesPeriod = "day"
	PeriodWeek  SalesPeriod = "week"
	PeriodMonth SalesPeriod = "month"
)

// Range returns the inclusive [start, end] window for the period,
// anchored at now. Weeks start on Sunday, matching the reporting UI.
func (p SalesPeriod) Range(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch p {
	case PeriodWeek:
		start := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
		return start, start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	default:
		return dayStart, dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
}
