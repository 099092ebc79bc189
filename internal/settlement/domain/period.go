package settlement

import "time"

const (
	dayKeyLayout  = "20060102"
	timeKeyLayout = "20060102T150405"
)

// Period is a half-open settlement window [Start, End) in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod builds a period from explicit bounds.
func NewPeriod(start, end time.Time) (Period, error) {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start.UTC(), End: end.UTC()}, nil
}

// DayPeriod builds the period covering the calendar day of the given time.
func DayPeriod(day time.Time) (Period, error) {
	if day.IsZero() {
		return Period{}, ErrInvalidPeriod
	}
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 0, 1)}, nil
}

// Key returns the persisted uniqueness key for the window.
// Single calendar days keep the compact form used by daily batches;
// bounds off day boundaries keep their time component so distinct
// windows never collide on one key.
func (p Period) Key() string {
	if !p.Start.Equal(truncateDay(p.Start)) || !p.End.Equal(truncateDay(p.End)) {
		return p.Start.Format(timeKeyLayout) + "_" + p.End.Format(timeKeyLayout)
	}
	if p.End.Equal(p.Start.AddDate(0, 0, 1)) {
		return p.Start.Format(dayKeyLayout)
	}
	return p.Start.Format(dayKeyLayout) + "_" + p.End.Format(dayKeyLayout)
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
