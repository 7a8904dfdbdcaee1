package core

import (
	"fmt"
	"time"
)

// Period is a calendar granularity used to bucket dated records.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// ParsePeriod validates a client-supplied period string.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodMonth, PeriodYear, PeriodAll:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}

// InPeriod reports whether t falls in the same calendar period as ref.
// Boundaries follow the times' locations, not fixed-duration windows.
func InPeriod(p Period, ref, t time.Time) bool {
	switch p {
	case PeriodDay:
		ry, rm, rd := ref.Date()
		ty, tm, td := t.Date()
		return ry == ty && rm == tm && rd == td
	case PeriodMonth:
		ry, rm, _ := ref.Date()
		ty, tm, _ := t.Date()
		return ry == ty && rm == tm
	case PeriodYear:
		return ref.Year() == t.Year()
	case PeriodAll:
		return true
	}
	return false
}
