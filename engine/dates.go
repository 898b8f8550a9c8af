package engine

import (
	"time"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

// DateLayout is the canonical calendar-date form used for every log date,
// completion row and streak field. Days are always user-local calendar
// dates; UTC-midnight day boundaries are never used.
const DateLayout = "2006-01-02"

// Normalizer converts UTC-stored instants into user-local calendar dates.
type Normalizer struct {
	Fallback *time.Location
}

// NewNormalizer builds a Normalizer with the given fallback zone name.
// An empty or unknown name falls back to UTC.
func NewNormalizer(fallback string) Normalizer {
	loc := time.UTC
	if fallback != "" {
		if l, err := time.LoadLocation(fallback); err == nil {
			loc = l
		}
	}
	return Normalizer{Fallback: loc}
}

// LocalDate renders an instant as the YYYY-MM-DD calendar date in the given
// IANA zone. A malformed zone falls back to the configured default with a
// warning; one user's bad timezone string must never fail a scoring pass.
func (n Normalizer) LocalDate(instant time.Time, tz string) string {
	loc := n.Fallback
	if loc == nil {
		loc = time.UTC
	}
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else if utils.Sugar != nil {
			utils.Sugar.Warnf("unknown timezone %q, falling back to %s: %v", tz, loc, err)
		}
	}
	return instant.In(loc).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as UTC midnight. Parsing at UTC keeps
// day arithmetic exact; DST shifts cannot make a "day" 23 or 25 hours here.
func ParseDate(date string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, time.UTC)
}

// AddDays shifts a date string by n calendar days. Unparseable input is
// returned unchanged.
func AddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// DaysBetween returns b minus a in whole days, negative when b is earlier.
// Unparseable input yields 0.
func DaysBetween(a, b string) int {
	ta, err := ParseDate(a)
	if err != nil {
		return 0
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// WeekdayOf returns the weekday of a date string, Sunday on parse failure.
func WeekdayOf(date string) time.Weekday {
	t, err := ParseDate(date)
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}
