package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date. The zero value marks a record whose date was
// blank or unparseable; such records still flow through the aggregation
// engine (they collapse into the empty-key month bucket).
type Date struct {
	time.Time
}

// Accepted input layouts, tried in order. Mixed formats are normalized
// here so date comparisons are by calendar value, never by raw string.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate is tolerant: an empty or unparseable string yields the zero
// Date without an error.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return Date{}
}

func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String renders ISO "YYYY-MM-DD", or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// MonthKey returns the "YYYY-MM" bucket key, or "" for the zero date.
// The empty key is a sentinel bucket that sorts before all real months.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// Before and After compare by calendar date; both bounds of a range
// check are inclusive at the call sites.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*d = Date{}
		return nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		// Tolerate non-string dates the same way as unparseable ones.
		*d = Date{}
		return nil
	}
	*d = ParseDate(unquoted)
	return nil
}

// monthNames is the 12-entry, 1-indexed month lookup used for chart
// labels, kept in Arabic as in the shop's UI.
var monthNames = [12]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// MonthLabel turns a "YYYY-MM" key into "<month name> <year>". The
// empty sentinel key labels as "" and must render without crashing.
func MonthLabel(key string) string {
	year, month, ok := splitMonthKey(key)
	if !ok {
		return ""
	}
	return monthNames[month-1] + " " + strconv.Itoa(year)
}

func splitMonthKey(key string) (year, month int, ok bool) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
