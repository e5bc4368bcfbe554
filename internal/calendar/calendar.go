// Package calendar provides the civil-date arithmetic used by gather rules.
//
// A [Date] is a plain proleptic Gregorian calendar date with no time of day
// and no zone. Everything derived from a date (day offset, weekday, month)
// is computed relative to a "today" supplied by the caller, so the same card
// can land in different columns on different days.
//
// The package has no dependencies beyond the standard library and no state.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar date. Month is 1-12, Day is 1-31.
type Date struct {
	Year  int
	Month int
	Day   int
}

var weekdayAbbrevs = [...]string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

var monthAbbrevs = [...]string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// New returns the date for year, month, day without validating it.
// Use [Parse] for untrusted input.
func New(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime returns the calendar date of t in t's own location.
// Pass time.Now() to get the host's local "today".
func FromTime(t time.Time) Date {
	y, m, d := t.Date()

	return Date{Year: y, Month: int(m), Day: d}
}

// Parse parses YYYY-M-D or YYYY-MM-DD. The year must have exactly four
// digits, month and day one or two. Dates that do not exist (2025-02-30)
// are rejected.
func Parse(s string) (Date, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, false
	}

	if len(parts[0]) != 4 || !isDigits(parts[0]) {
		return Date{}, false
	}

	for _, p := range parts[1:] {
		if len(p) < 1 || len(p) > 2 || !isDigits(p) {
			return Date{}, false
		}
	}

	year, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	day, _ := strconv.Atoi(parts[2])

	d := Date{Year: year, Month: month, Day: day}
	if !d.Valid() {
		return Date{}, false
	}

	return d, true
}

// Valid reports whether d names an existing calendar day.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}

	return d.Day <= daysIn(d.Year, d.Month)
}

// DayNumber returns the number of days since 1970-01-01 (negative before).
func (d Date) DayNumber() int {
	y := d.Year
	if d.Month <= 2 {
		y--
	}

	era := y
	if era < 0 {
		era -= 399
	}

	era /= 400

	yoe := y - era*400

	mp := d.Month + 9
	if d.Month > 2 {
		mp = d.Month - 3
	}

	doy := (153*mp+2)/5 + d.Day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy

	return era*146097 + doe - 719468
}

// Offset returns the signed number of days from today to d.
// Tomorrow is 1, yesterday is -1.
func (d Date) Offset(today Date) int {
	return d.DayNumber() - today.DayNumber()
}

// WeekdayNum returns the ISO weekday: Monday=1 ... Sunday=7.
func (d Date) WeekdayNum() int {
	// 1970-01-01 was a Thursday (4).
	n := (d.DayNumber() + 3) % 7
	if n < 0 {
		n += 7
	}

	return n + 1
}

// WeekdayAbbrev returns mon ... sun.
func (d Date) WeekdayAbbrev() string {
	return weekdayAbbrevs[d.WeekdayNum()-1]
}

// MonthAbbrev returns jan ... dec, or "" for an invalid month.
func (d Date) MonthAbbrev() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}

	return monthAbbrevs[d.Month-1]
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// WeekdayNumber maps a 3-letter weekday abbreviation (any case) to its ISO number.
func WeekdayNumber(abbrev string) (int, bool) {
	return lookup(weekdayAbbrevs[:], abbrev)
}

// MonthNumber maps a 3-letter month abbreviation (any case) to 1-12.
func MonthNumber(abbrev string) (int, bool) {
	return lookup(monthAbbrevs[:], abbrev)
}

// WeekdayName returns the abbreviation for an ISO weekday number, or "".
func WeekdayName(num int) string {
	if num < 1 || num > 7 {
		return ""
	}

	return weekdayAbbrevs[num-1]
}

// MonthName returns the abbreviation for a month number, or "".
func MonthName(num int) string {
	return Date{Month: num}.MonthAbbrev()
}

func lookup(table []string, abbrev string) (int, bool) {
	abbrev = strings.ToLower(abbrev)

	for i, name := range table {
		if name == abbrev {
			return i + 1, true
		}
	}

	return 0, false
}

func daysIn(year, month int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}

		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func isDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
