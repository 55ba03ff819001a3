// Package calendar provides the precomputed simulation calendar: a contiguous
// table of dates covering the simulation window plus a 120-year historical
// epoch, with epi-week numbering for public-health reporting.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DayUnknown is the sentinel returned by lookups outside the calendar window.
const DayUnknown = 999999

// Days of the week, Sunday first.
const (
	Sunday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayOfWeekNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var monthNames = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

var daysInMonthTable = [2][13]int{
	{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
	{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31},
}

var doomsdayMonth = [2][13]int{
	{0, 31, 28, 7, 4, 9, 6, 11, 8, 5, 10, 7, 12},
	{0, 32, 29, 7, 4, 9, 6, 11, 8, 5, 10, 7, 12},
}

// Date is one precomputed calendar record.
type Date struct {
	Year       int
	Month      int
	DayOfMonth int
	DayOfWeek  int
	DayOfYear  int
	EpiWeek    int
	EpiYear    int
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.DayOfMonth)
}

// DayOfWeekString returns the three-letter day-of-week name.
func (d Date) DayOfWeekString() string {
	return dayOfWeekNames[d.DayOfWeek]
}

// Calendar is the precomputed date table for one simulation. The epoch is
// start_year - 120 so that historical lookups (birthdays) resolve without
// allocation.
type Calendar struct {
	dates    []Date
	simStart int // index of simulation day 0
	simDays  int // number of simulation days
}

// IsLeapYear reports whether year is a leap year.
func IsLeapYear(year int) bool {
	switch {
	case year%400 == 0:
		return true
	case year%100 == 0:
		return false
	case year%4 == 0:
		return true
	default:
		return false
	}
}

// DaysInMonth returns the number of days in the month for the given year.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	leap := 0
	if IsLeapYear(year) {
		leap = 1
	}
	return daysInMonthTable[leap][month]
}

func doomsdayCentury(year int) int {
	switch (year - year%100) % 400 {
	case 0:
		return 2
	case 100:
		return 0
	case 200:
		return 5
	case 300:
		return 3
	}
	return -1
}

// dayOfWeek computes the day of the week by the Doomsday rule.
func dayOfWeek(year, month, dayOfMonth int) int {
	leap := 0
	if IsLeapYear(year) {
		leap = 1
	}
	ddMonth := doomsdayMonth[leap][month]
	ddCentury := doomsdayCentury(year)
	century := year - year%100

	weekday := dayOfMonth
	if ddMonth > dayOfMonth {
		weekday = (7 - (ddMonth-dayOfMonth)%7) + ddMonth
	}
	x := (weekday - ddMonth) % 7
	y := (ddCentury + (year - century) + (year-century)/4) % 7
	return (x + y) % 7
}

// ParseDate parses "YYYY-MM-DD" or "YYYY-MMM-DD" (three-letter month).
func ParseDate(s string) (year, month, day int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("bad date %q", s)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q: %w", s, err)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		var ok bool
		month, ok = monthNames[parts[1]]
		if !ok {
			return 0, 0, 0, fmt.Errorf("bad date %q: unknown month %q", s, parts[1])
		}
	}
	day, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad date %q: %w", s, err)
	}
	if year < 1900 || year > 2200 || month < 1 || month > 12 ||
		day < 1 || day > DaysInMonth(year, month) {
		return 0, 0, 0, fmt.Errorf("bad date %q", s)
	}
	return year, month, day, nil
}

// Options selects the simulation window. EndDate is ignored when Days > 0.
type Options struct {
	StartDate string
	EndDate   string
	Days      int
}

// New builds the calendar table from a start date and either an end date or a
// day count.
func New(opts Options) (*Calendar, error) {
	startYear, startMonth, startDay, err := ParseDate(opts.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}

	var endYear, endMonth, endDay int
	if opts.Days <= 0 {
		endYear, endMonth, endDay, err = ParseDate(opts.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date: %w", err)
		}
		if dateCode(endYear, endMonth, endDay) < dateCode(startYear, startMonth, startDay) {
			return nil, fmt.Errorf("end_date %s is before start_date %s", opts.EndDate, opts.StartDate)
		}
	} else {
		endYear = startYear + 1 + opts.Days/365
	}

	epochYear := startYear - 120
	maxDays := 366 * (endYear - epochYear + 1)

	cal := &Calendar{
		dates:    make([]Date, maxDays),
		simStart: -1,
	}

	// Seed the epoch day, then roll the table forward one day at a time.
	jan1DOW := dayOfWeek(epochYear, 1, 1)
	first := Date{
		Year:       epochYear,
		Month:      1,
		DayOfMonth: 1,
		DayOfYear:  1,
		DayOfWeek:  jan1DOW,
	}
	dec31DOW := (jan1DOW + yearLengthMod(epochYear)) % 7
	var shortWeek bool
	if jan1DOW <= Wednesday {
		first.EpiWeek = 1
		first.EpiYear = epochYear
	} else {
		first.EpiWeek = 52
		first.EpiYear = epochYear - 1
		shortWeek = true
	}
	cal.dates[0] = first

	for i := 0; i+1 < maxDays; i++ {
		prev := cal.dates[i]
		next := Date{
			Year:       prev.Year,
			Month:      prev.Month,
			DayOfMonth: prev.DayOfMonth + 1,
			DayOfYear:  prev.DayOfYear + 1,
			DayOfWeek:  (prev.DayOfWeek + 1) % 7,
		}
		if next.DayOfMonth > DaysInMonth(next.Year, next.Month) {
			next.DayOfMonth = 1
			if next.Month < 12 {
				next.Month++
			} else {
				next.Year++
				next.Month = 1
				next.DayOfYear = 1
			}
		}

		switch {
		case next.Month == 1 && next.DayOfMonth == 1:
			jan1DOW = next.DayOfWeek
			dec31DOW = (jan1DOW + yearLengthMod(next.Year)) % 7
			if jan1DOW <= Wednesday {
				next.EpiWeek = 1
				next.EpiYear = next.Year
				shortWeek = false
			} else {
				next.EpiWeek = prev.EpiWeek
				next.EpiYear = prev.EpiYear
				shortWeek = true
			}
		case next.Month == 1 && shortWeek && next.DayOfMonth <= 7-jan1DOW:
			next.EpiWeek = prev.EpiWeek
			next.EpiYear = prev.EpiYear
		case next.Month == 12 && dec31DOW < Wednesday && 31-dec31DOW <= next.DayOfMonth:
			// the last partial week belongs to week 1 of the next year
			next.EpiWeek = 1
			next.EpiYear = next.Year + 1
		default:
			offset := 1
			if shortWeek {
				offset = 0
			}
			next.EpiWeek = offset + (jan1DOW+next.DayOfYear-1)/7
			next.EpiYear = next.Year
		}

		cal.dates[i+1] = next

		if prev.Year == startYear && prev.Month == startMonth && prev.DayOfMonth == startDay {
			cal.simStart = i
		}
		if opts.Days <= 0 && prev.Year == endYear && prev.Month == endMonth && prev.DayOfMonth == endDay {
			cal.simDays = i - cal.simStart + 1
		}
	}

	if cal.simStart < 0 {
		return nil, errors.New("start_date outside calendar window")
	}
	if opts.Days > 0 {
		cal.simDays = opts.Days
	}
	if cal.simDays <= 0 {
		return nil, errors.New("empty simulation window")
	}
	return cal, nil
}

func yearLengthMod(year int) int {
	if IsLeapYear(year) {
		return 365 % 7
	}
	return 364 % 7
}

// Days returns the number of simulation days.
func (c *Calendar) Days() int {
	return c.simDays
}

// DateOf returns the date record for a simulation day offset. Offsets may be
// negative down to the epoch.
func (c *Calendar) DateOf(simDay int) Date {
	return c.dates[c.simStart+simDay]
}

// SimDay returns the simulation day offset for (year, month, day), or
// DayUnknown if the date is malformed or outside the table. February 29 in a
// non-leap year maps to February 28 by contract.
func (c *Calendar) SimDay(year, month, day int) int {
	if month < 1 || month > 12 {
		return DayUnknown
	}
	if !IsLeapYear(year) && month == 2 && day == 29 {
		day = 28
	}
	if day < 1 || day > DaysInMonth(year, month) {
		return DayUnknown
	}

	code := dateCode(year, month, day)
	first := c.dates[0]
	last := c.dates[len(c.dates)-1]
	if code < first.code() || code > last.code() {
		return DayUnknown
	}

	low, high := 0, len(c.dates)-1
	for low <= high {
		pos := (low + high) / 2
		switch dc := c.dates[pos].code(); {
		case dc == code:
			return pos - c.simStart
		case dc < code:
			low = pos + 1
		default:
			high = pos - 1
		}
	}
	return DayUnknown
}

func dateCode(year, month, day int) int {
	return 10000*year + 100*month + day
}

func (d Date) code() int {
	return dateCode(d.Year, d.Month, d.DayOfMonth)
}

// SimDayOf parses a date string and returns its simulation day offset.
func (c *Calendar) SimDayOf(s string) int {
	year, month, day, err := ParseDate(s)
	if err != nil {
		return DayUnknown
	}
	return c.SimDay(year, month, day)
}

// HoursUntil returns the number of hours from (day, hour) until the target
// (year, month, day, h), or -1 if the target is not strictly in the future.
func (c *Calendar) HoursUntil(day, hour, targetYear, targetMonth, targetDay, targetHour int) int {
	simDay := c.SimDay(targetYear, targetMonth, targetDay)
	if simDay == DayUnknown || simDay < day {
		return -1
	}
	if simDay == day && hour == targetHour {
		return -1
	}
	return 24*(simDay-day) + (targetHour - hour)
}

// HoursUntilNext returns the hours from (day, hour) until the next occurrence
// of (month, dayOfMonth, h), rolling into the following year when the target
// has already passed.
func (c *Calendar) HoursUntilNext(day, hour, targetMonth, targetDay, targetHour int) int {
	year := c.DateOf(day).Year
	simDay := c.SimDay(year, targetMonth, targetDay)
	if simDay == DayUnknown {
		return -1
	}
	if simDay < day || (simDay == day && targetHour <= hour) {
		return c.HoursUntil(day, hour, year+1, targetMonth, targetDay, targetHour)
	}
	return c.HoursUntil(day, hour, year, targetMonth, targetDay, targetHour)
}
