package calendar

import (
	"testing"
	"time"
)

func mustNew(t *testing.T, opts Options) *Calendar {
	t.Helper()
	cal, err := New(opts)
	if err != nil {
		t.Fatalf("New(%+v) error: %v", opts, err)
	}
	return cal
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		year    int
		month   int
		day     int
		wantErr bool
	}{
		{"numeric form", "2020-01-15", 2020, 1, 15, false},
		{"month name form", "2020-Mar-02", 2020, 3, 2, false},
		{"single digit month", "2020-3-2", 2020, 3, 2, false},
		{"bad month name", "2020-Mqr-02", 0, 0, 0, true},
		{"day overflow", "2021-02-29", 0, 0, 0, true},
		{"year out of window", "1776-07-04", 0, 0, 0, true},
		{"not a date", "yesterday", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m, d, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && (y != tt.year || m != tt.month || d != tt.day) {
				t.Errorf("ParseDate(%q) = %d-%d-%d, want %d-%d-%d", tt.input, y, m, d, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestCalendar2020(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-01-01", EndDate: "2020-12-31"})

	if got := cal.Days(); got != 366 {
		t.Errorf("Days() = %d, want 366", got)
	}
	if got := cal.DateOf(0).DayOfWeek; got != Wednesday {
		t.Errorf("day 0 DayOfWeek = %d, want Wednesday", got)
	}
	if got := cal.DateOf(365).DayOfWeek; got != Thursday {
		t.Errorf("day 365 DayOfWeek = %d, want Thursday", got)
	}
	if got := cal.SimDay(2020, 2, 29); got != 59 {
		t.Errorf("SimDay(2020, 2, 29) = %d, want 59", got)
	}
	if got := cal.DateOf(0).String(); got != "2020-01-01" {
		t.Errorf("DateOf(0) = %s, want 2020-01-01", got)
	}
}

func TestCalendarRoundTrip(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-01-01", EndDate: "2021-12-31"})

	for day := 0; day < cal.Days(); day++ {
		d := cal.DateOf(day)
		if got := cal.SimDay(d.Year, d.Month, d.DayOfMonth); got != day {
			t.Fatalf("SimDay(%v) = %d, want %d", d, got, day)
		}
	}
}

func TestFeb29NonLeapMapsToFeb28(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2021-01-01", EndDate: "2021-12-31"})

	if got, want := cal.SimDay(2021, 2, 29), cal.SimDay(2021, 2, 28); got != want {
		t.Errorf("SimDay(2021, 2, 29) = %d, want %d", got, want)
	}
}

func TestSimDayOutsideWindow(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-01-01", EndDate: "2020-12-31"})

	tests := []struct {
		name             string
		year, month, day int
	}{
		{"beyond table", 2300, 1, 1},
		{"before epoch", 1899, 12, 31},
		{"nonexistent day of month", 2020, 6, 31},
		{"zero day of month", 2020, 6, 0},
		{"bad month", 2020, 13, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan int, 1)
			go func() { done <- cal.SimDay(tt.year, tt.month, tt.day) }()
			select {
			case got := <-done:
				if got != DayUnknown {
					t.Errorf("SimDay(%d, %d, %d) = %d, want DayUnknown",
						tt.year, tt.month, tt.day, got)
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("SimDay(%d, %d, %d) did not return", tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestEpiWeekRule(t *testing.T) {
	// Jan 1 on Sun..Wed begins epi week 1 of that year; otherwise Jan 1
	// belongs to the final epi week of the previous year.
	tests := []struct {
		year        int
		jan1DOW     int
		wantWeekOne bool
	}{
		{2017, Sunday, true},
		{2018, Monday, true},
		{2019, Tuesday, true},
		{2020, Wednesday, true},
		{2021, Friday, false},
		{2022, Saturday, false},
		{2015, Thursday, false},
	}

	cal := mustNew(t, Options{StartDate: "2014-01-01", EndDate: "2022-12-31"})

	for _, tt := range tests {
		day := cal.SimDay(tt.year, 1, 1)
		d := cal.DateOf(day)
		if d.DayOfWeek != tt.jan1DOW {
			t.Errorf("Jan 1 %d DayOfWeek = %d, want %d", tt.year, d.DayOfWeek, tt.jan1DOW)
		}
		if tt.wantWeekOne {
			if d.EpiWeek != 1 || d.EpiYear != tt.year {
				t.Errorf("Jan 1 %d epi = %d.%d, want %d.1", tt.year, d.EpiYear, d.EpiWeek, tt.year)
			}
		} else {
			if d.EpiWeek < 52 || d.EpiYear != tt.year-1 {
				t.Errorf("Jan 1 %d epi = %d.%d, want %d.52 or %d.53", tt.year, d.EpiYear, d.EpiWeek, tt.year-1, tt.year-1)
			}
		}
	}
}

func TestDecemberTailJoinsNextEpiYear(t *testing.T) {
	// Dec 31 2019 is a Tuesday, so Dec 29-31 belong to epi week 1 of 2020.
	cal := mustNew(t, Options{StartDate: "2019-01-01", EndDate: "2019-12-31"})

	d := cal.DateOf(cal.SimDay(2019, 12, 30))
	if d.EpiWeek != 1 || d.EpiYear != 2020 {
		t.Errorf("Dec 30 2019 epi = %d.%d, want 2020.1", d.EpiYear, d.EpiWeek)
	}
}

func TestDaysOptionSetsWindow(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-01-01", Days: 30})

	if got := cal.Days(); got != 30 {
		t.Errorf("Days() = %d, want 30", got)
	}
	d := cal.DateOf(29)
	if d.Year != 2020 || d.Month != 1 || d.DayOfMonth != 30 {
		t.Errorf("DateOf(29) = %v, want 2020-01-30", d)
	}
}

func TestHoursUntil(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-01-01", EndDate: "2020-12-31"})

	tests := []struct {
		name string
		day  int
		hour int
		y    int
		m    int
		d    int
		h    int
		want int
	}{
		{"next day same hour", 0, 8, 2020, 1, 2, 8, 24},
		{"same day later", 0, 8, 2020, 1, 1, 20, 12},
		{"same moment", 0, 8, 2020, 1, 1, 8, -1},
		{"in the past", 5, 0, 2020, 1, 3, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.HoursUntil(tt.day, tt.hour, tt.y, tt.m, tt.d, tt.h); got != tt.want {
				t.Errorf("HoursUntil() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHoursUntilNextRollsToNextYear(t *testing.T) {
	cal := mustNew(t, Options{StartDate: "2020-06-01", EndDate: "2021-12-31"})

	// Mar 1 has passed by Jun 1, so the next occurrence is Mar 1 2021.
	got := cal.HoursUntilNext(0, 0, 3, 1, 0)
	want := 24 * cal.SimDay(2021, 3, 1)
	if got != want {
		t.Errorf("HoursUntilNext() = %d, want %d", got, want)
	}
}
