// Package calendar implements the Mexican business calendar used for protocol dates.
package calendar

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ometra-Hela/Alize/internal/datastructures"
)

const (
	dateLayout = "2006-01-02"

	DefaultWindowStart = "11:00"
	DefaultWindowEnd   = "17:00"
	DefaultTimezone    = "America/Mexico_City"
)

type Config struct {
	Location    *time.Location
	WindowStart string
	WindowEnd   string
	// Holidays are extra non-working dates in YYYY-MM-DD form, on top of the statutory ones.
	Holidays []string
}

type Calendar struct {
	loc         *time.Location
	windowStart clock
	windowEnd   clock
	holidays    datastructures.HashSet[string]
}

type clock struct {
	hour   int
	minute int
}

func (c clock) minutes() int {
	return c.hour*60 + c.minute
}

func parseClock(value string) (clock, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return clock{}, fmt.Errorf("invalid clock %q: %w", value, err)
	}

	return clock{hour: t.Hour(), minute: t.Minute()}, nil
}

func New(cfg Config) (*Calendar, error) {
	loc := cfg.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation(DefaultTimezone); err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	if cfg.WindowStart == "" {
		cfg.WindowStart = DefaultWindowStart
	}

	if cfg.WindowEnd == "" {
		cfg.WindowEnd = DefaultWindowEnd
	}

	start, err := parseClock(cfg.WindowStart)
	if err != nil {
		return nil, err
	}

	end, err := parseClock(cfg.WindowEnd)
	if err != nil {
		return nil, err
	}

	if end.minutes() <= start.minutes() {
		return nil, fmt.Errorf("working window end %s must be after start %s", cfg.WindowEnd, cfg.WindowStart)
	}

	holidays := datastructures.NewHashSet[string]()

	for _, day := range cfg.Holidays {
		parsed, err := time.Parse(dateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", day, err)
		}

		holidays.AddValue(parsed.Format(dateLayout))
	}

	return &Calendar{loc: loc, windowStart: start, windowEnd: end, holidays: holidays}, nil
}

type holidaysFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// LoadHolidays reads additional non-working dates from a YAML file of the form
//
//	holidays:
//	  - date: 2025-11-02
//	    name: Día de Muertos
func LoadHolidays(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holidays file: %w", err)
	}

	var file holidaysFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse holidays file: %w", err)
	}

	dates := make([]string, 0, len(file.Holidays))
	for _, h := range file.Holidays {
		dates = append(dates, h.Date)
	}

	return dates, nil
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) IsBusinessDay(t time.Time) bool {
	t = t.In(c.loc)

	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	if isStatutoryHoliday(t) {
		return false
	}

	return !c.holidays.Contains(t.Format(dateLayout))
}

// AddBusinessDays moves forward n business days keeping the time of day.
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	t = t.In(c.loc)

	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if c.IsBusinessDay(t) {
			n--
		}
	}

	return t
}

// ClampToWorkingWindow returns t when it already falls inside the working window of a
// business day, the window start of the same day when t is earlier, and otherwise the
// window start of the next business day.
func (c *Calendar) ClampToWorkingWindow(t time.Time) time.Time {
	t = t.In(c.loc)

	if !c.IsBusinessDay(t) {
		return c.NextBusinessDayAt(t, c.windowStart.hour, c.windowStart.minute)
	}

	current := t.Hour()*60 + t.Minute()

	if current < c.windowStart.minutes() {
		return c.at(t, c.windowStart)
	}

	if current >= c.windowEnd.minutes() {
		return c.NextBusinessDayAt(t, c.windowStart.hour, c.windowStart.minute)
	}

	return t
}

// NextBusinessDayAt returns the first business day strictly after t's date, at hour:minute.
func (c *Calendar) NextBusinessDayAt(t time.Time, hour, minute int) time.Time {
	next := t.In(c.loc).AddDate(0, 0, 1)
	for !c.IsBusinessDay(next) {
		next = next.AddDate(0, 0, 1)
	}

	return time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, c.loc)
}

func (c *Calendar) at(t time.Time, hm clock) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hm.hour, hm.minute, 0, 0, c.loc)
}
