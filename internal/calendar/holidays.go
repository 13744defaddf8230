package calendar

import "time"

// isStatutoryHoliday covers the mandatory rest days of the Mexican federal labour law.
func isStatutoryHoliday(t time.Time) bool {
	day := t.Day()

	switch t.Month() {
	case time.January:
		return day == 1
	case time.February:
		return isNthWeekday(t, time.Monday, 1)
	case time.March:
		return isNthWeekday(t, time.Monday, 3)
	case time.May:
		return day == 1
	case time.September:
		return day == 16
	case time.November:
		return isNthWeekday(t, time.Monday, 3)
	case time.December:
		// presidential inauguration every six years (2024, 2030, ...)
		if day == 1 && (t.Year()-2024)%6 == 0 {
			return true
		}

		return day == 25
	default:
		return false
	}
}

func isNthWeekday(t time.Time, weekday time.Weekday, n int) bool {
	if t.Weekday() != weekday {
		return false
	}

	return (t.Day()-1)/7 == n-1
}
