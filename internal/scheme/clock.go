package scheme

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the wrap modulus for clock times.
const MinutesPerDay = 24 * 60

// ParseClock parses "HH:MM" (seconds, if present, are ignored) into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("parse clock %q: %w", s, ErrInvalidClock)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("parse clock %q: %w", s, ErrInvalidClock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("parse clock %q: %w", s, ErrInvalidClock)
	}

	return h*60 + m, nil
}

// WrapMinutes folds any minute count into [0, 1440).
func WrapMinutes(m int) int {
	return ((m % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// FormatClock renders minutes as a wrapped "HH:MM" clock time.
func FormatClock(m int) string {
	w := WrapMinutes(m)
	return fmt.Sprintf("%02d:%02d", w/60, w%60)
}

// DayOffset returns how many days an unwrapped minute count lies from day zero.
func DayOffset(elapsed int) int {
	if elapsed >= 0 {
		return elapsed / MinutesPerDay
	}
	return -((-elapsed + MinutesPerDay - 1) / MinutesPerDay)
}

// FormatDayOffset renders a day offset as "+1d" / "-1d", or "" for the same day.
func FormatDayOffset(days int) string {
	switch {
	case days > 0:
		return fmt.Sprintf("+%dd", days)
	case days < 0:
		return fmt.Sprintf("%dd", days)
	default:
		return ""
	}
}

// FormatDuration renders a minute total as "H:MM" without wrapping.
func FormatDuration(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
