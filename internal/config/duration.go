package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseIdleTime parses an idle-time value like "30s", "5 min" or "2h". The
// unit is required and case insensitive; whitespace between the number and
// the unit is allowed. Zero and negative values are rejected.
func ParseIdleTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("idle time cannot be an empty string")
	}
	if !unicode.IsDigit(rune(s[0])) {
		return 0, fmt.Errorf("idle time must start with an integer, was %q", s[0])
	}

	numEnd := 0
	for _, ch := range s {
		if !unicode.IsDigit(ch) {
			break
		}
		numEnd++
	}

	value, err := strconv.ParseUint(s[:numEnd], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid idle time %q: %w", s, err)
	}
	if value == 0 {
		return 0, errors.New("idle time cannot be zero")
	}

	var unit time.Duration
	switch strings.ToLower(strings.TrimSpace(s[numEnd:])) {
	case "s", "sec", "second":
		unit = time.Second
	case "m", "min", "minute":
		unit = time.Minute
	case "h", "hour":
		unit = time.Hour
	default:
		return 0, fmt.Errorf(
			"invalid idle time unit in %q, must be one of s, sec, second, m, min, minute, h, hour", s)
	}

	return time.Duration(value) * unit, nil
}
