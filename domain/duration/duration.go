// Package duration parses and formats human-readable lesson lengths.
// This package has NO dependencies on I/O.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "1h 30m", "1 h", "2hrs 5 mins", "1 hour 10 minutes"
	hoursMinutesRegex = regexp.MustCompile(`^(?:(\d+(?:\.\d+)?)\s*h(?:ours?|rs?)?)?\s*(?:(\d+)\s*m(?:in(?:ute)?s?)?)?$`)
	// "5 min", "5m", "5 minutes"
	minutesRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*m(?:in(?:ute)?s?)?$`)
	// "1:30" (h:mm)
	clockRegex = regexp.MustCompile(`^(\d+):([0-5]\d)$`)
)

// Parse converts a human-readable duration into whole minutes.
// Supports "Xh Ym", "Xh", "X min", "h:mm" and bare integers (minutes).
// Returns false when nothing could be parsed.
// This is a PURE function.
func Parse(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return Minutes(n)
	}

	if m := minutesRegex.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		return Minutes(n)
	}

	if m := clockRegex.FindStringSubmatch(s); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		min, _ := strconv.Atoi(m[2])
		return Minutes(float64(h)*60 + float64(min))
	}

	if m := hoursMinutesRegex.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		total := 0.0
		if m[1] != "" {
			h, _ := strconv.ParseFloat(m[1], 64)
			total += h * 60
		}
		if m[2] != "" {
			min, _ := strconv.ParseFloat(m[2], 64)
			total += min
		}
		return Minutes(total)
	}

	return 0, false
}

// MaxMinutes bounds every parsed duration.
const MaxMinutes = math.MaxInt32

// Minutes rounds n to whole minutes. NaN, infinities, negatives and values
// above MaxMinutes are rejected.
func Minutes(n float64) (int, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > MaxMinutes {
		return 0, false
	}
	return int(math.Round(n)), true
}

// Format renders minutes the way course outlines display them:
// 45 -> "45 min", 60 -> "1h", 90 -> "1h 30m".
// This is a PURE function.
func Format(minutes int) string {
	if minutes <= 0 {
		return "0 min"
	}
	if minutes < 60 {
		return strconv.Itoa(minutes) + " min"
	}
	h, m := minutes/60, minutes%60
	if m == 0 {
		return strconv.Itoa(h) + "h"
	}
	return strconv.Itoa(h) + "h " + strconv.Itoa(m) + "m"
}

// FromSeconds converts a media length in seconds to rounded minutes.
func FromSeconds(seconds float64) int {
	m, ok := Minutes(seconds / 60)
	if !ok {
		return 0
	}
	return m
}
