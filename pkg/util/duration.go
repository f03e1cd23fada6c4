package util

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "H:MM:SS" when it spans at least an hour and
// as "MM:SS" otherwise. The value is rounded to the nearest second first and
// negative durations are treated as zero.
//
// Example:
//
//	FormatDuration(0)                  // "00:00"
//	FormatDuration(65 * time.Second)   // "01:05"
//	FormatDuration(3661 * time.Second) // "1:01:01"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d.Round(time.Second) / time.Second)

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// Seconds converts a fractional number of seconds, as reported by media
// extractors, into a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
