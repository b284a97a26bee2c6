package report

import (
	"fmt"
	"time"
)

// FormatDuration renders a minute count as "HHh MMm", zero-padded
func FormatDuration(minutes int64) string {
	return fmt.Sprintf("%02dh %02dm", minutes/60, minutes%60)
}

// FormatClock renders a millisecond timestamp as a local "HH:MM" time
func FormatClock(tsMillis int64, loc *time.Location) string {
	return time.UnixMilli(tsMillis).In(loc).Format("15:04")
}

// FormatDateTime renders a millisecond timestamp in the export timestamp
// layout, "DD/MM/YYYY HH:MM:SS" local
func FormatDateTime(tsMillis int64, loc *time.Location) string {
	return time.UnixMilli(tsMillis).In(loc).Format("02/01/2006 15:04:05")
}
