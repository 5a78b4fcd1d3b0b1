package utils

import (
	"fmt"
	"time"
)

// FormatDuration renders d with the two most significant units.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "n/a"
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%d days, %d hours", days, hours)
	}
	if hours > 0 {
		return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%d minutes, %d seconds", minutes, seconds)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

// FormatBlockLag describes where the chain head is relative to a start block.
func FormatBlockLag(head, start uint64) string {
	switch {
	case head < start:
		return fmt.Sprintf("%d blocks until start block %d", start-head, start)
	case head == start:
		return fmt.Sprintf("at start block %d", start)
	default:
		return fmt.Sprintf("%d blocks past start block %d", head-start, start)
	}
}
