package model

import (
	"strings"
	"time"
)

// IntervalDuration maps a kline interval code (minutes, or D/W/M) to its bar length.
// Months count as 30 days.
func IntervalDuration(interval string) (time.Duration, bool) {
	switch strings.ToUpper(strings.TrimSpace(interval)) {
	case "1":
		return time.Minute, true
	case "3":
		return 3 * time.Minute, true
	case "5":
		return 5 * time.Minute, true
	case "15":
		return 15 * time.Minute, true
	case "30":
		return 30 * time.Minute, true
	case "60":
		return time.Hour, true
	case "120":
		return 2 * time.Hour, true
	case "240":
		return 4 * time.Hour, true
	case "360":
		return 6 * time.Hour, true
	case "720":
		return 12 * time.Hour, true
	case "D":
		return 24 * time.Hour, true
	case "W":
		return 7 * 24 * time.Hour, true
	case "M":
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}
