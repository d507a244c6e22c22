// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import "time"

// timeLayout is a fixed-width UTC layout so that DATETIME columns sort
// lexically in time order.
const timeLayout = "2006-01-02 15:04:05.000000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
