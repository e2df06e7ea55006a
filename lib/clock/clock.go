package clock

import "time"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Today returns the current UTC date, used in export file names.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
