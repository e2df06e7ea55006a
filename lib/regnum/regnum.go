package regnum

import (
	"fmt"
	"regexp"
	"time"
)

const prefix = "BKL"

var pattern = regexp.MustCompile(`^BKL\d{6}$`)

// Generate builds a registration number from the creation time: the prefix
// followed by the six least-significant decimal digits of the millisecond
// timestamp. Two registrations persisted within the same window modulo 10^6
// milliseconds receive the same number; the store does not reject that.
func Generate(t time.Time) string {
	return fmt.Sprintf("%s%06d", prefix, t.UnixMilli()%1_000_000)
}

// Valid reports whether s is a well-formed registration number.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
