package core

import (
	"strings"
	"time"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Now returns the current UTC time with the precision kept by the databases.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ParseOrdering converts "field" / "-field" strings into orderings, keeping only the allowed fields.
func ParseOrdering(values []string, allowed ...string) []DBOrdering {
	ords := make([]DBOrdering, 0, len(values))
	for _, raw := range values {
		for _, v := range strings.Split(raw, ",") {
			v = CleanString(v, true /* lower */)
			ord := DBOrdering{Field: strings.TrimPrefix(v, "-"), Ascending: !strings.HasPrefix(v, "-")}
			for _, a := range allowed {
				if ord.Field == a {
					ords = append(ords, ord)
					break
				}
			}
		}
	}
	return ords
}
