package menus

import (
	"fmt"
	"strings"
)

// ParseWeek normalizes "1", "2", "week1" or "week2" to 1 or 2.
func ParseWeek(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, ErrMissingField
	}
	v = strings.TrimSpace(strings.TrimPrefix(v, "week"))
	switch v {
	case "1":
		return 1, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeek, raw)
	}
}
