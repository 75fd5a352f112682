package assignments

import (
	"fmt"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// parseDateField parses a YYYY-MM-DD (or RFC 3339) request field. An empty
// value yields the zero time so that the engine reports the missing field
// in its usual validation order.
func parseDateField(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", field)
	}
	return d, nil
}
