package repository

import (
	"fmt"
	"time"
)

// dateLayout is the storage format of every DATE column.
const dateLayout = "2006-01-02"

// ParseTime parses a stored date in "2006-01-02" or RFC3339 format and returns it in UTC.
// The sqlite driver hands DATE columns back as time.Time, which database/sql
// renders as RFC3339 when scanned into a string.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse(dateLayout, str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}
