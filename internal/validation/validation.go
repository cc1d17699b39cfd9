package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Error carries one message per invalid field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// ParseTime parses a "2006-01-02" date and returns it at midnight UTC.
func ParseTime(str string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(str))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD: %s", str)
	}
	return t.UTC(), nil
}

// ParseDateRange parses optional start and end dates.
// Empty strings yield zero times; a start after the end is ErrInvalidDateRange.
func ParseDateRange(start, end string) (time.Time, time.Time, error) {
	errors := make(map[string]string)
	var startDate, endDate time.Time
	var err error

	if strings.TrimSpace(start) != "" {
		if startDate, err = ParseTime(start); err != nil {
			errors["start_date"] = err.Error()
		}
	}
	if strings.TrimSpace(end) != "" {
		if endDate, err = ParseTime(end); err != nil {
			errors["end_date"] = err.Error()
		}
	}
	if len(errors) > 0 {
		return time.Time{}, time.Time{}, &Error{Fields: errors}
	}

	if !startDate.IsZero() && !endDate.IsZero() && startDate.After(endDate) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return startDate, endDate, nil
}
