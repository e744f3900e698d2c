package exporter

import (
	"strconv"
	"time"
)

const (
	// TimestampLayout is the naive timestamp text used in raw and warehouse CSVs
	TimestampLayout = "2006-01-02 15:04:05"
	// DateLayout is used for calendar date columns
	DateLayout = "2006-01-02"
)

// formatFloat formats a float64 value with the shortest exact representation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// FormatTimestamp formats t with TimestampLayout. The zero time is null and
// formats as an empty cell.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

func formatNullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}

func formatNullableDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func formatNullableFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func formatNullableInt(i *int64) string {
	if i == nil {
		return ""
	}
	return formatInt(*i)
}

func formatNullableHour(h *int32) string {
	if h == nil {
		return ""
	}
	return formatInt(int64(*h))
}

func formatNullableString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
