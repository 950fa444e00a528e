package normalize

import (
	"strconv"
	"strings"
	"time"
)

// Raw is an undecoded server record. The backend emits a mix of snake_case
// and camelCase keys depending on which subsystem produced the payload, so
// records stay maps until they pass through this package.
type Raw = map[string]any

func pick(raw Raw, keys ...string) (any, bool) {
	for _, key := range keys {
		if val, ok := raw[key]; ok && val != nil {
			return val, true
		}
	}
	return nil, false
}

func pickString(raw Raw, keys ...string) string {
	val, ok := pick(raw, keys...)
	if !ok {
		return ""
	}
	return stringify(val)
}

func pickBool(raw Raw, keys ...string) bool {
	val, ok := pick(raw, keys...)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		parsed, err := strconv.ParseBool(v)
		return err == nil && parsed
	}
	return false
}

func pickInt(raw Raw, keys ...string) (int, bool) {
	val, ok := pick(raw, keys...)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

func pickTime(raw Raw, keys ...string) (time.Time, bool) {
	val, ok := pick(raw, keys...)
	if !ok {
		return time.Time{}, false
	}
	switch v := val.(type) {
	case string:
		return parseTimestamp(v)
	case float64:
		// Unix seconds from older endpoints.
		return time.Unix(int64(v), 0).UTC(), true
	case time.Time:
		return v, true
	}
	return time.Time{}, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// stringify renders scalar JSON values; numbers lose no precision so ids
// delivered as numbers survive the trip.
func stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func asMap(val any) (Raw, bool) {
	m, ok := val.(Raw)
	return m, ok
}
