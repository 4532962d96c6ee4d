package normalize

import (
	"encoding/json"
	"math"
	"openbankingbr/lib/textutil"
	"strconv"
	"strings"
)

// Lookup walks a dotted path (ex. "postalAddress.geographicCoordinates.latitude")
// through nested objects, nil is returned if any segment is missing.
func Lookup(obj map[string]any, path string) any {
	var current any = obj
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// isPlaceholder reports values participants publish instead of leaving a field out.
func isPlaceholder(s string) bool {
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "NULL":
		return true
	}
	return false
}

// String returns the trimmed string at `path`, numbers are formatted back to text.
// Empty strings and "NA" placeholders are treated as absent.
func String(obj map[string]any, path string) (string, bool) {
	var out string
	switch v := Lookup(obj, path).(type) {
	case string:
		out = strings.TrimSpace(v)
	case float64:
		out = strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		out = v.String()
	default:
		return "", false
	}
	if isPlaceholder(out) {
		return "", false
	}
	return out, true
}

// StringPtr is String but returns nil when absent.
func StringPtr(obj map[string]any, path string) *string {
	s, ok := String(obj, path)
	if !ok {
		return nil
	}
	return &s
}

// Digits returns only the digits of the value at `path`, participants often
// format codes even though they are documented as plain digits.
func Digits(obj map[string]any, path string) (string, bool) {
	s, ok := String(obj, path)
	if !ok {
		return "", false
	}
	// 123.0 is formatted as 123 by String
	digits := textutil.Digits(s)
	if digits == "" {
		return "", false
	}
	return digits, true
}

// Int returns the integer formed by the digits of the value at `path`.
func Int(obj map[string]any, path string) (int64, bool) {
	digits, ok := Digits(obj, path)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat parses numbers the way participants publish them: "0.0150", "0,0150"
// and "1.234,56" are all accepted.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if isPlaceholder(s) {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			if strings.LastIndex(s, ",") < strings.LastIndex(s, ".") {
				// 1,234.56
				s = strings.ReplaceAll(s, ",", "")
			} else {
				// 1.234,56
				s = strings.ReplaceAll(s, ".", "")
				s = strings.ReplaceAll(s, ",", ".")
			}
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Float returns the number at `path`, given either as a json number or a string.
func Float(obj map[string]any, path string) (float64, bool) {
	switch v := Lookup(obj, path).(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case json.Number:
		return ParseFloat(v.String())
	case string:
		return ParseFloat(v)
	}
	return 0, false
}

// Bool returns the boolean at `path`, given either as a json bool or a "true"/"false" string.
func Bool(obj map[string]any, path string) (bool, bool) {
	switch v := Lookup(obj, path).(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func List(obj map[string]any, path string) ([]any, bool) {
	list, ok := Lookup(obj, path).([]any)
	return list, ok
}

func Object(obj map[string]any, path string) (map[string]any, bool) {
	m, ok := Lookup(obj, path).(map[string]any)
	return m, ok
}

// Objects returns the elements of the list at `path` that are objects.
func Objects(obj map[string]any, path string) []map[string]any {
	list, ok := List(obj, path)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if ok {
			out = append(out, m)
		}
	}
	return out
}
