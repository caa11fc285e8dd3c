package info

import (
	"strconv"
	"strings"
)

// ToInt converts a protocol integer field. Empty, non-numeric and
// float-formatted values ("3.14") all yield def; nothing is truncated.
func ToInt(value string, def int64) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// ToBool reports whether value is the literal token "true", ignoring case and
// surrounding whitespace. "1", "yes" and empty values are false.
func ToBool(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// Lookup returns the value of the first key present in fields. The keys are
// alternative spellings of the same field, in priority order.
func Lookup(fields map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return "", false
}

// IntField is ToInt over Lookup; a missing field yields def.
func IntField(fields map[string]string, def int64, keys ...string) int64 {
	v, ok := Lookup(fields, keys...)
	if !ok {
		return def
	}
	return ToInt(v, def)
}

// BoolField is ToBool over Lookup; a missing field is false.
func BoolField(fields map[string]string, keys ...string) bool {
	v, _ := Lookup(fields, keys...)
	return ToBool(v)
}
