package info

import (
	"errors"
	"fmt"
	"strings"
)

// Default separators used by the info protocol.
const (
	DefaultFieldSep  = ";"
	DefaultRecordSep = ";"
	DefaultInnerSep  = ":"
)

// ErrUnsupportedFraming is returned by Parse when the caller asks for a framing
// mode that does not exist. It signals a caller defect, not a node failure.
var ErrUnsupportedFraming = errors.New("info: unsupported framing")

// Framing selects which of the three response shapes a payload is parsed as.
type Framing int

const (
	// FramingPairs is a flat "k=v;k=v" list.
	FramingPairs Framing = iota
	// FramingTokens is a bare "a;b;c" token list.
	FramingTokens
	// FramingRecords is a multi-record "k=v:k=v;k=v:k=v" list.
	FramingRecords
)

// String returns the framing name for logs and errors.
func (f Framing) String() string {
	switch f {
	case FramingPairs:
		return "pairs"
	case FramingTokens:
		return "tokens"
	case FramingRecords:
		return "records"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// Separators overrides the default separators for Parse. Zero values fall
// back to the protocol defaults.
type Separators struct {
	Record string // outer separator (records) or item separator (pairs, tokens)
	Field  string // inner separator (records only)
}

// Parsed holds the result of Parse. Exactly one field is populated, matching
// the requested Framing.
type Parsed struct {
	Pairs   map[string]string
	Tokens  []string
	Records []map[string]string
}

// Parse dispatches text to the parser for the given framing.
func Parse(text string, framing Framing, seps Separators) (Parsed, error) {
	switch framing {
	case FramingPairs:
		return Parsed{Pairs: ParseFlatPairs(text, seps.Record)}, nil
	case FramingTokens:
		return Parsed{Tokens: ParseTokenList(text, seps.Record)}, nil
	case FramingRecords:
		return Parsed{Records: ParseSubRecords(text, seps.Record, seps.Field)}, nil
	default:
		return Parsed{}, fmt.Errorf("%w: %s", ErrUnsupportedFraming, framing)
	}
}

// ParseFlatPairs parses "k1=v1;k2=v2" into a map. Only the first '=' of a
// segment splits key from value; segments without '=' are dropped. Keys and
// values are trimmed and a repeated key keeps its last value.
func ParseFlatPairs(text, sep string) map[string]string {
	if sep == "" {
		sep = DefaultFieldSep
	}
	out := make(map[string]string)
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	for _, part := range strings.Split(text, sep) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out
}

// ParseTokenList parses "a;b;c" into its trimmed, non-empty tokens in order.
// Duplicates are kept.
func ParseTokenList(text, sep string) []string {
	if sep == "" {
		sep = DefaultFieldSep
	}
	out := []string{}
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	for _, item := range strings.Split(text, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseSubRecords parses a multi-record response. Records are split on
// recordSep and each record is parsed with ParseFlatPairs using fieldSep.
// Records that yield no fields are never emitted.
func ParseSubRecords(text, recordSep, fieldSep string) []map[string]string {
	if recordSep == "" {
		recordSep = DefaultRecordSep
	}
	if fieldSep == "" {
		fieldSep = DefaultInnerSep
	}
	out := []map[string]string{}
	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}
	for _, rec := range strings.Split(text, recordSep) {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := ParseFlatPairs(rec, fieldSep)
		if len(fields) > 0 {
			out = append(out, fields)
		}
	}
	return out
}
