package logtide

import (
	"encoding/json"
	"strings"
)

// Level is the severity of a log record.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// String returns the wire representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// ParseLevel maps a level name to a Level. Matching is case-insensitive;
// "warning" and "fatal" are accepted as aliases for Warn and Critical.
// Anything unrecognized, including the empty string, parses as Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "critical", "fatal":
		return LevelCritical
	default:
		return LevelInfo
	}
}

// MarshalJSON encodes the level as its wire string.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name, applying the same tolerant rules as
// ParseLevel.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLevel(s)
	return nil
}
