package transform

import (
	"strings"
	"time"
)

// ProtocolTimestampLayout is the YmdHis stamp used throughout the clearinghouse messages.
const ProtocolTimestampLayout = "20060102150405"

func FormatProtocolTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(ProtocolTimestampLayout)
}

// ParseProtocolTime reads a clearinghouse stamp in loc. RFC 3339 values are accepted as well.
func ParseProtocolTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if loc == nil {
		loc = time.UTC
	}

	ts, err := time.ParseInLocation(ProtocolTimestampLayout, v, loc)
	if err == nil {
		return ts, nil
	}

	if rfc, rfcErr := time.Parse(time.RFC3339, v); rfcErr == nil {
		return rfc.In(loc), nil
	}

	return time.Time{}, err
}
