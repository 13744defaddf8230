package converters

import (
	"strings"
	"time"
)

func ToPtr[T any](val T) *T {
	return &val
}

func StrToPtr(val string) *string {
	if strings.TrimSpace(val) == "" {
		return nil
	}

	return &val
}

func PtrToStr(val *string) string {
	if val == nil {
		return ""
	}

	return *val
}

// TimeToPtr returns nil for the zero time.
func TimeToPtr(val time.Time) *time.Time {
	if val.IsZero() {
		return nil
	}

	return &val
}

func PtrToTime(val *time.Time) time.Time {
	if val == nil {
		return time.Time{}
	}

	return *val
}
