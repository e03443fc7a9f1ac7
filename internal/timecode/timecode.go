// Package timecode converts between subtitle timestamps (HH:MM:SS,mmm) and
// seconds.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMalformedTimestamp is returned when a timestamp cannot be parsed.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// ParseTimestamp converts "HH:MM:SS,mmm" to seconds.
func ParseTimestamp(text string) (float64, error) {
	fields := strings.Split(strings.TrimSpace(text), ":")
	if len(fields) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}
	secMs := strings.SplitN(fields[2], ",", 2)
	if len(secMs) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
	}

	var parts [4]float64
	for i, s := range []string{fields[0], fields[1], secMs[0], secMs[1]} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, text)
		}
		parts[i] = v
	}

	return parts[0]*3600 + parts[1]*60 + parts[2] + parts[3]/1000, nil
}

// FormatSeconds converts seconds to "HH:MM:SS,mmm". Components are floored,
// never rounded.
func FormatSeconds(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	// Nudge by a sub-microsecond epsilon so 1.001 doesn't floor to 1000ms.
	total := int64(math.Floor(seconds*1000 + 1e-6))

	ms := total % 1000
	total /= 1000
	s := total % 60
	total /= 60
	m := total % 60
	h := total / 60

	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
