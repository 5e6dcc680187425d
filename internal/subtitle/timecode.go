package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var nonDigitRE = regexp.MustCompile(`\D`)

// ParseTimestamp parses a single caption timestamp into seconds.
// Accepted shapes: H:MM:SS,mmm / H:MM:SS.mmm / MM:SS,mmm / MM:SS.mmm.
// Milliseconds are taken from up to three digits after the separator and
// right-padded with zeros when fewer are present. Returns ok=false on
// structurally invalid input; callers treat that as "skip this cue".
func ParseTimestamp(ts string) (float64, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, false
	}

	var main, msPart string
	if i := strings.Index(ts, ","); i >= 0 {
		main, msPart = ts[:i], ts[i+1:]
	} else if i := strings.Index(ts, "."); i >= 0 {
		main, msPart = ts[:i], ts[i+1:]
	} else {
		return 0, false
	}

	parts := strings.Split(main, ":")
	var h, m, s string
	switch len(parts) {
	case 3:
		h, m, s = parts[0], parts[1], parts[2]
	case 2:
		h, m, s = "0", parts[0], parts[1]
	default:
		return 0, false
	}

	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}

	msDigits := nonDigitRE.ReplaceAllString(msPart, "")
	if len(msDigits) > 3 {
		msDigits = msDigits[:3]
	}
	ms := 0
	if msDigits != "" {
		padded := msDigits + strings.Repeat("0", 3-len(msDigits))
		ms, err = strconv.Atoi(padded)
		if err != nil {
			return 0, false
		}
	}

	return float64(hours)*3600 + float64(minutes)*60 + float64(seconds) + float64(ms)/1000.0, true
}

// ParseTimeRange parses a "LEFT --> RIGHT" cue timing line. Each side is
// parsed independently; the line is rejected if either side fails.
func ParseTimeRange(line string) (start, end float64, ok bool) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, false
	}
	start, okL := ParseTimestamp(left)
	end, okR := ParseTimestamp(right)
	if !okL || !okR {
		return 0, 0, false
	}
	return start, end, true
}

// FormatTimestamp renders seconds in the SRT timestamp shape HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(seconds*1000.0 + 0.5)
	h := totalMs / 3600000
	m := (totalMs % 3600000) / 60000
	s := (totalMs % 60000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
