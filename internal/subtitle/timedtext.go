package subtitle

import (
	"encoding/json"
	"fmt"
	"strings"
)

type timedTextSeg struct {
	UTF8 *string `json:"utf8"`
}

type timedTextEvent struct {
	StartMs    *int64         `json:"tStartMs"`
	DurationMs int64          `json:"dDurationMs"`
	Segs       []timedTextSeg `json:"segs"`
}

type timedTextDoc struct {
	Events []timedTextEvent `json:"events"`
}

// ConvertTimedText converts YouTube json3 timedtext payloads into SRT.
// Both the wrapped form {"events": [...]} and a bare event array are
// accepted. Events without segments or a start time are skipped.
func ConvertTimedText(data []byte) (string, error) {
	var events []timedTextEvent

	var doc timedTextDoc
	if err := json.Unmarshal(data, &doc); err == nil && doc.Events != nil {
		events = doc.Events
	} else {
		var bare []timedTextEvent
		if err := json.Unmarshal(data, &bare); err != nil {
			return "", fmt.Errorf("unrecognized timedtext payload: %w", err)
		}
		events = bare
	}

	var b strings.Builder
	index := 1
	for _, ev := range events {
		if ev.StartMs == nil || len(ev.Segs) == 0 {
			continue
		}
		var parts []string
		for _, seg := range ev.Segs {
			if seg.UTF8 != nil {
				parts = append(parts, *seg.UTF8)
			}
		}
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}

		startSec := float64(*ev.StartMs) / 1000.0
		endSec := float64(*ev.StartMs+ev.DurationMs) / 1000.0

		if index > 1 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n",
			index, formatSRTClock(startSec), formatSRTClock(endSec), text)
		index++
	}
	return b.String(), nil
}

// formatSRTClock truncates toward zero per component, matching the shape
// produced by timedtext millisecond arithmetic.
func formatSRTClock(sec float64) string {
	totalMs := int64(sec * 1000.0)
	h := totalMs / 3600000
	m := (totalMs % 3600000) / 60000
	s := (totalMs % 60000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
