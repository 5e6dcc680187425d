package subtitle

// RawCue is a single time-coded text fragment exactly as it appears in a
// caption track payload. Offsets are seconds from the start of the video.
type RawCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SentenceCue is a learner-sized sentence produced by merging consecutive
// raw cues. The JSON field names match the historical cache layout, so
// entries written by earlier deployments keep loading: the merged track text
// lives in "english" and the translation in "chinese" (empty until aligned
// or translated).
type SentenceCue struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	English string  `json:"english"`
	Chinese string  `json:"chinese"`
}

// TranslatedCount returns how many cues carry a non-empty translation.
func TranslatedCount(cues []SentenceCue) int {
	n := 0
	for _, cue := range cues {
		if cue.Chinese != "" {
			n++
		}
	}
	return n
}
