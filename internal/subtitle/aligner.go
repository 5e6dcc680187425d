package subtitle

import "math"

// AlignStrategy selects how a target-language cue is matched onto a source
// cue's timeline.
type AlignStrategy int

const (
	// AlignNearest picks the target cue whose start time is closest to the
	// source cue's start, within the tolerance window.
	AlignNearest AlignStrategy = iota
	// AlignFirstMatch picks the first target cue (in original order) whose
	// start falls inside the tolerance window. Kept for parity with older
	// cache entries built this way.
	AlignFirstMatch
)

// alignTolerance is the maximum start-time gap, in seconds, for a target
// cue to be considered aligned with a source cue.
const alignTolerance = 0.5

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Align lays target-language cues onto the source timeline. The source cues
// define the result; each gets the text of the matching target cue, or an
// empty Chinese field when nothing falls inside the tolerance window.
func Align(source, target []SentenceCue, strategy AlignStrategy) []SentenceCue {
	type entry struct {
		key  float64
		text string
	}
	entries := make([]entry, 0, len(target))
	index := make(map[float64]int, len(target))
	for _, cue := range target {
		key := round2(cue.Start)
		// Two cues rounding to the same start: the later one wins.
		if i, ok := index[key]; ok {
			entries[i].text = cue.English
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry{key: key, text: cue.English})
	}

	aligned := make([]SentenceCue, 0, len(source))
	for _, cue := range source {
		out := SentenceCue{Start: cue.Start, End: cue.End, English: cue.English}
		start := round2(cue.Start)

		switch strategy {
		case AlignFirstMatch:
			for _, e := range entries {
				if math.Abs(e.key-start) < alignTolerance {
					out.Chinese = e.text
					break
				}
			}
		default:
			best := alignTolerance
			for _, e := range entries {
				if d := math.Abs(e.key - start); d < best {
					best = d
					out.Chinese = e.text
				}
			}
		}
		aligned = append(aligned, out)
	}
	return aligned
}
