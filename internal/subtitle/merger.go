package subtitle

import (
	"regexp"
	"strings"
)

// maxWordsPerSentence caps how many words accumulate before a forced break
// when the text carries no terminal punctuation.
const maxWordsPerSentence = 15

var (
	sentenceEndRE = regexp.MustCompile(`[.!?]["']?\s*`)
	wordRE        = regexp.MustCompile(`[a-zA-Z]+(?:[-'][a-zA-Z]+)*`)
)

// CountWords counts dictionary-style words: runs of letters optionally
// joined by hyphens or apostrophes. Digits and punctuation do not count.
func CountWords(text string) int {
	return len(wordRE.FindAllString(text, -1))
}

// MergeSentences joins fragment cues into sentence-level cues. Terminal
// punctuation wins: whenever the accumulated text contains a sentence
// terminator, everything up to the last terminator is emitted and the
// remainder seeds the next sentence. Without a terminator, accumulation is
// capped at maxWordsPerSentence words; on overflow the most recent fragment
// is pushed back and starts a new sentence, and the emitted sentence ends
// where that fragment begins.
func MergeSentences(raw []RawCue) []SentenceCue {
	if len(raw) == 0 {
		return nil
	}

	var merged []SentenceCue
	var parts []string
	var start, end float64
	open := false

	for _, cue := range raw {
		text := strings.TrimSpace(cue.Text)
		if text == "" {
			continue
		}
		if !open {
			start = cue.Start
			open = true
		}
		parts = append(parts, text)
		end = cue.End

		current := strings.TrimSpace(strings.Join(parts, " "))

		if locs := sentenceEndRE.FindAllStringIndex(current, -1); len(locs) > 0 {
			cut := locs[len(locs)-1][1]
			sentence := strings.TrimSpace(current[:cut])
			rest := strings.TrimSpace(current[cut:])

			if sentence != "" {
				merged = append(merged, SentenceCue{Start: start, End: end, English: sentence})
			}
			if rest != "" {
				parts = []string{rest}
				start = cue.Start
				end = cue.End
			} else {
				parts = nil
				open = false
			}
			continue
		}

		if CountWords(current) > maxWordsPerSentence {
			last := parts[len(parts)-1]
			lastEnd := end
			parts = parts[:len(parts)-1]

			sentence := strings.TrimSpace(strings.Join(parts, " "))
			if sentence != "" {
				// The overflowing fragment starts the next sentence, so the
				// emitted one ends where that fragment begins.
				merged = append(merged, SentenceCue{Start: start, End: cue.Start, English: sentence})
			}
			parts = []string{last}
			start = cue.Start
			end = lastEnd
		}
	}

	if len(parts) > 0 {
		if sentence := strings.TrimSpace(strings.Join(parts, " ")); sentence != "" {
			merged = append(merged, SentenceCue{Start: start, End: end, English: sentence})
		}
	}
	return merged
}
