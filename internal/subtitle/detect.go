package subtitle

import (
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// DetectLanguage guesses the dominant language of a cue set by majority
// vote over per-cue detections. Returns language.Und for empty input.
func DetectLanguage(cues []SentenceCue) language.Tag {
	if len(cues) == 0 {
		return language.Und
	}

	votes := make(map[string]int)
	for _, cue := range cues {
		iso := whatlanggo.DetectLang(cue.English).Iso6391()
		votes[iso]++
	}

	var topLang string
	var topCount int
	for lang, count := range votes {
		if count > topCount {
			topLang = lang
			topCount = count
		}
	}
	return language.All.Make(topLang)
}
