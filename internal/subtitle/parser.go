package subtitle

import (
	"regexp"
	"strings"
)

var (
	blockSplitRE = regexp.MustCompile(`\n\s*\n`)
	cueIndexRE   = regexp.MustCompile(`^\d+$`)
)

// ParseBlocks parses SRT or WebVTT content into raw cues. Blocks are
// separated by blank lines. A block may start with a bare numeric index
// (SRT) or directly with the timing line (VTT); the WEBVTT header block is
// skipped. Blocks with an unparseable timing line or no text are dropped
// rather than failing the whole document.
func ParseBlocks(content string) []RawCue {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var cues []RawCue
	for _, block := range blockSplitRE.Split(content, -1) {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(lines[0]), "WEBVTT") {
			continue
		}

		var (
			start, end float64
			ok         bool
			textLines  []string
		)
		if cueIndexRE.MatchString(lines[0]) && len(lines) >= 2 {
			start, end, ok = ParseTimeRange(lines[1])
			textLines = lines[2:]
		} else {
			start, end, ok = ParseTimeRange(lines[0])
			textLines = lines[1:]
		}
		if !ok {
			continue
		}

		text := strings.TrimSpace(strings.Join(textLines, " "))
		if text == "" {
			continue
		}
		cues = append(cues, RawCue{Start: start, End: end, Text: text})
	}
	return cues
}
