package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParseBlocksSRT(t *testing.T) {
	content := "1\n00:00:01,000 --> 00:00:02,000\nHello there\n\n2\n00:00:03,000 --> 00:00:04,000\nSecond line\nwrapped text\n"

	cues := ParseBlocks(content)
	require.Len(t, cues, 2)
	assert.InDelta(t, 1.0, cues[0].Start, 1e-9)
	assert.InDelta(t, 2.0, cues[0].End, 1e-9)
	assert.Equal(t, "Hello there", cues[0].Text)
	assert.Equal(t, "Second line wrapped text", cues[1].Text)
}

func TestParseBlocksVTT(t *testing.T) {
	content := "WEBVTT\nKind: captions\n\n00:00:01.000 --> 00:00:02.000\nHello\n\n00:00:03.000 --> 00:00:04.000\nWorld\n"

	cues := ParseBlocks(content)
	require.Len(t, cues, 2)
	assert.Equal(t, "Hello", cues[0].Text)
	assert.Equal(t, "World", cues[1].Text)
}

func TestParseBlocksSkipsBrokenBlocks(t *testing.T) {
	content := "1\nnot a timestamp\nsome text\n\n2\n00:00:03,000 --> 00:00:04,000\nGood cue\n\n3\n00:00:05,000 --> 00:00:06,000\n"

	cues := ParseBlocks(content)
	require.Len(t, cues, 1)
	assert.Equal(t, "Good cue", cues[0].Text)
}

func TestParseBlocksEmpty(t *testing.T) {
	assert.Nil(t, ParseBlocks(""))
	assert.Nil(t, ParseBlocks("   \n  \n"))
}

func TestDetectLanguageMajority(t *testing.T) {
	cues := []SentenceCue{
		{English: "Hello world, this is a test sentence."},
		{English: "Another English sentence to weigh the vote."},
		{English: "這是一句中文。"},
	}
	lang := DetectLanguage(cues)
	assert.Equal(t, language.English, lang)

	assert.Equal(t, language.Und, DetectLanguage(nil))
}
