package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertTimedTextEvents(t *testing.T) {
	data := []byte(`{"events":[
		{"tStartMs":1000,"dDurationMs":2000,"segs":[{"utf8":"Hello"},{"utf8":"there"}]},
		{"tStartMs":4000,"dDurationMs":1500,"segs":[{"utf8":"World"}]},
		{"tStartMs":6000,"dDurationMs":1000},
		{"dDurationMs":1000,"segs":[{"utf8":"no start"}]}
	]}`)

	srt, err := ConvertTimedText(data)
	require.NoError(t, err)

	cues := ParseBlocks(srt)
	require.Len(t, cues, 2)
	assert.Equal(t, "Hello there", cues[0].Text)
	assert.InDelta(t, 1.0, cues[0].Start, 1e-9)
	assert.InDelta(t, 3.0, cues[0].End, 1e-9)
	assert.Equal(t, "World", cues[1].Text)
	assert.InDelta(t, 4.0, cues[1].Start, 1e-9)
	assert.InDelta(t, 5.5, cues[1].End, 1e-9)
}

func TestConvertTimedTextBareArray(t *testing.T) {
	data := []byte(`[{"tStartMs":0,"dDurationMs":1000,"segs":[{"utf8":"First"}]}]`)

	srt, err := ConvertTimedText(data)
	require.NoError(t, err)

	cues := ParseBlocks(srt)
	require.Len(t, cues, 1)
	assert.Equal(t, "First", cues[0].Text)
}

func TestConvertTimedTextUnrecognized(t *testing.T) {
	_, err := ConvertTimedText([]byte(`"just a string"`))
	assert.Error(t, err)
}

func TestConvertTimedTextZeroStart(t *testing.T) {
	// tStartMs of zero is a valid start, not a missing one.
	data := []byte(`{"events":[{"tStartMs":0,"dDurationMs":500,"segs":[{"utf8":"Zero"}]}]}`)

	srt, err := ConvertTimedText(data)
	require.NoError(t, err)
	assert.Contains(t, srt, "00:00:00,000 --> 00:00:00,500")
}
