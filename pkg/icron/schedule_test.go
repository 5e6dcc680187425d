package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfoDescriptor(t *testing.T) {
	ref := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@hourly", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfoFiveFieldExpression(t *testing.T) {
	ref := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("15 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 11, 15, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 15*time.Minute, info.TimeSinceLast)
}

func TestGetTriggerInfoInvalidExpression(t *testing.T) {
	_, err := GetTriggerInfo("not a cron expr", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
