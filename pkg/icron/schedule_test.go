package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_Daily(t *testing.T) {
	ref := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 0 * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 15*time.Hour+30*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 8*time.Hour+30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_RefOnActivation(t *testing.T) {
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("*/15 * * * *", ref)
	require.NoError(t, err)
	assert.Equal(t, ref, info.Last)
	assert.Equal(t, ref.Add(15*time.Minute), info.Next)
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a cron", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
