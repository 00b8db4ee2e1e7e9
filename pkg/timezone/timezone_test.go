package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	r, err := New("Asia/Seoul")
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", r.Resolve("Europe/Berlin", "America/New_York").String())
	assert.Equal(t, "America/New_York", r.Resolve("", "America/New_York").String())
	assert.Equal(t, "America/New_York", r.Resolve("Mars/Olympus", "America/New_York").String())
	assert.Equal(t, "Asia/Seoul", r.Resolve("", "").String())
}

func TestNewRejectsBadDefault(t *testing.T) {
	_, err := New("Nowhere/Land")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	ts := time.Date(2026, 1, 15, 20, 0, 0, 0, time.UTC).Unix()
	times := r.Format(ts, "Asia/Seoul", "Europe/Berlin")

	assert.Equal(t, "Fri 16 Jan 05:00 KST", times.Viewer)
	assert.Equal(t, "Thu 15 Jan 21:00 CET", times.Server)
	require.Len(t, times.Regions, 6)
	assert.Equal(t, RegionTime{Label: "UTC", Text: "Thu 15 Jan 20:00 UTC"}, times.Regions[2])
}

func TestParse(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	ts, err := Parse(" 2026-01-02 21:00 ", seoul)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC).Unix(), ts)

	_, err = Parse("tomorrow", seoul)
	assert.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("UTC"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("Mars/Olympus"))
}
