package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdleTimeSeconds(t *testing.T) {
	for _, s := range []string{"1s", "1sec", "1second", "1S", "1Sec", "1SeCoNd", "1 S"} {
		d, err := ParseIdleTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Second, d, s)
	}

	d, err := ParseIdleTime("1123 sec")
	require.NoError(t, err)
	assert.Equal(t, 1123*time.Second, d)

	d, err = ParseIdleTime("99     sec")
	require.NoError(t, err)
	assert.Equal(t, 99*time.Second, d)
}

func TestParseIdleTimeMinutes(t *testing.T) {
	for _, s := range []string{"1m", "1min", "1minute", "1M", "1MiN", "1MiNuTe", "1 M"} {
		d, err := ParseIdleTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Minute, d, s)
	}

	d, err := ParseIdleTime("1123 Minute")
	require.NoError(t, err)
	assert.Equal(t, 1123*time.Minute, d)
}

func TestParseIdleTimeHours(t *testing.T) {
	for _, s := range []string{"1h", "1hour", "1H", "1HouR", "1 H"} {
		d, err := ParseIdleTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, time.Hour, d, s)
	}

	d, err := ParseIdleTime("99     hour")
	require.NoError(t, err)
	assert.Equal(t, 99*time.Hour, d)
}

func TestParseIdleTimeFailures(t *testing.T) {
	for _, s := range []string{"", "   ", "-1h", "1", "minute", "0minute", "1 lightyear"} {
		_, err := ParseIdleTime(s)
		assert.Error(t, err, "%q should not parse", s)
	}
}
