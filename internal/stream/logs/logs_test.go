package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTimestamp_RFC3339Prefix(t *testing.T) {
	ts, msg := splitTimestamp("2024-01-15T10:30:00.123456789Z container started successfully")
	assert.Equal(t, "2024-01-15T10:30:00.123456789Z", ts)
	assert.Equal(t, "container started successfully", msg)
}

func TestSplitTimestamp_NoTimestamp(t *testing.T) {
	ts, msg := splitTimestamp("plain log line with no leading timestamp")
	assert.Empty(t, ts)
	assert.Equal(t, "plain log line with no leading timestamp", msg)
}

func TestSplitTimestamp_ShortLine(t *testing.T) {
	ts, msg := splitTimestamp("short")
	assert.Empty(t, ts)
	assert.Equal(t, "short", msg)
}

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions(Options{})
	assert.True(t, o.Follow)
	assert.True(t, o.Timestamps)
	assert.Equal(t, int64(100), o.TailLines)
}

func TestDefaultOptions_PreservesExplicitTailLines(t *testing.T) {
	o := defaultOptions(Options{TailLines: 50})
	assert.Equal(t, int64(50), o.TailLines)
}
