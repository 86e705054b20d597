package log

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLevels(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	defer func(old Level) { levelThreshold = old }(levelThreshold)

	rec := &RecordLogger{}
	UseLogger(rec)
	SetLevel(LevelWarn)

	Debug("skipped %d", 1)
	assert.Len(t, rec.Logs(), 0)

	Warn("warn %d", 1)
	assert.Equal(t, msg("WARN", "warn 1"), rec.Logs()[0])

	rec.Reset()
	SetLevel(LevelDebug)
	assert.True(t, DebugEnabled())
	Debug("debug %d", 2)
	assert.Equal(t, msg("DEBUG", "debug 2"), rec.Logs()[0])
}

func TestErrorCoalescing(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	defer func(old time.Duration) { errrate = old }(errrate)

	rec := &RecordLogger{}
	UseLogger(rec)
	SetLevel(LevelError)
	errrate = time.Hour

	Error("repeated %d", 1)
	Error("repeated %d", 2)
	Error("repeated %d", 3)
	Error("distinct")
	Flush()

	// Flush visits pending formats in map order, so sort before indexing.
	logs := rec.Logs()
	sort.Strings(logs)
	assert.Len(t, logs, 2)
	assert.Contains(t, logs[0], "distinct")
	assert.Contains(t, logs[1], "repeated 1, 2 additional messages skipped")

	// a second Flush with nothing pending is a no-op.
	rec.Reset()
	Flush()
	assert.Len(t, rec.Logs(), 0)
}

func TestErrorLimitForcesFlush(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	defer func(old time.Duration) { errrate = old }(errrate)

	rec := &RecordLogger{}
	UseLogger(rec)
	SetLevel(LevelError)
	errrate = time.Hour

	for i := 0; i < defaultErrorLimit+1; i++ {
		Error("hot path %d", i)
	}
	logs := rec.Logs()
	if assert.Len(t, logs, 1) {
		assert.Contains(t, logs[0], "hot path 0")
		assert.Contains(t, logs[0], "additional messages skipped")
	}
}

func TestErrorInstant(t *testing.T) {
	defer func(old Logger) { UseLogger(old) }(logger)
	defer func(old Level) { levelThreshold = old }(levelThreshold)
	defer func(old time.Duration) { errrate = old }(errrate)

	rec := &RecordLogger{}
	UseLogger(rec)
	SetLevel(LevelError)
	errrate = 0

	Error("fires immediately")
	assert.Len(t, rec.Logs(), 1)
}

func TestRecordLoggerIgnore(t *testing.T) {
	rec := &RecordLogger{}
	rec.Ignore("appsec")
	rec.Log("this is an appsec log")
	rec.Log("this is a tracer log")
	assert.Len(t, rec.Logs(), 1)
	assert.NotContains(t, rec.Logs()[0], "appsec")
}

func TestSetLoggingRate(t *testing.T) {
	cases := []struct {
		input  string
		result time.Duration
	}{
		{"", time.Minute},
		{"0", 0},
		{"10", 10 * time.Second},
		{"-1", time.Minute},
		{"not-a-number", time.Minute},
	}
	for _, tc := range cases {
		errrate = time.Minute
		setLoggingRate(tc.input)
		assert.Equal(t, tc.result, errrate)
	}
}
