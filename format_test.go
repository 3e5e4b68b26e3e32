package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatter_Plain(t *testing.T) {
	formatter := Formatter{
		DisableColors:    true,
		DisableTimestamp: true,
	}
	message := formatter.Format(LevelInfo, "", "started", nil, time.Now())
	assert.Equal(t, "INFO started\n", message)
}

func TestFormatter_Tag(t *testing.T) {
	formatter := Formatter{
		DisableColors:    true,
		DisableTimestamp: true,
	}
	message := formatter.Format(LevelWarn, "router", "no route matched", nil, time.Now())
	assert.Equal(t, "WARN router: no route matched\n", message)
}

func TestFormatter_FullTimestamp(t *testing.T) {
	formatter := Formatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	timestamp := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	message := formatter.Format(LevelError, "", "boom", nil, timestamp)
	assert.Equal(t, "2024-01-15 08:30:00 ERROR boom\n", message)
}

func TestFormatter_RelativeTimestamp(t *testing.T) {
	baseTime := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	formatter := Formatter{
		BaseTime:      baseTime,
		DisableColors: true,
	}
	message := formatter.Format(LevelDebug, "", "tick", nil, baseTime.Add(3*time.Second))
	assert.Equal(t, "DEBUG[0003] tick\n", message)
}

// Metadata renders as sorted key=value pairs so identical entries format
// identically.
func TestFormatter_Metadata(t *testing.T) {
	formatter := Formatter{
		DisableColors:    true,
		DisableTimestamp: true,
	}
	metadata := map[string]any{
		"user":    "alice",
		"attempt": 2,
	}
	message := formatter.Format(LevelInfo, "", "login", metadata, time.Now())
	assert.Equal(t, "INFO login attempt=2 user=alice\n", message)
}

func TestFormatter_DisableLineBreak(t *testing.T) {
	formatter := Formatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableLineBreak: true,
	}
	message := formatter.Format(LevelInfo, "", "started", nil, time.Now())
	assert.Equal(t, "INFO started", message)
}

func TestParseLevel(t *testing.T) {
	for _, testCase := range []struct {
		input    string
		expected Level
	}{
		{"trace", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"panic", LevelPanic},
	} {
		level, err := ParseLevel(testCase.input)
		assert.NoError(t, err, testCase.input)
		assert.Equal(t, testCase.expected, level, testCase.input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
