package log

import (
	"sort"
	"strconv"
	"strings"
	"time"

	F "github.com/sagernet/sing/common/format"

	"github.com/logrusorgru/aurora"
)

const DefaultTimestampFormat = "-0700 2006-01-02 15:04:05"

// Formatter renders one entry per line. The default away from FullTimestamp
// is a relative second counter since BaseTime, which keeps console output
// compact.
type Formatter struct {
	BaseTime         time.Time
	DisableColors    bool
	DisableTimestamp bool
	FullTimestamp    bool
	TimestampFormat  string
	DisableLineBreak bool
}

func (f Formatter) Format(level Level, tag string, message string, metadata map[string]any, timestamp time.Time) string {
	levelText := strings.ToUpper(FormatLevel(level))
	if !f.DisableColors {
		switch level {
		case LevelPanic, LevelFatal, LevelError:
			levelText = aurora.Red(levelText).String()
		case LevelWarn:
			levelText = aurora.Yellow(levelText).String()
		case LevelInfo:
			levelText = aurora.Cyan(levelText).String()
		default:
			levelText = aurora.White(levelText).String()
		}
	}
	if tag != "" {
		message = tag + ": " + message
	}
	if len(metadata) > 0 {
		message = message + " " + formatMetadata(metadata)
	}
	timestampFormat := f.TimestampFormat
	if timestampFormat == "" {
		timestampFormat = DefaultTimestampFormat
	}
	var messageText string
	switch {
	case f.DisableTimestamp:
		messageText = levelText + " " + message
	case f.FullTimestamp:
		messageText = timestamp.Format(timestampFormat) + " " + levelText + " " + message
	default:
		duration := timestamp.Sub(f.BaseTime) / time.Second
		if duration < 0 {
			duration = 0
		}
		messageText = levelText + "[" + formatDuration(int(duration)) + "] " + message
	}
	if !f.DisableLineBreak && !strings.HasSuffix(messageText, "\n") {
		messageText += "\n"
	}
	return messageText
}

// formatMetadata renders metadata as sorted key=value pairs so identical
// entries format identically.
func formatMetadata(metadata map[string]any) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, key+"="+F.ToString(metadata[key]))
	}
	return strings.Join(fields, " ")
}

func formatDuration(seconds int) string {
	text := strconv.Itoa(seconds)
	if len(text) >= 4 {
		return text
	}
	return strings.Repeat("0", 4-len(text)) + text
}
