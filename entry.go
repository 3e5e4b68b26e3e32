package log

import (
	"time"
)

// LogEntry is the unit handed to every output. It is produced by the
// factory's loggers, consumed immediately by the outputs and never retained
// past the write.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Tag       string
	Metadata  map[string]any
}

// Entry is the reduced form emitted to observable subscribers.
type Entry struct {
	Level   Level
	Message string
}

// Output is a log sink. Write errors are discarded at the transport
// boundary: the logging subsystem never surfaces failures to the host
// application.
type Output interface {
	// Write writes a log entry to the output
	Write(entry LogEntry) error
	// Close flushes and closes the output
	Close() error
}

// OutputStarter is implemented by outputs that acquire resources after
// construction, typically file handles.
type OutputStarter interface {
	Start() error
}
