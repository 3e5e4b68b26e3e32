package log

import (
	"encoding/json"

	"github.com/sagernet/sing-log/rotate"
)

var _ Output = (*FileOutput)(nil)

// FileOutput appends formatted entries to a rotating log file. Append and
// rotation failures are reported to the rotate writer's logger at most and
// never propagate to the dispatcher: losing entries beats destabilizing the
// host process.
type FileOutput struct {
	writer  *rotate.Writer
	marshal func(entry LogEntry) ([]byte, error)
}

func NewFileOutput(writer *rotate.Writer, formatter Formatter) Output {
	// Colors never belong in files.
	formatter.DisableColors = true
	return &FileOutput{
		writer: writer,
		marshal: func(entry LogEntry) ([]byte, error) {
			return []byte(formatter.Format(entry.Level, entry.Tag, entry.Message, entry.Metadata, entry.Timestamp)), nil
		},
	}
}

func NewJSONFileOutput(writer *rotate.Writer, hostname string, version string) Output {
	return &FileOutput{
		writer: writer,
		marshal: func(entry LogEntry) ([]byte, error) {
			content, err := json.Marshal(buildJSONDocument(entry, hostname, version))
			if err != nil {
				return nil, err
			}
			return append(content, '\n'), nil
		},
	}
}

func (o *FileOutput) Write(entry LogEntry) error {
	message, err := o.marshal(entry)
	if err != nil {
		return nil
	}
	_ = o.writer.WriteEntry(message, entry.Timestamp)
	return nil
}

func (o *FileOutput) Close() error {
	return o.writer.Close()
}

// Writer exposes the rotation engine, mainly so callers can trigger a
// manual rotation or cleanup sweep.
func (o *FileOutput) Writer() *rotate.Writer {
	return o.writer
}
