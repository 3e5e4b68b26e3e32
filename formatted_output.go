package log

import (
	"io"
)

var _ Output = (*FormattedOutput)(nil)

// FormattedOutput renders entries through a Formatter into an io.Writer,
// typically a console stream.
type FormattedOutput struct {
	formatter Formatter
	writer    io.Writer
}

func NewFormattedOutput(formatter Formatter, writer io.Writer) Output {
	return &FormattedOutput{
		formatter: formatter,
		writer:    writer,
	}
}

func (o *FormattedOutput) Write(entry LogEntry) error {
	if o.writer == nil {
		return nil
	}
	message := o.formatter.Format(entry.Level, entry.Tag, entry.Message, entry.Metadata, entry.Timestamp)
	_, err := o.writer.Write([]byte(message))
	return err
}

func (o *FormattedOutput) Close() error {
	return nil
}
