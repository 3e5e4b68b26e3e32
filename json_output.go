package log

import (
	"encoding/json"
	"io"
	"time"
)

var _ Output = (*JSONOutput)(nil)

// JSONOutput writes one JSON document per entry.
type JSONOutput struct {
	encoder  *json.Encoder
	hostname string
	version  string
}

func NewJSONOutput(writer io.Writer, hostname string, version string) Output {
	return &JSONOutput{
		encoder:  json.NewEncoder(writer),
		hostname: hostname,
		version:  version,
	}
}

func (o *JSONOutput) Write(entry LogEntry) error {
	return o.encoder.Encode(buildJSONDocument(entry, o.hostname, o.version))
}

func (o *JSONOutput) Close() error {
	return nil
}

// buildJSONDocument builds the wire document shared by the JSON, file and
// HTTP outputs.
func buildJSONDocument(entry LogEntry, hostname string, version string) map[string]any {
	doc := make(map[string]any)
	doc["@timestamp"] = entry.Timestamp.UTC().Format(time.RFC3339Nano)
	doc["level"] = FormatLevel(entry.Level)
	doc["message"] = entry.Message
	if entry.Tag != "" {
		doc["tag"] = entry.Tag
	}
	if len(entry.Metadata) > 0 {
		metadata := make(map[string]any, len(entry.Metadata))
		for key, value := range entry.Metadata {
			metadata[key] = value
		}
		doc["metadata"] = metadata
	}
	host := make(map[string]any)
	if hostname != "" {
		host["hostname"] = hostname
	}
	if version != "" {
		host["version"] = version
	}
	if len(host) > 0 {
		doc["host"] = host
	}
	return doc
}
