package option

import (
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/json"
)

type LogOptions struct {
	Disabled     bool        `json:"disabled,omitempty"`
	Level        string      `json:"level,omitempty"`
	Output       string      `json:"output,omitempty"`
	Timestamp    bool        `json:"timestamp,omitempty"`
	DisableColor bool        `json:"disable_color,omitempty"`
	Outputs      []LogOutput `json:"outputs,omitempty"`
}

// CleanupOptions bounds the set of rotated files kept on disk. MaxFiles
// limits generation count (size and hybrid rotation), MaxDays limits
// date-bucket age (date and hybrid rotation).
type CleanupOptions struct {
	MaxFiles int `json:"max_files,omitempty"`
	MaxDays  int `json:"max_days,omitempty"`
}

type _LogOutput struct {
	Type         string `json:"type"`
	Format       string `json:"format,omitempty"`
	DisableColor bool   `json:"disable_color,omitempty"`
	Timestamp    bool   `json:"timestamp,omitempty"`
	Hostname     string `json:"hostname,omitempty"`
	Version      string `json:"version,omitempty"`

	// File outputs
	Path        string         `json:"path,omitempty"`
	Pattern     string         `json:"pattern,omitempty"`
	Rotation    string         `json:"rotation,omitempty"`
	MaxFileSize int64          `json:"max_file_size,omitempty"`
	Compress    *bool          `json:"compress,omitempty"`
	Cleanup     CleanupOptions `json:"cleanup,omitempty"`

	// HTTP outputs
	URL           string `json:"url,omitempty"`
	JWTToken      string `json:"jwt_token,omitempty"`
	BatchSize     int    `json:"batch_size,omitempty"`
	FlushInterval string `json:"flush_interval,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
}

type LogOutput _LogOutput

func (o *LogOutput) UnmarshalJSON(content []byte) error {
	err := json.UnmarshalDisallowUnknownFields(content, (*_LogOutput)(o))
	if err != nil {
		return err
	}
	switch o.Type {
	case "stdout", "stderr", "file", "http":
	default:
		return E.New("unknown output type: ", o.Type)
	}
	switch o.Rotation {
	case "", "size", "date", "hybrid":
	default:
		return E.New("unknown rotation mode: ", o.Rotation)
	}
	if o.Type == "file" && o.Path == "" {
		return E.New("file output requires path")
	}
	if o.Type == "http" && o.URL == "" {
		return E.New("http output requires url")
	}
	return nil
}
