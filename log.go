package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sagernet/sing-log/option"
	"github.com/sagernet/sing-log/rotate"
	"github.com/sagernet/sing-log/taskqueue"
	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"
)

type (
	Logger        = logger.Logger
	ContextLogger = logger.ContextLogger
)

type Options struct {
	Context       context.Context
	Options       option.LogOptions
	Observable    bool
	DefaultWriter io.Writer
	BaseTime      time.Time

	// Queue serializes rotation and compression work for every file output
	// built by this factory. Passing the same queue to multiple factories
	// keeps one shared drain loop; if nil a private queue is created.
	Queue *taskqueue.Queue
}

func New(options Options) (Factory, error) {
	logOptions := options.Options

	if logOptions.Disabled {
		return NewNOPFactory(), nil
	}

	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}
	queue := options.Queue
	if queue == nil {
		queue = taskqueue.New(taskqueue.Options{})
	}

	var outputs []Output
	if len(logOptions.Outputs) > 0 {
		for i, outputConfig := range logOptions.Outputs {
			output, err := createOutput(outputConfig, options, queue)
			if err != nil {
				return nil, E.Cause(err, "create output ", i)
			}
			outputs = append(outputs, output)
		}
	} else {
		// Legacy single output mode (backward compatibility)
		output, err := createLegacyOutput(logOptions, options, queue)
		if err != nil {
			return nil, E.Cause(err, "create legacy output")
		}
		outputs = []Output{output}
	}

	factory := NewMultiOutputFactory(ctx, outputs, options.Observable)

	if logOptions.Level != "" {
		logLevel, err := ParseLevel(logOptions.Level)
		if err != nil {
			return nil, E.Cause(err, "parse log level")
		}
		factory.SetLevel(logLevel)
	} else {
		factory.SetLevel(LevelTrace)
	}

	return factory, nil
}

// createLegacyOutput creates an output from legacy single-output configuration
func createLegacyOutput(logOptions option.LogOptions, options Options, queue *taskqueue.Queue) (Output, error) {
	var logWriter io.Writer

	switch logOptions.Output {
	case "":
		logWriter = options.DefaultWriter
		if logWriter == nil {
			logWriter = os.Stderr
		}
	case "stderr":
		logWriter = os.Stderr
	case "stdout":
		logWriter = os.Stdout
	default:
		return createFileOutput(option.LogOutput{
			Type:      "file",
			Path:      logOptions.Output,
			Timestamp: logOptions.Timestamp,
		}, options, queue)
	}

	logFormatter := Formatter{
		BaseTime:        options.BaseTime,
		DisableColors:   logOptions.DisableColor,
		FullTimestamp:   logOptions.Timestamp,
		TimestampFormat: DefaultTimestampFormat,
	}
	return NewFormattedOutput(logFormatter, logWriter), nil
}

// createOutput creates an output from the multi-output configuration
func createOutput(config option.LogOutput, options Options, queue *taskqueue.Queue) (Output, error) {
	switch config.Type {
	case "stdout":
		return createStdOutput(config, options, os.Stdout)
	case "stderr":
		return createStdOutput(config, options, os.Stderr)
	case "file":
		return createFileOutput(config, options, queue)
	case "http":
		return CreateHTTPOutput(config, options.BaseTime)
	default:
		return nil, E.New("unknown output type: ", config.Type)
	}
}

// createStdOutput creates a stdout/stderr output
func createStdOutput(config option.LogOutput, options Options, writer io.Writer) (Output, error) {
	if config.Format == "json" {
		return NewJSONOutput(writer, config.Hostname, config.Version), nil
	}

	formatter := Formatter{
		BaseTime:         options.BaseTime,
		DisableColors:    config.DisableColor,
		DisableTimestamp: !config.Timestamp,
		FullTimestamp:    config.Timestamp,
		TimestampFormat:  DefaultTimestampFormat,
	}
	return NewFormattedOutput(formatter, writer), nil
}

// createFileOutput creates a file output with its rotation engine
func createFileOutput(config option.LogOutput, options Options, queue *taskqueue.Queue) (Output, error) {
	if config.Path == "" {
		return nil, E.New("file output requires path")
	}

	compress := true
	if config.Compress != nil {
		compress = *config.Compress
	}
	writer, err := rotate.NewWriter(rotate.Options{
		FilePath:    config.Path,
		Pattern:     config.Pattern,
		Trigger:     rotate.Trigger(config.Rotation),
		MaxFileSize: config.MaxFileSize,
		Compress:    compress,
		MaxFiles:    config.Cleanup.MaxFiles,
		MaxDays:     config.Cleanup.MaxDays,
		Queue:       queue,
	})
	if err != nil {
		return nil, E.Cause(err, "create rotating writer")
	}

	if config.Format == "json" {
		return NewJSONFileOutput(writer, config.Hostname, config.Version), nil
	}

	formatter := Formatter{
		BaseTime:         options.BaseTime,
		DisableColors:    true,
		DisableTimestamp: !config.Timestamp,
		FullTimestamp:    config.Timestamp,
		TimestampFormat:  DefaultTimestampFormat,
	}
	return NewFileOutput(writer, formatter), nil
}
