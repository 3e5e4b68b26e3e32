package log

import (
	"context"
	"os"
	"time"

	"github.com/sagernet/sing/common"
	F "github.com/sagernet/sing/common/format"
	"github.com/sagernet/sing/common/observable"
)

type Factory interface {
	Start() error
	Close() error
	Level() Level
	SetLevel(level Level)
	Logger() ContextLogger
	NewLogger(tag string) ContextLogger
}

type ObservableFactory interface {
	Factory
	Subscribe() (subscription observable.Subscription[Entry], done <-chan struct{}, err error)
	UnSubscribe(subscription observable.Subscription[Entry])
}

var _ ObservableFactory = (*multiOutputFactory)(nil)

// multiOutputFactory fans every accepted entry out to a set of outputs.
type multiOutputFactory struct {
	ctx            context.Context
	outputs        []Output
	needObservable bool
	level          Level
	subscriber     *observable.Subscriber[Entry]
	observer       *observable.Observer[Entry]
}

// NewMultiOutputFactory creates a factory writing to outputs. Output write
// errors are discarded: logging never fails the host application.
func NewMultiOutputFactory(ctx context.Context, outputs []Output, needObservable bool) ObservableFactory {
	factory := &multiOutputFactory{
		ctx:            ctx,
		outputs:        outputs,
		needObservable: needObservable,
		level:          LevelTrace,
		subscriber:     observable.NewSubscriber[Entry](128),
	}
	if needObservable {
		factory.observer = observable.NewObserver[Entry](factory.subscriber, 64)
	}
	return factory
}

// Start initializes all outputs
func (f *multiOutputFactory) Start() error {
	for _, output := range f.outputs {
		if starter, isStarter := output.(OutputStarter); isStarter {
			if err := starter.Start(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes all outputs
func (f *multiOutputFactory) Close() error {
	var errors []error
	for _, output := range f.outputs {
		if err := output.Close(); err != nil {
			errors = append(errors, err)
		}
	}
	if err := f.subscriber.Close(); err != nil {
		errors = append(errors, err)
	}
	if len(errors) > 0 {
		return errors[0]
	}
	return nil
}

func (f *multiOutputFactory) Level() Level {
	return f.level
}

func (f *multiOutputFactory) SetLevel(level Level) {
	f.level = level
}

func (f *multiOutputFactory) Logger() ContextLogger {
	return f.NewLogger("")
}

func (f *multiOutputFactory) NewLogger(tag string) ContextLogger {
	return &multiOutputLogger{
		factory: f,
		tag:     tag,
	}
}

func (f *multiOutputFactory) Subscribe() (subscription observable.Subscription[Entry], done <-chan struct{}, err error) {
	if f.observer == nil {
		return nil, nil, common.ErrNotInitialized
	}
	return f.observer.Subscribe()
}

func (f *multiOutputFactory) UnSubscribe(sub observable.Subscription[Entry]) {
	if f.observer != nil {
		f.observer.UnSubscribe(sub)
	}
}

type multiOutputLogger struct {
	factory *multiOutputFactory
	tag     string
}

// Log builds the entry and hands it to every output synchronously. Outputs
// must not block here: the file output defers rotation and compression to
// its task queue, and the HTTP output only buffers.
func (l *multiOutputLogger) Log(ctx context.Context, level Level, args []any) {
	if level > l.factory.level {
		return
	}

	nowTime := time.Now()
	message := F.ToString(args...)

	entry := LogEntry{
		Timestamp: nowTime,
		Level:     level,
		Message:   message,
		Tag:       l.tag,
		Metadata:  MetadataFromContext(ctx),
	}

	for _, output := range l.factory.outputs {
		_ = output.Write(entry)
	}

	if l.factory.needObservable {
		l.factory.subscriber.Emit(Entry{level, message})
	}

	switch level {
	case LevelFatal:
		os.Exit(1)
	case LevelPanic:
		panic(message)
	}
}

// Convenience methods

func (l *multiOutputLogger) Trace(args ...any) {
	l.TraceContext(context.Background(), args...)
}

func (l *multiOutputLogger) Debug(args ...any) {
	l.DebugContext(context.Background(), args...)
}

func (l *multiOutputLogger) Info(args ...any) {
	l.InfoContext(context.Background(), args...)
}

func (l *multiOutputLogger) Warn(args ...any) {
	l.WarnContext(context.Background(), args...)
}

func (l *multiOutputLogger) Error(args ...any) {
	l.ErrorContext(context.Background(), args...)
}

func (l *multiOutputLogger) Fatal(args ...any) {
	l.FatalContext(context.Background(), args...)
}

func (l *multiOutputLogger) Panic(args ...any) {
	l.PanicContext(context.Background(), args...)
}

func (l *multiOutputLogger) TraceContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelTrace, args)
}

func (l *multiOutputLogger) DebugContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelDebug, args)
}

func (l *multiOutputLogger) InfoContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelInfo, args)
}

func (l *multiOutputLogger) WarnContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelWarn, args)
}

func (l *multiOutputLogger) ErrorContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelError, args)
}

func (l *multiOutputLogger) FatalContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelFatal, args)
}

func (l *multiOutputLogger) PanicContext(ctx context.Context, args ...any) {
	l.Log(ctx, LevelPanic, args)
}
