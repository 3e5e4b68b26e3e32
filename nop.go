package log

import (
	"context"

	"github.com/sagernet/sing/common"
	"github.com/sagernet/sing/common/observable"
)

var _ ObservableFactory = (*nopFactory)(nil)

type nopFactory struct{}

// NewNOPFactory returns a factory that accepts and discards everything.
func NewNOPFactory() ObservableFactory {
	return (*nopFactory)(nil)
}

func (f *nopFactory) Start() error {
	return nil
}

func (f *nopFactory) Close() error {
	return nil
}

func (f *nopFactory) Level() Level {
	return LevelTrace
}

func (f *nopFactory) SetLevel(level Level) {
}

func (f *nopFactory) Logger() ContextLogger {
	return (*nopLogger)(nil)
}

func (f *nopFactory) NewLogger(tag string) ContextLogger {
	return (*nopLogger)(nil)
}

func (f *nopFactory) Subscribe() (subscription observable.Subscription[Entry], done <-chan struct{}, err error) {
	return nil, nil, common.ErrNotInitialized
}

func (f *nopFactory) UnSubscribe(subscription observable.Subscription[Entry]) {
}

type nopLogger struct{}

func (l *nopLogger) Trace(args ...any) {}
func (l *nopLogger) Debug(args ...any) {}
func (l *nopLogger) Info(args ...any)  {}
func (l *nopLogger) Warn(args ...any)  {}
func (l *nopLogger) Error(args ...any) {}
func (l *nopLogger) Fatal(args ...any) {}
func (l *nopLogger) Panic(args ...any) {}

func (l *nopLogger) TraceContext(ctx context.Context, args ...any) {}
func (l *nopLogger) DebugContext(ctx context.Context, args ...any) {}
func (l *nopLogger) InfoContext(ctx context.Context, args ...any)  {}
func (l *nopLogger) WarnContext(ctx context.Context, args ...any)  {}
func (l *nopLogger) ErrorContext(ctx context.Context, args ...any) {}
func (l *nopLogger) FatalContext(ctx context.Context, args ...any) {}
func (l *nopLogger) PanicContext(ctx context.Context, args ...any) {}
