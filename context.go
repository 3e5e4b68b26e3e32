package log

import (
	"context"
)

type metadataKey struct{}

// ContextWithMetadata attaches a metadata map that loggers created by a
// factory copy into every entry logged with this context.
func ContextWithMetadata(ctx context.Context, metadata map[string]any) context.Context {
	return context.WithValue(ctx, metadataKey{}, metadata)
}

func MetadataFromContext(ctx context.Context) map[string]any {
	metadata, _ := ctx.Value(metadataKey{}).(map[string]any)
	return metadata
}
