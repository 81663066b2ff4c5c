package murmur

import "context"

// Executor turns a cleaned transcript into the spoken response. An
// empty response means nothing should be said.
type Executor interface {
	Execute(ctx context.Context, text string) (string, error)
}

type ExecutorFunc func(ctx context.Context, text string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
