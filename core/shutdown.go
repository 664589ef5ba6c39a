package core

import (
	"context"
)

// ShutdownFunc is the signature of a cleanup handler run during graceful
// shutdown. Handlers receive a context that may carry a deadline and must
// be idempotent.
type ShutdownFunc func(ctx context.Context) error
