package httpapi

import "context"

// serverBaseCtx ties handler work to process lifetime. main cancels it
// on shutdown so long-running calls (pulls, inference) stop even when
// their client connections stay open.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-lifetime context. A nil ctx
// resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from the request context that is also
// canceled when the server context ends. The returned cancel releases
// the watcher and must be called when the handler returns.
func joinContexts(server, request context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(request)
	stop := context.AfterFunc(server, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
