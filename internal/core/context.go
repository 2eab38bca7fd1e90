package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "actor"

// ContextWithActor records who started an operation, for the transfer
// history and logs. The web layer stores the client address, the CLI the
// local user.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

// ActorFromContext returns the actor set by ContextWithActor, or "".
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyActor).(string); ok {
		return v
	}
	return ""
}
