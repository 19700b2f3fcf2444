package shared

import "context"

type actorContextKey struct{}

// ContextWithActorID stores the acting user's ID for downstream audit trails.
func ContextWithActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, id)
}

// ActorIDFromContext extracts the acting user's ID, zero when absent.
func ActorIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorContextKey{}).(int64)
	return id
}
