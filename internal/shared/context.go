package shared

import "context"

// Actor identifies who performs an engine call. It is always threaded
// explicitly; the engine never reads ambient request state.
type Actor struct {
	ID    int64
	OrgID int64
	Name  string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context for transport layers.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor; zero value when absent.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
