package identity

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Actor is the authenticated caller of an operation. The core trusts it and
// never re-derives it.
type Actor struct {
	MemberID string `json:"member_id"`
	Admin    bool   `json:"admin"`
}

const actorKey = "actor"

// ActorFrom returns the actor placed on the gin context by Middleware.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok && actor.MemberID != ""
}

func setActor(c *gin.Context, actor Actor) {
	c.Set(actorKey, actor)
}

// MemberLookup resolves identities to members. Implemented by the member service.
type MemberLookup interface {
	ResolveActor(ctx context.Context, email string) (Actor, error)
	ActorByID(ctx context.Context, memberID string) (Actor, error)
}
