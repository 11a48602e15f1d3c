package identity

import (
	"context"
	"net/http"
	"strings"

	"skillswap/pkg/logger"

	"github.com/gin-gonic/gin"
)

// MemberIDHeader carries the acting member when identity is asserted by a
// trusted gateway in front of the service.
const MemberIDHeader = "X-Member-ID"

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, rawIDToken string) (Actor, error)
}

// Authenticator resolves the actor of each request.
type Authenticator struct {
	sessions    SessionStore
	members     MemberLookup
	verifier    TokenVerifier
	trustHeader bool
	logger      logger.Logger
}

// NewAuthenticator builds the request authenticator. verifier may be nil
// when OIDC is not configured.
func NewAuthenticator(sessions SessionStore, members MemberLookup, verifier TokenVerifier, trustHeader bool, log logger.Logger) *Authenticator {
	return &Authenticator{
		sessions:    sessions,
		members:     members,
		verifier:    verifier,
		trustHeader: trustHeader,
		logger:      log,
	}
}

// Middleware rejects requests without a resolvable actor.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := a.resolve(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		setActor(c, actor)
		c.Next()
	}
}

// LogoutHandler drops the caller's session
func (a *Authenticator) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
			if err := a.sessions.Delete(c.Request.Context(), token); err != nil {
				a.logger.Warn(c.Request.Context(), "failed to delete session", logger.Field{Key: "error", Value: err})
			}
		}
		c.SetCookie(SessionCookie, "", -1, "/", "", true, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

func (a *Authenticator) resolve(c *gin.Context) (Actor, bool) {
	ctx := c.Request.Context()

	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		if memberID, err := a.sessions.Lookup(ctx, token); err == nil {
			return a.byID(ctx, memberID)
		}
	}

	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok && a.verifier != nil {
		actor, err := a.verifier.VerifyToken(ctx, strings.TrimSpace(bearer))
		if err != nil {
			a.logger.Debug(ctx, "bearer token rejected", logger.Field{Key: "error", Value: err})
			return Actor{}, false
		}
		return actor, true
	}

	if a.trustHeader {
		if memberID := c.GetHeader(MemberIDHeader); memberID != "" {
			return a.byID(ctx, memberID)
		}
	}

	return Actor{}, false
}

func (a *Authenticator) byID(ctx context.Context, memberID string) (Actor, bool) {
	actor, err := a.members.ActorByID(ctx, memberID)
	if err != nil {
		return Actor{}, false
	}
	return actor, true
}

// RequireAdmin rejects actors without the admin role. It must run after
// Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !actor.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
