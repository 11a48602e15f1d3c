package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"skillswap/pkg/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	SessionCookie = "skillswap_session"
	stateCookie   = "skillswap_oauth_state"
)

type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDC runs the authorization-code login and verifies ID tokens.
type OIDC struct {
	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
	sessions SessionStore
	members  MemberLookup
	logger   logger.Logger
}

// NewOIDC discovers the issuer's endpoints.
func NewOIDC(ctx context.Context, cfg OIDCConfig, sessions SessionStore, members MemberLookup, log logger.Logger) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
	}

	return &OIDC{
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		sessions: sessions,
		members:  members,
		logger:   log,
	}, nil
}

// VerifyToken resolves a raw ID token to the acting member.
func (o *OIDC) VerifyToken(ctx context.Context, rawIDToken string) (Actor, error) {
	token, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return Actor{}, fmt.Errorf("verify id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := token.Claims(&claims); err != nil {
		return Actor{}, fmt.Errorf("decode claims: %w", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return Actor{}, errors.New("id token has no verified email")
	}

	return o.members.ResolveActor(ctx, claims.Email)
}

// LoginHandler redirects to the issuer with a fresh state value
func (o *OIDC) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := randomState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(stateCookie, state, 600, "/", "", true, true)
		c.Redirect(http.StatusFound, o.oauth2.AuthCodeURL(state))
	}
}

// CallbackHandler exchanges the code, verifies the ID token and opens a session
func (o *OIDC) CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		state, err := c.Cookie(stateCookie)
		if err != nil || state == "" || state != c.Query("state") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
			return
		}

		token, err := o.oauth2.Exchange(ctx, c.Query("code"))
		if err != nil {
			o.logger.Warn(ctx, "oauth2 code exchange failed", logger.Field{Key: "error", Value: err})
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
			return
		}

		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
			return
		}

		actor, err := o.VerifyToken(ctx, rawIDToken)
		if err != nil {
			o.logger.Warn(ctx, "id token rejected", logger.Field{Key: "error", Value: err})
			c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
			return
		}

		sessionToken, err := o.sessions.Create(ctx, actor.MemberID)
		if err != nil {
			o.logger.Error(ctx, "failed to create session", logger.Field{Key: "error", Value: err})
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(stateCookie, "", -1, "/", "", true, true)
		c.SetCookie(SessionCookie, sessionToken, 0, "/", "", true, true)
		o.logger.Info(ctx, "member logged in", logger.Field{Key: "member_id", Value: actor.MemberID})
		c.JSON(http.StatusOK, actor)
	}
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
