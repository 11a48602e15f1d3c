package app

import (
	"context"
	"net/http"
	"time"

	_ "skillswap/docs"
	"skillswap/internal/identity"
	"skillswap/internal/service/matching"
	"skillswap/internal/service/member"
	"skillswap/internal/service/moderation"
	"skillswap/internal/service/rating"
	"skillswap/internal/service/swap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Routes struct {
	r    *gin.Engine
	auth *identity.Authenticator
}

func NewRoutes(r *gin.Engine, auth *identity.Authenticator) *Routes {
	return &Routes{
		r:    r,
		auth: auth,
	}
}

func (o *Routes) setupCORS(origins []string) {
	o.r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", identity.MemberIDHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}

func (o *Routes) setupInfraRoutes(health func(context.Context) error) {
	o.r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	o.r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	o.r.GET("/docs", docsHandler)
	o.r.GET("/healthz", func(c *gin.Context) {
		if err := health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// setupAuthRoutes registers login endpoints. oidc is nil when no issuer is
// configured, in which case only logout is exposed.
func (o *Routes) setupAuthRoutes(oidc *identity.OIDC) {
	auth := o.r.Group("/auth")
	{
		auth.POST("/logout", o.auth.LogoutHandler())
		if oidc != nil {
			auth.GET("/login", oidc.LoginHandler())
			auth.GET("/callback", oidc.CallbackHandler())
		}
	}
}

func docsHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	html := `<!DOCTYPE html>
<html>
  <head>
    <title>Skill Swap API</title>
    <meta charset="utf-8"/>
  </head>
  <body>
    <redoc spec-url="/swagger/doc.json"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
  </body>
</html>`
	c.String(http.StatusOK, html)
}

// setupMemberRoutes registers profile endpoints
func (o *Routes) setupMemberRoutes(h *member.Handler) {
	o.r.POST("/members", h.Register)

	authorized := o.r.Group("/", o.auth.Middleware())
	{
		authorized.GET("/members/:id", h.GetMember)
		authorized.GET("/profile", h.GetProfile)
		authorized.PUT("/profile", h.UpdateProfile)
		authorized.PUT("/profile/skills", h.UpdateSkills)
		authorized.PUT("/profile/visibility", h.UpdateVisibility)
	}
}

// setupMatchingRoutes registers discovery endpoints
func (o *Routes) setupMatchingRoutes(h *matching.Handler) {
	authorized := o.r.Group("/", o.auth.Middleware())
	{
		authorized.GET("/matches", h.GetMatches)
		authorized.GET("/browse", h.Browse)
	}
}

// setupSwapRoutes registers the swap request lifecycle and rating endpoints
func (o *Routes) setupSwapRoutes(h *swap.Handler, rh *rating.Handler) {
	swaps := o.r.Group("/swaps", o.auth.Middleware())
	{
		swaps.POST("", h.CreateRequest)
		swaps.GET("", h.ListRequests)
		swaps.GET("/:id", h.GetRequest)
		swaps.POST("/:id/accept", h.Transition(swap.TransitionAccept))
		swaps.POST("/:id/reject", h.Transition(swap.TransitionReject))
		swaps.POST("/:id/cancel", h.Transition(swap.TransitionCancel))
		swaps.POST("/:id/complete", h.Transition(swap.TransitionComplete))
		swaps.POST("/:id/rating", rh.SubmitRating)
	}

	o.r.POST("/admin/swaps/:id/force-cancel",
		o.auth.Middleware(), identity.RequireAdmin(), h.Transition(swap.TransitionForceCancel))
}

// setupModerationRoutes registers member reports and the admin console.
// Admin routes are gated here and checked again by the service.
func (o *Routes) setupModerationRoutes(h *moderation.Handler) {
	authorized := o.r.Group("/", o.auth.Middleware())
	{
		authorized.POST("/reports", h.SubmitReport)
		authorized.POST("/skills/submissions", h.SubmitSkill)
	}

	admin := o.r.Group("/admin", o.auth.Middleware(), identity.RequireAdmin())
	{
		admin.GET("/overview", h.Overview)
		admin.GET("/reports", h.ListReports)
		admin.POST("/reports/:id/resolve", h.ResolveReport)
		admin.POST("/reports/:id/dismiss", h.DismissReport)
		admin.GET("/submissions", h.ListSubmissions)
		admin.POST("/submissions/:id/approve", h.ApproveSkill)
		admin.POST("/submissions/:id/reject", h.RejectSkill)
		admin.POST("/members/:id/ban", h.BanMember)
		admin.POST("/members/:id/unban", h.UnbanMember)
		admin.POST("/broadcast", h.Broadcast)
	}
}
