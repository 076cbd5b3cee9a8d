package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/helegran/liveclass/internal/adapters/signal"
	"github.com/helegran/liveclass/internal/app"
	"github.com/helegran/liveclass/internal/config"
)

// ClientTokenMiddleware pins an opaque token to every browser via cookie.
// It identifies a client for the identity stub only; the realtime layer
// never authenticates envelope fields against it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	ctrl *signal.Controller,
	ids *app.Identities,
	dir *app.SessionDirectory,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LiveclassSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	api.GET("/me", handleMe(ids))
	api.POST("/me", handleRename(ids))
	api.GET("/sessions/:id", handleGetSession(dir))
	api.GET("/sessions", handleListSessions(dir))

	return r
}
