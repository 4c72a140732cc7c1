package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/httpapi/handlers"
	"github.com/suPer8Hu/genrelay/internal/httpapi/middleware"
)

func NewRouter(cfg config.Config, deps handlers.Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(cfg, deps)

	r.GET("/ping", h.Ping)

	api := r.Group("/api")
	api.POST("/login", h.Login)

	var revoked middleware.Revocations
	if deps.Tokens != nil {
		revoked = deps.Tokens
	}
	authed := api.Group("/")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret, cfg.AuthEnabled(), revoked))

	authed.POST("/logout", h.Logout)
	authed.GET("/me", h.Me)

	// key management
	authed.GET("/keys", h.ListKeys)
	authed.POST("/keys", h.CreateKey)
	authed.PATCH("/keys", h.UpdateKey)
	authed.DELETE("/keys", h.DeleteKey)
	authed.GET("/auto-import", h.AutoImportEnv)
	authed.POST("/auto-import", h.AutoImportJSON)
	authed.GET("/connection-status", h.ConnectionStatus)

	// usage
	authed.GET("/usage", h.ListUsage)
	authed.GET("/usage/totals", h.UsageTotals)

	// provider relay
	authed.POST("/platforms/:platform", h.Platform)
	return r
}
