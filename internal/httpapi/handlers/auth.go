package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/auth"
	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/httpapi/middleware"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

type loginReq struct {
	Password string `json:"password"`
}

func (h *Handler) checkAdminPassword(pw string) bool {
	if h.Cfg.AdminPasswordHash != "" {
		return auth.CheckPassword(h.Cfg.AdminPasswordHash, pw)
	}
	return subtle.ConstantTimeCompare([]byte(h.Cfg.AdminPassword), []byte(pw)) == 1
}

func (h *Handler) Login(c *gin.Context) {
	if !h.Cfg.AuthEnabled() {
		common.Fail(c, http.StatusBadRequest, "admin auth is not enabled")
		return
	}
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, "password required")
		return
	}
	if !h.checkAdminPassword(req.Password) {
		logging.Warnf("[Login] bad password ip=%s", c.ClientIP())
		common.Fail(c, http.StatusUnauthorized, "invalid password")
		return
	}

	token, claims, err := auth.SignJWT("admin", h.Cfg.JWTSecret, h.Cfg.TokenTTL)
	if err != nil {
		logging.Errorf("[Login] sign failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "failed to sign token")
		return
	}
	common.OK(c, gin.H{
		"token":     token,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	claims, ok := c.Get(middleware.ClaimsKey)
	if !ok || h.Tokens == nil {
		c.JSON(http.StatusOK, common.Envelope{Success: true})
		return
	}
	cl := claims.(*auth.Claims)
	ttl := time.Until(cl.ExpiresAt.Time)
	if err := h.Tokens.RevokeToken(c.Request.Context(), cl.ID, ttl); err != nil {
		logging.Errorf("[Logout] revoke failed jti=%s err=%v", cl.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to revoke token")
		return
	}
	c.JSON(http.StatusOK, common.Envelope{Success: true})
}

func (h *Handler) Me(c *gin.Context) {
	if v, ok := c.Get(middleware.ClaimsKey); ok {
		cl := v.(*auth.Claims)
		common.OK(c, gin.H{"subject": cl.Subject, "expiresAt": cl.ExpiresAt.Time})
		return
	}
	common.OK(c, gin.H{"subject": "anonymous", "authEnabled": false})
}
