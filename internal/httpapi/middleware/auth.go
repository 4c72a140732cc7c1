package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/auth"
	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

const ClaimsKey = "claims"

// Revocations reports whether a token id was logged out.
type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthRequired checks the bearer token. With enabled false every request
// passes, matching a deployment without an admin password.
func AuthRequired(secret string, enabled bool, revoked Revocations) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			common.AbortFail(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := auth.ParseJWT(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")), secret)
		if err != nil {
			common.AbortFail(c, http.StatusUnauthorized, "invalid token")
			return
		}

		if revoked != nil {
			gone, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// redis outage should not lock the operator out
				logging.Warnf("[Auth] revocation check failed jti=%s err=%v", claims.ID, err)
			} else if gone {
				common.AbortFail(c, http.StatusUnauthorized, "token revoked")
				return
			}
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
