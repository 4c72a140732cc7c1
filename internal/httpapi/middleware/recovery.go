package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

// Recovery turns a panic into a 500 failure envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Errorf("[Recovery] panic method=%s path=%s request_id=%s err=%v\n%s",
					c.Request.Method, c.Request.URL.Path, c.GetString(RequestIDKey), rec, debug.Stack())
				common.AbortFail(c, http.StatusInternalServerError, "internal server error")
			}
		}()
		c.Next()
	}
}
