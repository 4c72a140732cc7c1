package common

import (
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON shape every /api response uses.
type Envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  Kind   `json:"error_kind,omitempty"`
	Duration   *int64 `json:"duration,omitempty"`
	TokensUsed *int   `json:"tokensUsed,omitempty"`
}

func OK(c *gin.Context, data any) {
	c.JSON(200, Envelope{Success: true, Data: data})
}

func Fail(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, Envelope{Success: false, Error: msg})
}

// AbortFail writes a failure envelope and stops the handler chain.
func AbortFail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, Envelope{Success: false, Error: msg})
}
