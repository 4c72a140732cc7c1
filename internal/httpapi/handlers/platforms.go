package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/ai"
	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/httpapi/middleware"
	"github.com/suPer8Hu/genrelay/internal/logging"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

// Platform is POST /api/platforms/:platform with body {action, ...params}.
func (h *Handler) Platform(c *gin.Context) {
	p, ok := h.Platforms.Get(c.Param("platform"))
	if !ok {
		common.Fail(c, http.StatusNotFound, "Invalid platform")
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	action, _ := body["action"].(string)
	if action == "" {
		common.Fail(c, http.StatusBadRequest, "Action is required")
		return
	}
	if !p.Supports(action) {
		common.Fail(c, http.StatusBadRequest, "Invalid action")
		return
	}
	delete(body, "action")

	res := p.Do(c.Request.Context(), action, ai.Params(body))
	h.record(c, p.Name(), res)

	if !res.Success {
		logging.Warnf("[Platform] %s/%s failed kind=%s status=%d request_id=%s err=%s",
			p.Name(), action, res.Kind(), res.StatusCode, c.GetString(middleware.RequestIDKey), logging.Sanitize(res.ErrorMessage()))
	}
	c.JSON(statusFor(res), envelopeFor(res))
}

// statusFor keeps upstream failures at 200 so callers read the envelope;
// only bad input is a 400.
func statusFor(res ai.Result) int {
	if !res.Success && res.Kind() == common.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

func envelopeFor(res ai.Result) common.Envelope {
	env := common.Envelope{Success: res.Success}
	if res.Timed {
		ms := res.DurationMs()
		env.Duration = &ms
	}
	if res.Success {
		env.Data = res.Data
		if res.TokensUsed > 0 {
			n := res.TokensUsed
			env.TokensUsed = &n
		}
		return env
	}
	env.Error = res.ErrorMessage()
	env.ErrorKind = res.Kind()
	return env
}

func (h *Handler) record(c *gin.Context, platform string, res ai.Result) {
	if h.Recorder == nil {
		return
	}
	h.Recorder.Record(c.Request.Context(), usage.Entry{
		Provider:     platform,
		Endpoint:     res.Endpoint,
		Method:       http.MethodPost,
		Model:        res.Model,
		StatusCode:   res.StatusCode,
		Success:      res.Success,
		ErrorMessage: res.ErrorMessage(),
		TokensUsed:   res.TokensUsed,
		DurationMs:   res.DurationMs(),
		Timestamp:    time.Now(),
	})
}
