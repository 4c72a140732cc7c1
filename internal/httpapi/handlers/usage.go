package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

// ListUsage is GET /api/usage?platform=&limit=, newest first.
func (h *Handler) ListUsage(c *gin.Context) {
	platform := c.Query("platform")
	if platform != "" && !credential.IsValidPlatform(platform) {
		common.Fail(c, http.StatusBadRequest, "Invalid platform")
		return
	}

	limit := h.Cfg.UsageRecentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 1000 {
			common.Fail(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.UsageLog.Recent(c.Request.Context(), platform, limit)
	if err != nil {
		logging.Errorf("[ListUsage] failed platform=%s err=%v", platform, err)
		common.Fail(c, http.StatusInternalServerError, "failed to list usage")
		return
	}
	common.OK(c, entries)
}

func (h *Handler) UsageTotals(c *gin.Context) {
	totals, err := h.UsageLog.Totals(c.Request.Context())
	if err != nil {
		logging.Errorf("[UsageTotals] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "failed to count usage")
		return
	}
	common.OK(c, totals)
}
