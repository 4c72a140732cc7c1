package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Keys.List(c.Request.Context())
	if err != nil {
		logging.Errorf("[ListKeys] list failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "failed to list keys")
		return
	}
	common.OK(c, keys)
}

type createKeyReq struct {
	Platform string `json:"platform"`
	APIKey   string `json:"apiKey"`
	KeyName  string `json:"keyName"`
}

func (h *Handler) CreateKey(c *gin.Context) {
	var req createKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Platform) == "" || strings.TrimSpace(req.APIKey) == "" {
		common.Fail(c, http.StatusBadRequest, "Platform and API key are required")
		return
	}

	k, err := h.Keys.Add(c.Request.Context(), req.Platform, req.APIKey, req.KeyName)
	if err != nil {
		if errors.Is(err, credential.ErrInvalidPlatform) {
			common.Fail(c, http.StatusBadRequest, "Invalid platform")
			return
		}
		logging.Errorf("[CreateKey] add failed platform=%s err=%v", req.Platform, err)
		common.Fail(c, http.StatusInternalServerError, "failed to save key")
		return
	}
	common.OK(c, gin.H{
		"id":        k.ID,
		"platform":  k.Platform,
		"keyName":   k.KeyName,
		"isActive":  k.IsActive,
		"createdAt": k.CreatedAt,
	})
}

type updateKeyReq struct {
	ID       string  `json:"id"`
	IsActive *bool   `json:"isActive"`
	KeyName  *string `json:"keyName"`
}

func (h *Handler) UpdateKey(c *gin.Context) {
	var req updateKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ID == "" {
		common.Fail(c, http.StatusBadRequest, "Key ID is required")
		return
	}

	k, err := h.Keys.Update(c.Request.Context(), req.ID, credential.KeyUpdate{IsActive: req.IsActive, KeyName: req.KeyName})
	if err != nil {
		if credential.IsNotFound(err) {
			common.Fail(c, http.StatusNotFound, "Key not found")
			return
		}
		logging.Errorf("[UpdateKey] update failed id=%s err=%v", req.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to update key")
		return
	}
	common.OK(c, gin.H{
		"id":       k.ID,
		"platform": k.Platform,
		"keyName":  k.KeyName,
		"isActive": k.IsActive,
	})
}

func (h *Handler) DeleteKey(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		common.Fail(c, http.StatusBadRequest, "Key ID is required")
		return
	}
	if err := h.Keys.Delete(c.Request.Context(), id); err != nil {
		if credential.IsNotFound(err) {
			common.Fail(c, http.StatusNotFound, "Key not found")
			return
		}
		logging.Errorf("[DeleteKey] delete failed id=%s err=%v", id, err)
		common.Fail(c, http.StatusInternalServerError, "failed to delete key")
		return
	}
	c.JSON(http.StatusOK, common.Envelope{Success: true})
}

func (h *Handler) AutoImportEnv(c *gin.Context) {
	common.OK(c, h.Keys.ImportFromEnv(c.Request.Context(), h.Cfg.AutoImportAPIKeys))
}

type importReq struct {
	Keys map[string]credential.ImportEntry `json:"keys"`
}

func (h *Handler) AutoImportJSON(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Keys == nil {
		common.Fail(c, http.StatusBadRequest, "Invalid keys format")
		return
	}
	common.OK(c, h.Keys.ImportFromJSON(c.Request.Context(), req.Keys))
}

func (h *Handler) ConnectionStatus(c *gin.Context) {
	st, err := h.Keys.ConnectionStatus(c.Request.Context())
	if err != nil {
		logging.Errorf("[ConnectionStatus] failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, "failed to read connection status")
		return
	}
	common.OK(c, st)
}
