package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"omnichannel/inquiries/internal/models"
	"omnichannel/inquiries/internal/services"
)

// RestSettingsHandler handles requests for the settings REST endpoints.
type RestSettingsHandler struct {
	settings services.ISettingsService
	logger   *zap.Logger
}

// NewRestSettingsHandler creates a new RestSettingsHandler.
func NewRestSettingsHandler(settings services.ISettingsService, logger *zap.Logger) *RestSettingsHandler {
	return &RestSettingsHandler{settings: settings, logger: logger}
}

type setSettingRequest struct {
	Value  interface{} `json:"value"`
	Public bool        `json:"public"`
}

// GetPublicSettings returns the publicly accessible settings.
// Handles GET /v1/settings/public
func (h *RestSettingsHandler) GetPublicSettings(c *gin.Context) {
	public, err := h.settings.GetAllPublic(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, public)
}

// SetSetting upserts a setting. The queue sort mechanism is checked against
// the known mechanisms.
// Handles PUT /v1/admin/settings/:key
func (h *RestSettingsHandler) SetSetting(c *gin.Context) {
	key := c.Param("key")
	var req setSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		respondBadRequest(c, "value is required")
		return
	}

	if key == models.SettingSortMechanism {
		raw, isString := req.Value.(string)
		mechanism, known := models.ParseSortMechanism(raw)
		if !isString || !known {
			respondBadRequest(c, "value must be one of Timestamp, Priority, SLAs")
			return
		}
		req.Value = string(mechanism)
	}

	if err := h.settings.SetValue(c.Request.Context(), key, req.Value, req.Public); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": req.Value, "public": req.Public})
}
