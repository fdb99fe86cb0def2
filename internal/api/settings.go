package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/models"
)

// SettingsHandler serves the display settings endpoints.
type SettingsHandler struct {
	admin domain.AdminService
	log   *logrus.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(admin domain.AdminService, log *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{admin: admin, log: log}
}

// Get handles GET /settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	settings, err := h.admin.GetSettings(c.Request.Context(), shopID)
	if err != nil {
		respondServiceError(c, h.log, err, "getting settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// Update handles PUT /settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	settings, err := h.admin.UpdateSettings(c.Request.Context(), shopID, req)
	if err != nil {
		respondServiceError(c, h.log, err, "updating settings")
		return
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":      "settings.update",
		"shop_id":     shopID,
		"max_buttons": settings.MaxButtons,
		"alignment":   settings.Alignment,
	}).Info("audit")

	c.JSON(http.StatusOK, settings)
}
