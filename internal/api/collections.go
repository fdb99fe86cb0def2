package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/models"
)

// CollectionHandler serves collection management and the admin preview.
type CollectionHandler struct {
	admin domain.AdminService
	recs  domain.RecommendationService
	log   *logrus.Logger
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(admin domain.AdminService, recs domain.RecommendationService, log *logrus.Logger) *CollectionHandler {
	return &CollectionHandler{admin: admin, recs: recs, log: log}
}

// List handles GET /collections.
func (h *CollectionHandler) List(c *gin.Context) {
	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	collections, err := h.admin.ListCollections(c.Request.Context(), shopID)
	if err != nil {
		respondServiceError(c, h.log, err, "listing collections")
		return
	}

	if collections == nil {
		collections = []models.CollectionSummary{}
	}

	c.JSON(http.StatusOK, gin.H{"collections": collections})
}

// SetState handles POST /collections/state.
func (h *CollectionHandler) SetState(c *gin.Context) {
	var req models.SetCollectionsStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	changed, err := h.admin.SetCollectionsState(c.Request.Context(), shopID, req)
	if err != nil {
		respondServiceError(c, h.log, err, "setting collection state")
		return
	}

	middleware.Logger(c, h.log).WithFields(logrus.Fields{
		"action":  "collections.state",
		"shop_id": shopID,
		"enabled": req.Enabled,
		"changed": changed,
	}).Info("audit")

	c.JSON(http.StatusOK, gin.H{"updated": changed})
}

// Preview handles GET /collections/:handle/recommendations. Unlike the
// storefront endpoint it ignores entitlement and max_buttons.
func (h *CollectionHandler) Preview(c *gin.Context) {
	handle := c.Param("handle")
	if !validHandle(handle) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid handle")
		return
	}

	shopID, ok := getShopID(c)
	if !ok {
		return
	}

	recs, err := h.recs.GetRecommendations(c.Request.Context(), shopID, handle)
	if err != nil {
		respondServiceError(c, h.log, err, "previewing recommendations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"handle": handle, "recommendations": recs})
}
