package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/domain"
	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/models"
)

const (
	proxyTimeout      = 2 * time.Second
	proxyCacheControl = "public, max-age=60"
)

// button is one storefront link. Scores and ranks stay internal.
type button struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// buttonsResponse is what the storefront widget renders.
type buttonsResponse struct {
	Alignment models.Alignment `json:"alignment"`
	Buttons   []button         `json:"buttons"`
}

// ProxyHandler serves the storefront widget through the Shopify app proxy.
// It never surfaces an error to the storefront: every failure renders no
// buttons.
type ProxyHandler struct {
	shops        domain.ShopDirectory
	entitlements domain.EntitlementService
	recs         domain.RecommendationService
	log          *logrus.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(shops domain.ShopDirectory, entitlements domain.EntitlementService, recs domain.RecommendationService, log *logrus.Logger) *ProxyHandler {
	return &ProxyHandler{shops: shops, entitlements: entitlements, recs: recs, log: log}
}

// Buttons handles GET /apps/pathconvert/buttons.
func (h *ProxyHandler) Buttons(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), proxyTimeout)
	defer cancel()

	shopDomain := c.Query("shop")
	handle := proxyHandle(c)

	if shopDomain == "" || !validHandle(handle) {
		c.JSON(http.StatusOK, emptyButtons())
		return
	}

	resp, shop, err := h.render(ctx, shopDomain, handle)
	if err != nil {
		if !errors.Is(err, models.ErrShopNotFound) {
			middleware.Logger(c, h.log).WithError(err).WithFields(logrus.Fields{
				"shop":   shopDomain,
				"handle": handle,
			}).Warn("storefront buttons degraded to empty")
		}

		c.JSON(http.StatusOK, emptyButtons())

		return
	}

	if shop == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	etag := fmt.Sprintf(`"%d"`, shop.CacheVersion)
	c.Header("ETag", etag)
	c.Header("Cache-Control", proxyCacheControl)

	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// render returns the buttons for handle. shop is nil when the response must
// not be cached, such as for a shop without entitlement.
func (h *ProxyHandler) render(ctx context.Context, shopDomain, handle string) (buttonsResponse, *models.Shop, error) {
	shop, err := h.shops.GetShopByDomain(ctx, shopDomain)
	if err != nil {
		return buttonsResponse{}, nil, fmt.Errorf("looking up shop: %w", err)
	}

	ent, err := h.entitlements.Entitlement(ctx, shop.ID)
	if err != nil {
		return buttonsResponse{}, nil, fmt.Errorf("checking entitlement: %w", err)
	}

	if !ent.CanRenderButtons {
		return emptyButtons(), nil, nil
	}

	settings, err := h.shops.GetSettings(ctx, shop.ID)
	if err != nil {
		return buttonsResponse{}, nil, fmt.Errorf("loading settings: %w", err)
	}

	recs, err := h.recs.ForShop(ctx, shop, handle)
	if err != nil {
		return buttonsResponse{}, nil, fmt.Errorf("loading recommendations: %w", err)
	}

	if len(recs) > settings.MaxButtons {
		recs = recs[:settings.MaxButtons]
	}

	buttons := make([]button, 0, len(recs))
	for _, r := range recs {
		buttons = append(buttons, button{Title: r.Title, URL: r.URL})
	}

	return buttonsResponse{Alignment: settings.Alignment, Buttons: buttons}, shop, nil
}

// proxyHandle reads the collection handle from collectionHandle, falling back
// to a "/collections/{handle}" path_prefix.
func proxyHandle(c *gin.Context) string {
	if h := c.Query("collectionHandle"); h != "" {
		return h
	}

	if rest, ok := strings.CutPrefix(c.Query("path_prefix"), "/collections/"); ok {
		return strings.Trim(rest, "/")
	}

	return ""
}

func emptyButtons() buttonsResponse {
	return buttonsResponse{Alignment: models.AlignLeft, Buttons: []button{}}
}
