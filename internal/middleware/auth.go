package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/security"
)

// ShopIDKey is the gin context key holding the authenticated shop's uuid.UUID.
const ShopIDKey = "shop_id"

// authTimingFloor is the minimum response time for a rejected key, so valid
// and invalid keys cannot be told apart by latency.
const authTimingFloor = 50 * time.Millisecond

// ShopKeyLookup resolves an API key to its shop.
type ShopKeyLookup interface {
	GetShopByAPIKey(ctx context.Context, apiKey string) (uuid.UUID, error)
}

// AuthMiddleware authenticates admin API requests by Bearer API key. When
// lockout is non-nil, clients that keep presenting invalid keys are refused
// with 429 until their lockout ends.
func AuthMiddleware(lookup ShopKeyLookup, lockout *security.Lockout, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if c.Writer.Status() == http.StatusUnauthorized {
				if elapsed := time.Since(start); elapsed < authTimingFloor {
					time.Sleep(authTimingFloor - elapsed)
				}
			}
		}()

		clientIP := c.ClientIP()

		if lockout != nil {
			if remaining, blocked := lockout.Blocked(clientIP); blocked {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Seconds()))))
				respondError(c, http.StatusTooManyRequests, "rate_limited", "too many failed authentication attempts")

				return
			}
		}

		apiKey := ExtractBearerToken(c)
		if apiKey == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization header")
			return
		}

		shopID, err := lookup.GetShopByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if lockout != nil {
				lockout.RecordFailure(clientIP)
			}

			log.WithFields(logrus.Fields{
				"client_ip":  clientIP,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
				"key_prefix": truncateKey(apiKey),
			}).Warn("authentication failed: invalid api key")

			respondError(c, http.StatusUnauthorized, "unauthorized", "invalid api key")

			return
		}

		if lockout != nil {
			lockout.Reset(clientIP)
		}

		c.Set(ShopIDKey, shopID)
		c.Next()
	}
}

// ShopID returns the shop set by AuthMiddleware.
func ShopID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ShopIDKey)
	if !ok {
		return uuid.Nil, false
	}

	id, ok := v.(uuid.UUID)

	return id, ok && id != uuid.Nil
}

// ExtractBearerToken extracts the API key from the Authorization header.
func ExtractBearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(header, "Bearer ")
}

func truncateKey(key string) string {
	if len(key) > 4 {
		return key[:4] + "..."
	}

	return key
}
