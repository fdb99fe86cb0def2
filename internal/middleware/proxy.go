package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ProxySignature verifies the signature Shopify adds to app proxy requests.
func ProxySignature(secret string, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !VerifyProxySignature(c.Request.URL.Query(), secret) {
			log.WithFields(logrus.Fields{
				"client_ip":  c.ClientIP(),
				"shop":       c.Query("shop"),
				"request_id": c.GetString(RequestIDKey),
			}).Warn("app proxy request with invalid signature")

			respondError(c, http.StatusForbidden, "invalid_signature", "invalid signature")

			return
		}

		c.Next()
	}
}

// VerifyProxySignature checks query against its signature parameter: the
// hex HMAC-SHA256 of every other parameter as sorted "key=value" pairs
// concatenated without separators, repeated values joined by commas.
func VerifyProxySignature(query url.Values, secret string) bool {
	sig := query.Get("signature")
	if sig == "" || secret == "" {
		return false
	}

	want, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	return hmac.Equal(want, proxyDigest(query, secret))
}

// SignProxyQuery returns the signature Shopify would attach to query.
func SignProxyQuery(query url.Values, secret string) string {
	return hex.EncodeToString(proxyDigest(query, secret))
}

func proxyDigest(query url.Values, secret string) []byte {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k != "signature" {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(query[k], ","))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(b.String()))

	return mac.Sum(nil)
}
