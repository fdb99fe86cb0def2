package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/middleware"
	"github.com/pathconvert/pathconvert/internal/ws"
)

// getShopID returns the authenticated shop, writing a 401 when absent.
func getShopID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.ShopID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing shop")
	}

	return id, ok
}

// parseIDParam parses a uuid path parameter, writing a 400 when malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid "+name)
		return uuid.Nil, false
	}

	return id, true
}

// maxHandleLength bounds collection handles accepted from requests.
const maxHandleLength = 255

func validHandle(h string) bool {
	return h != "" && len(h) <= maxHandleLength
}

func wsHandler(appCtx context.Context, hub *ws.Hub, origins []string, keys ws.KeyResolver, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, ok := getShopID(c)
		if !ok {
			return
		}

		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       origins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Warn("websocket accept failed")
			return
		}

		client := ws.NewClient(hub, conn, shopID, keys, middleware.ExtractBearerToken(c))
		hub.Register(client)

		// Lives until the server shuts down or the peer goes away.
		wsCtx, cancel := context.WithCancel(appCtx)
		defer cancel()

		stop := context.AfterFunc(c.Request.Context(), cancel)
		defer stop()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
	}
}

func ginLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := middleware.Logger(c, log).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})

		if shopID, ok := middleware.ShopID(c); ok {
			entry = entry.WithField("shop_id", shopID)
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request")
			return
		}

		entry.Info("request")
	}
}
