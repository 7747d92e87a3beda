package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueStats отдаёт длину очереди записи.
type QueueStats interface {
	Len() int
}

// Pinger проверяет доступность внешней зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Queue QueueStats
	Cache Pinger
}

func NewHandler(queue QueueStats, cache Pinger) *Handler {
	return &Handler{Queue: queue, Cache: cache}
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.Queue != nil {
		body["queue"] = h.Queue.Len()
	}

	if h.Cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := h.Cache.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["cache"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	c.JSON(http.StatusOK, body)
}

func (h *Handler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
