package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Controller - служебный HTTP сервер с метриками и проверкой состояния.
type Controller struct {
	Handler *Handler
	server  *http.Server
}

func NewRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", handler.Metrics())

	return router
}

func New(handler *Handler, port string) *Controller {
	return &Controller{
		Handler: handler,
		server: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(handler),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Run блокируется до остановки сервера.
func (c *Controller) Run() {
	log.WithField("addr", c.server.Addr).Info("Запущен служебный HTTP сервер")
	if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithField("err", err).Error("Служебный HTTP сервер завершился с ошибкой")
	}
}

func (c *Controller) Stop(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}
