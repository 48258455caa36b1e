package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

type Controller struct {
	router *gin.Engine
}

func NewController(handler *Handler) *Controller {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/status", handler.GetStatus)
	router.GET("/messages", handler.GetMessages)
	if handler.Queue != nil {
		router.GET("/queue", handler.GetQueue)
	}

	return &Controller{router: router}
}

func (c *Controller) Handler() http.Handler {
	return c.router
}

// Run обслуживает запросы до отмены контекста
func (c *Controller) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(started),
		}).Debug("Запрос к API")
	}
}
