package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/theakshaypant/crmcal/internal/core"
)

const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"

	requestIDHeader = "X-Request-Id"
	loggerKey       = "relay.logger"
)

// NewRouter mounts one endpoint per provider plus /health.
func NewRouter(providers ...core.Provider) *gin.Engine {
	r := gin.New()
	r.Use(requestLogMiddleware())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		requestLogger(c).WithField("panic", recovered).Error("Relay handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: fmt.Sprint(recovered)})
	}))
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		configured := gin.H{}
		for _, p := range providers {
			configured[string(p.Kind())] = p.Configured()
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "crmcal-relay",
			"configured": configured,
		})
	})

	for _, p := range providers {
		r.POST(PathFor(p.Kind()), NewHandler(p).Serve)
	}

	// Preflight is answered by corsMiddleware for every path.
	r.OPTIONS("/*path", func(c *gin.Context) {})

	return r
}

// corsMiddleware allows any origin and answers preflight requests directly.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Headers", allowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// requestLogMiddleware tags each request with an id and logs its outcome.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		entry := logrus.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		})
		c.Set(loggerKey, entry)

		start := time.Now()
		c.Next()

		entry.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Request completed")
	}
}

func requestLogger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("🚀 Starting OAuth relay on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("🛑 Shutting down relay...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay forced to shutdown: %w", err)
	}
	logrus.Info("✅ Relay exited gracefully")
	return nil
}
