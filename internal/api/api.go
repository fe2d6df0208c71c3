// Package api implements the HTTP surface of the assistant service.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sfedu-digital/campus-assistant/internal/logger"
)

// readHeaderTimeout bounds header reads on inbound connections.
const readHeaderTimeout = 10 * time.Second

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(
	log logger.Interface,
	assistantHandler *AssistantHandler,
	ingestHandler *IngestHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/generate-response", assistantHandler.GenerateResponse)
	router.POST("/parsed-news", ingestHandler.SaveParsedNews)
	router.POST("/free-places", ingestHandler.SaveFreePlaces)

	return router
}

// StartHTTPServer builds the HTTP server for the configured address.
func StartHTTPServer(
	log logger.Interface,
	cfg ServerConfig,
	assistantHandler *AssistantHandler,
	ingestHandler *IngestHandler,
) *http.Server {
	router := SetupRouter(log, assistantHandler, ingestHandler)

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// loggingMiddleware logs every request with a generated request id.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Set("request_id", requestID)

		c.Next()

		log.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// corsMiddleware allows the public web frontend to call the API from any
// origin, mirroring the service's open deployment.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
