package httptransport

import (
	"SafetyAnalyst/internal/analysis"
	"SafetyAnalyst/internal/config"
	"SafetyAnalyst/internal/metrics"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Analyzer выполняет один анализ изображения.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
}

// Options параметры сборки HTTP-роутера.
type Options struct {
	Config   *config.Config
	Logger   *zap.SugaredLogger
	Analyzer Analyzer
}

// Build собирает gin engine: recovery, логирование запросов, CORS и маршруты анализа.
func Build(opts Options) (*gin.Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	if opts.Analyzer == nil {
		return nil, fmt.Errorf("http router requires analyzer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	if gin.Mode() != gin.TestMode {
		if opts.Config.DebugMode {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	h := &analyzeHandler{
		analyzer:       opts.Analyzer,
		logger:         logger,
		maxUploadBytes: opts.Config.HTTP.MaxUploadBytes,
		hasCredential:  opts.Config.HasCredential(),
	}

	engine.GET("/healthz", h.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/modes", h.handleModes)
	api.POST("/analyze/:mode", h.handleAnalyze)

	return engine, nil
}

func loggingMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()

		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", duration.String(),
		)
	}
}

func (h *analyzeHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"credential": h.hasCredential,
	})
}
