// Package api is the JSON ledger API: it stores expenses and serves the
// expense list and the per-emotion analytics.
package api

import (
	"context"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"emoledger/internal/core"
	"emoledger/internal/log"
	"emoledger/internal/middleware/trace"
)

// ExpenseService is what the handlers need from the service layer.
type ExpenseService interface {
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	EmotionAnalytics(ctx context.Context) (core.Analytics, error)
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	// HealthCheck, when set, is run by /healthz.
	HealthCheck func(context.Context) error
	// ExpenseCount, when set, is reported by /healthz as "expenses".
	ExpenseCount func(context.Context) (int64, error)
	Logger       *log.Logger
}

// NewRouter wires middleware and routes onto a new gin engine.
func NewRouter(svc ExpenseService, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(configureCORS(cfg.AllowedOrigins))

	h := &handlers{
		svc:    svc,
		health: cfg.HealthCheck,
		count:  cfg.ExpenseCount,
		logger: logger.WithComponent(log.ComponentAPI),
	}

	router.GET("/healthz", h.healthz)
	router.POST("/expenses", h.createExpense)
	router.GET("/expenses", h.listExpenses)
	router.GET("/expenses/:id", h.getExpense)
	router.GET("/analytics/emotions", h.emotionAnalytics)

	return router
}

// configureCORS allows the listed origins with credentials. A "*" entry
// allows every origin, without credentials.
func configureCORS(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour

	if len(origins) == 0 || slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
		return cors.New(corsConfig)
	}

	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	return cors.New(corsConfig)
}

// requestLogger logs every request through the structured logger.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	sl := log.NewStructuredLogger(logger)
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = trace.GenerateRequestID()
		}
		c.Header("X-Request-ID", requestID)

		ctx := log.NewContext(c.Request.Context(), logger.With(log.FieldRequestID, requestID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		sl.LogHTTPEnd(ctx, c.Request, requestID, c.Writer.Status(), time.Since(start).Milliseconds(), c.ClientIP())
	}
}

func writeDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
