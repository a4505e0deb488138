package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"stripe-sync-service/internal/broker"
	"stripe-sync-service/internal/models"
	"stripe-sync-service/internal/redisclient"
	"stripe-sync-service/internal/service"
	"stripe-sync-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	webhookBodyLimit = 1 << 20 // Stripe payloads are small; 1MiB is generous
	statusCacheTTL   = 30 * time.Second
)

// Handler contains HTTP handlers
type Handler struct {
	syncService   *service.SyncService
	tokenService  *service.TokenService
	publisher     *broker.EventPublisher
	redis         *redisclient.Client
	webhookSecret string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	syncService *service.SyncService,
	tokenService *service.TokenService,
	publisher *broker.EventPublisher,
	redis *redisclient.Client,
	webhookSecret string,
) *Handler {
	return &Handler{
		syncService:   syncService,
		tokenService:  tokenService,
		publisher:     publisher,
		redis:         redis,
		webhookSecret: webhookSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/stripe", h.stripeWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/creators/:id/sync", h.fullSync)
		v1.POST("/creators/:id/products/:productID/sync", h.syncProduct)
		v1.GET("/creators/:id/sync/conflicts", h.conflicts)
		v1.GET("/creators/:id/sync/status", h.syncStatus)
		v1.POST("/creators/:id/tokens/refresh", h.refreshTokens)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// stripeWebhook verifies the event signature and hands the event to the
// broker for the inbound sync worker. Verification is the authentication
// for this endpoint.
func (h *Handler) stripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Stripe signature"})
		return
	}

	// acknowledge redelivered events without another trip through the broker;
	// the worker dedupes again before applying
	if seen, err := h.redis.IsEventProcessed(c.Request.Context(), event.ID); err == nil && seen {
		util.WebhookEventsSkippedTotal.WithLabelValues("duplicate_delivery").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}

	envelope := &models.StripeEventEnvelope{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStripeEventInbound,
			Timestamp: time.Now(),
		},
		StripeEventID:   event.ID,
		StripeEventType: string(event.Type),
		AccountID:       event.Account,
		Payload:         event.Data.Raw,
	}

	if err := h.publisher.PublishStripeEvent(c.Request.Context(), envelope); err != nil {
		// 5xx so Stripe retries delivery
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// fullSync handles a full catalog sync for a creator
func (h *Handler) fullSync(c *gin.Context) {
	env, ok := h.environment(c)
	if !ok {
		return
	}
	creatorID := c.Param("id")

	result, err := h.syncService.FullSyncToStripe(c.Request.Context(), creatorID, env)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Full sync failed",
			"details": err.Error(),
		})
		return
	}

	if err := h.redis.InvalidateSyncStatus(c.Request.Context(), creatorID, env); err != nil {
		util.GetLogger().Warn("Failed to invalidate cached sync status")
	}

	c.JSON(http.StatusOK, result)
}

// syncProduct handles a single product push
func (h *Handler) syncProduct(c *gin.Context) {
	env, ok := h.environment(c)
	if !ok {
		return
	}
	creatorID := c.Param("id")
	productID := c.Param("productID")

	if err := h.syncService.SyncProductToStripe(c.Request.Context(), productID, creatorID, env); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Product sync failed",
			"details": err.Error(),
		})
		return
	}

	if err := h.redis.InvalidateSyncStatus(c.Request.Context(), creatorID, env); err != nil {
		util.GetLogger().Warn("Failed to invalidate cached sync status")
	}

	c.JSON(http.StatusOK, gin.H{"synced": true})
}

// conflicts returns the current conflict scan for a creator
func (h *Handler) conflicts(c *gin.Context) {
	env, ok := h.environment(c)
	if !ok {
		return
	}

	conflicts, err := h.syncService.DetectConflicts(c.Request.Context(), c.Param("id"), env)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Conflict scan failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conflicts": conflicts})
}

// syncStatus returns the (cached) sync health report for a creator
func (h *Handler) syncStatus(c *gin.Context) {
	env, ok := h.environment(c)
	if !ok {
		return
	}
	creatorID := c.Param("id")
	ctx := c.Request.Context()

	if cached, err := h.redis.GetCachedSyncStatus(ctx, creatorID, env); err == nil && cached != nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	status, err := h.syncService.ValidateSyncStatus(ctx, creatorID, env)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Status check failed",
			"details": err.Error(),
		})
		return
	}

	if err := h.redis.CacheSyncStatus(ctx, creatorID, env, status, statusCacheTTL); err != nil {
		util.GetLogger().Warn("Failed to cache sync status")
	}

	c.JSON(http.StatusOK, status)
}

// refreshTokens handles an OAuth token refresh
func (h *Handler) refreshTokens(c *gin.Context) {
	env, ok := h.environment(c)
	if !ok {
		return
	}

	if err := h.tokenService.RefreshOAuthTokens(c.Request.Context(), c.Param("id"), env); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Token refresh failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

// environment parses the environment query parameter, defaulting to test
func (h *Handler) environment(c *gin.Context) (models.Environment, bool) {
	env := models.Environment(c.DefaultQuery("environment", string(models.EnvironmentTest)))
	if !env.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid environment, expected test or production"})
		return "", false
	}
	return env, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
