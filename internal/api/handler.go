package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"lifecycle-service/internal/service"
	"lifecycle-service/internal/store"
	"lifecycle-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	executor *service.Executor
	entities *service.EntityService
}

// NewHandler creates a new HTTP handler
func NewHandler(executor *service.Executor, entities *service.EntityService) *Handler {
	return &Handler{
		executor: executor,
		entities: entities,
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

	v1 := router.Group("/api/v1")
	{
		v1.POST("/entities/:kind", h.createEntity)
		v1.GET("/entities/:kind", h.listEntities)
		v1.GET("/entities/:kind/:id", h.getEntity)
		v1.POST("/entities/:kind/:id/transitions", h.requestTransition)
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

// transitionRequest is the body of a transition call. The actor comes from
// the X-Actor-Id / X-Actor-Role headers set by the auth gateway.
type transitionRequest struct {
	Action       string `json:"action" binding:"required"`
	Reason       string `json:"reason"`
	RefundAmount int64  `json:"refund_amount" binding:"min=0"`
}

// requestTransition runs one lifecycle transition
func (h *Handler) requestTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	actor := service.Actor{
		ID:   c.GetHeader("X-Actor-Id"),
		Role: c.GetHeader("X-Actor-Role"),
	}

	result, err := h.executor.Execute(
		c.Request.Context(),
		c.Param("kind"),
		c.Param("id"),
		req.Action,
		actor,
		service.TransitionParams{Reason: req.Reason, RefundAmount: req.RefundAmount},
	)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// createEntity seeds a new entity
func (h *Handler) createEntity(c *gin.Context) {
	var req service.CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entity, err := h.entities.Create(c.Request.Context(), c.Param("kind"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entity)
}

// getEntity handles get entity by ID
func (h *Handler) getEntity(c *gin.Context) {
	entity, err := h.entities.Get(c.Request.Context(), c.Param("kind"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, entity)
}

// listEntities lists by owner, or the manual-review queue for operators
func (h *Handler) listEntities(c *gin.Context) {
	kind := c.Param("kind")

	if c.Query("needs_review") == "true" {
		entities, err := h.entities.ListNeedsReview(c.Request.Context(), kind)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"entities": entities})
		return
	}

	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner_id query parameter is required"})
		return
	}

	entities, err := h.entities.ListByOwner(c.Request.Context(), kind, ownerID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

// writeError maps the executor's typed failures onto HTTP statuses.
// Internal errors are logged with context and surfaced generically.
func writeError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var permErr *service.PermissionDeniedError
	var stateErr *service.InvalidStateError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &permErr):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":          stateErr.Error(),
			"current_status": stateErr.CurrentStatus,
		})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Concurrent modification, retry the request",
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
	default:
		util.GetLogger().Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
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
