package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/http/middleware"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/pricing"
	"github.com/nurpe/delivery-billing/internal/service"
)

type Handler struct {
	deliveries *service.DeliveryService
	tariffs    *service.TariffService
	billing    *service.BillingService
	log        zerolog.Logger
}

func NewHandler(deliveries *service.DeliveryService, tariffs *service.TariffService, billing *service.BillingService, log zerolog.Logger) *Handler {
	return &Handler{deliveries: deliveries, tariffs: tariffs, billing: billing, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.POST("/deliveries/preview", h.previewPrice)
	protected.POST("/deliveries", h.createDelivery)
	protected.GET("/deliveries/:id", h.getDelivery)
	protected.PUT("/deliveries/:id", h.updateDelivery)
	protected.POST("/deliveries/:id/status", h.updateDeliveryStatus)
	protected.POST("/deliveries/:id/cancel", h.cancelDelivery)

	protected.POST("/billing/aggregate", h.aggregateBilling)
	protected.GET("/billing/documents", h.listBillingDocuments)
	protected.POST("/billing/periods/freeze", h.freezePeriod)
	protected.GET("/billing/periods", h.getBillingPeriod)
	protected.POST("/billing/export", h.requestDocumentExport)

	protected.POST("/tariffs", h.createTariffVersion)
	protected.GET("/tariffs", h.listTariffVersions)
	protected.POST("/tariffs/assignments", h.assignTariff)
	protected.POST("/vat-rates", h.setVatRate)
}

func principalOrAbort(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var (
		frozen *billing.AlreadyFrozenError
		cfgErr *pricing.ConfigurationError
	)
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, pricing.ErrCannotPrice):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "cannot_price", "detail": err.Error()})
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_configuration", "field": cfgErr.Field, "detail": cfgErr.Reason})
	case errors.As(err, &frozen):
		c.JSON(http.StatusConflict, gin.H{"error": "already_frozen", "period": newPeriodResponse(frozen.Period)})
	case errors.Is(err, billing.ErrPeriodFrozen):
		c.JSON(http.StatusConflict, gin.H{"error": "period_frozen", "detail": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_transition", "detail": err.Error()})
	case errors.Is(err, service.ErrExportRequiresFrozen):
		c.JSON(http.StatusConflict, gin.H{"error": "export_requires_frozen", "detail": err.Error()})
	case errors.Is(err, service.ErrStaleDocuments):
		c.JSON(http.StatusConflict, gin.H{"error": "stale_documents", "detail": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timeout"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, service.ErrInvalidInput
	}
	return id, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseUUID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, service.ErrInvalidInput
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, service.ErrInvalidInput
}

func parseRecipientType(raw string) (*model.RecipientType, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return nil, nil
	}
	t := model.RecipientType(raw)
	if !t.Valid() {
		return nil, service.ErrInvalidInput
	}
	return &t, nil
}
