package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/delivery-billing/internal/export"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/service"
)

type aggregateRequest struct {
	RegionID string `json:"region_id" binding:"required"`
	Month    string `json:"month" binding:"required"`
}

func (h *Handler) aggregateBilling(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	regionID, err := parseUUID(req.RegionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region_id"})
		return
	}
	month, err := model.ParseMonth(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	docs, err := h.billing.Aggregate(c.Request.Context(), service.AggregateInput{
		RegionID:  regionID,
		Month:     month,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentsResponse(docs))
}

func (h *Handler) listBillingDocuments(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	regionID, err := parseUUID(c.Query("region_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region_id"})
		return
	}
	month, err := model.ParseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}
	recipientType, err := parseRecipientType(c.Query("recipient_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient_type"})
		return
	}

	docs, err := h.billing.ListBillingDocuments(c.Request.Context(), service.ListDocumentsInput{
		RegionID:      regionID,
		Month:         month,
		RecipientType: recipientType,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDocumentsResponse(docs))
}

type freezeRequest struct {
	ShopID string `json:"shop_id" binding:"required"`
	Month  string `json:"month" binding:"required"`
}

func (h *Handler) freezePeriod(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req freezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shopID, err := parseUUID(req.ShopID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
		return
	}
	month, err := model.ParseMonth(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	period, err := h.billing.FreezePeriod(c.Request.Context(), service.FreezeInput{
		ShopID:    shopID,
		Month:     month,
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPeriodResponse(*period))
}

func (h *Handler) getBillingPeriod(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	shopID, err := parseUUID(c.Query("shop_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
		return
	}
	month, err := model.ParseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	period, err := h.billing.GetBillingPeriod(c.Request.Context(), shopID, month, principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPeriodResponse(*period))
}

type exportRequest struct {
	RegionID      string `json:"region_id" binding:"required"`
	Month         string `json:"month" binding:"required"`
	RecipientType string `json:"recipient_type"`
	RecipientID   string `json:"recipient_id"`
	Mode          string `json:"mode" binding:"required"`
	Format        string `json:"format" binding:"required"`
}

func (h *Handler) requestDocumentExport(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	regionID, err := parseUUID(req.RegionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region_id"})
		return
	}
	month, err := model.ParseMonth(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}
	recipientType, err := parseRecipientType(req.RecipientType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient_type"})
		return
	}
	recipientID, err := parseOptionalUUID(req.RecipientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient_id"})
		return
	}
	mode, err := export.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mode"})
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid format"})
		return
	}

	file, err := h.billing.RequestDocumentExport(c.Request.Context(), service.ExportInput{
		RegionID:      regionID,
		Month:         month,
		RecipientType: recipientType,
		RecipientID:   recipientID,
		Mode:          mode,
		Format:        format,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+file.Name+"\"")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
