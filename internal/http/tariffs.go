package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/pricing"
	"github.com/nurpe/delivery-billing/internal/service"
)

type sharesRequest struct {
	ClientPct      decimal.Decimal `json:"client_pct"`
	ShopPct        decimal.Decimal `json:"shop_pct"`
	CityPct        decimal.Decimal `json:"city_pct"`
	AdminRegionPct decimal.Decimal `json:"admin_region_pct"`
}

type tariffRequest struct {
	RegionID        string          `json:"region_id" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	RuleType        string          `json:"rule_type" binding:"required"`
	PricePerTwoBags money.Money     `json:"price_per_two_bags"`
	CMSDiscount     money.Money     `json:"cms_discount"`
	Tiers           model.Tiers     `json:"tiers"`
	Profile         string          `json:"profile"`
	ClientPct       decimal.Decimal `json:"client_pct"`
	Shares          sharesRequest   `json:"shares"`
}

func (h *Handler) createTariffVersion(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req tariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	regionID, err := parseUUID(req.RegionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region_id"})
		return
	}

	version, err := h.tariffs.CreateTariffVersion(c.Request.Context(), service.CreateTariffInput{
		RegionID: regionID,
		Name:     req.Name,
		Rule: model.TariffRule{
			Type:            model.RuleType(strings.ToUpper(strings.TrimSpace(req.RuleType))),
			PricePerTwoBags: req.PricePerTwoBags,
			CMSDiscount:     req.CMSDiscount,
			Tiers:           req.Tiers,
		},
		Profile:   pricing.Profile(strings.ToUpper(strings.TrimSpace(req.Profile))),
		ClientPct: req.ClientPct,
		Shares: model.ShareConfig{
			ClientPct:      req.Shares.ClientPct,
			ShopPct:        req.Shares.ShopPct,
			CityPct:        req.Shares.CityPct,
			AdminRegionPct: req.Shares.AdminRegionPct,
		},
		Principal: principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTariffResponse(*version))
}

func (h *Handler) listTariffVersions(c *gin.Context) {
	if _, ok := principalOrAbort(c); !ok {
		return
	}
	regionID, err := parseUUID(c.Query("region_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid region_id"})
		return
	}

	versions, err := h.tariffs.ListTariffVersions(c.Request.Context(), regionID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	out := make([]tariffResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, newTariffResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

type assignmentRequest struct {
	ShopID          string `json:"shop_id" binding:"required"`
	TariffVersionID string `json:"tariff_version_id" binding:"required"`
	EffectiveFrom   string `json:"effective_from" binding:"required"`
}

func (h *Handler) assignTariff(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shopID, err := parseUUID(req.ShopID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop_id"})
		return
	}
	versionID, err := parseUUID(req.TariffVersionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tariff_version_id"})
		return
	}
	effective, err := parseDate(req.EffectiveFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective_from"})
		return
	}

	a, err := h.tariffs.AssignTariff(c.Request.Context(), service.AssignTariffInput{
		ShopID:          shopID,
		TariffVersionID: versionID,
		EffectiveFrom:   effective,
		Principal:       principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"shop_id":           a.ShopID,
		"tariff_version_id": a.TariffVersionID,
		"effective_from":    a.EffectiveFrom.Format(dateLayout),
	})
}

type vatRateRequest struct {
	EffectiveFrom string          `json:"effective_from" binding:"required"`
	Rate          decimal.Decimal `json:"rate"`
}

func (h *Handler) setVatRate(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req vatRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	month, err := model.ParseMonth(req.EffectiveFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid effective_from"})
		return
	}

	setting, err := h.tariffs.SetVatRate(c.Request.Context(), service.SetVatRateInput{
		EffectiveFrom: month,
		Rate:          req.Rate,
		Principal:     principal,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"effective_from": model.FormatMonth(setting.EffectiveFrom),
		"rate":           setting.Rate.String(),
	})
}
