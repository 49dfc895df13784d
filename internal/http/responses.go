package http

import (
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

const dateLayout = "2006-01-02"

type priceResponse struct {
	TariffVersionID  uuid.UUID   `json:"tariff_version_id"`
	TotalPrice       money.Money `json:"total_price"`
	ShareClient      money.Money `json:"share_client"`
	ShareShop        money.Money `json:"share_shop"`
	ShareCity        money.Money `json:"share_city"`
	ShareAdminRegion money.Money `json:"share_admin_region"`
}

func newPriceResponse(p model.PricedDelivery) priceResponse {
	return priceResponse{
		TariffVersionID:  p.TariffVersionID,
		TotalPrice:       p.TotalPrice,
		ShareClient:      p.Shares.Client,
		ShareShop:        p.Shares.Shop,
		ShareCity:        p.Shares.City,
		ShareAdminRegion: p.Shares.AdminRegion,
	}
}

type deliveryResponse struct {
	ID               uuid.UUID            `json:"id"`
	ShopID           uuid.UUID            `json:"shop_id"`
	ClientID         uuid.UUID            `json:"client_id"`
	DeliveryDate     string               `json:"delivery_date"`
	Bags             int                  `json:"bags"`
	OrderAmount      *money.Money         `json:"order_amount"`
	IsCMS            bool                 `json:"is_cms"`
	Status           model.DeliveryStatus `json:"status"`
	StatusUpdatedAt  time.Time            `json:"status_updated_at"`
	DeliveredAt      *time.Time           `json:"delivered_at"`
	TotalPrice       money.Money          `json:"total_price"`
	ShareClient      money.Money          `json:"share_client"`
	ShareShop        money.Money          `json:"share_shop"`
	ShareCity        money.Money          `json:"share_city"`
	ShareAdminRegion money.Money          `json:"share_admin_region"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func newDeliveryResponse(d model.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:               d.ID,
		ShopID:           d.ShopID,
		ClientID:         d.ClientID,
		DeliveryDate:     d.DeliveryDate.Format(dateLayout),
		Bags:             d.Bags,
		OrderAmount:      d.OrderAmount,
		IsCMS:            d.IsCMS,
		Status:           d.Status,
		StatusUpdatedAt:  d.StatusUpdatedAt,
		DeliveredAt:      d.DeliveredAt,
		TotalPrice:       d.TotalPrice,
		ShareClient:      d.Shares.Client,
		ShareShop:        d.Shares.Shop,
		ShareCity:        d.Shares.City,
		ShareAdminRegion: d.Shares.AdminRegion,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type documentResponse struct {
	ID              uuid.UUID           `json:"id"`
	RegionID        uuid.UUID           `json:"region_id"`
	RecipientType   model.RecipientType `json:"recipient_type"`
	RecipientID     uuid.UUID           `json:"recipient_id"`
	PeriodMonth     string              `json:"period_month"`
	AmountHT        money.Money         `json:"amount_ht"`
	AmountVAT       money.Money         `json:"amount_vat"`
	AmountTTC       money.Money         `json:"amount_ttc"`
	VATRate         string              `json:"vat_rate"`
	DeliveriesCount int                 `json:"deliveries_count"`
	ComputedAt      time.Time           `json:"computed_at"`
}

func newDocumentsResponse(docs []model.BillingDocument) []documentResponse {
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{
			ID:              d.ID,
			RegionID:        d.RegionID,
			RecipientType:   d.RecipientType,
			RecipientID:     d.RecipientID,
			PeriodMonth:     model.FormatMonth(d.PeriodMonth),
			AmountHT:        d.AmountHT,
			AmountVAT:       d.AmountVAT,
			AmountTTC:       d.AmountTTC,
			VATRate:         d.VATRate.String(),
			DeliveriesCount: d.DeliveriesCount,
			ComputedAt:      d.ComputedAt,
		})
	}
	return out
}

type periodResponse struct {
	ShopID      uuid.UUID         `json:"shop_id"`
	PeriodMonth string            `json:"period_month"`
	State       model.PeriodState `json:"state"`
	FrozenAt    *time.Time        `json:"frozen_at"`
	FrozenBy    *string           `json:"frozen_by"`
	Stale       bool              `json:"stale"`
	StaleSince  *time.Time        `json:"stale_since,omitempty"`
}

func newPeriodResponse(p model.BillingPeriod) periodResponse {
	return periodResponse{
		ShopID:      p.ShopID,
		PeriodMonth: model.FormatMonth(p.PeriodMonth),
		State:       p.State(),
		FrozenAt:    p.FrozenAt,
		FrozenBy:    p.FrozenBy,
		Stale:       p.IsStale(),
		StaleSince:  p.StaleSince,
	}
}

type tariffResponse struct {
	ID              uuid.UUID      `json:"id"`
	RegionID        uuid.UUID      `json:"region_id"`
	Name            string         `json:"name"`
	RuleType        model.RuleType `json:"rule_type"`
	PricePerTwoBags money.Money    `json:"price_per_two_bags"`
	CMSDiscount     money.Money    `json:"cms_discount"`
	Tiers           model.Tiers    `json:"tiers"`
	ClientPct       string         `json:"client_pct"`
	ShopPct         string         `json:"shop_pct"`
	CityPct         string         `json:"city_pct"`
	AdminRegionPct  string         `json:"admin_region_pct"`
	CreatedAt       time.Time      `json:"created_at"`
	CreatedBy       string         `json:"created_by"`
}

func newTariffResponse(v model.TariffVersion) tariffResponse {
	tiers := v.Rule.Tiers
	if tiers == nil {
		tiers = model.Tiers{}
	}
	return tariffResponse{
		ID:              v.ID,
		RegionID:        v.RegionID,
		Name:            v.Name,
		RuleType:        v.Rule.Type,
		PricePerTwoBags: v.Rule.PricePerTwoBags,
		CMSDiscount:     v.Rule.CMSDiscount,
		Tiers:           tiers,
		ClientPct:       v.Shares.ClientPct.String(),
		ShopPct:         v.Shares.ShopPct.String(),
		CityPct:         v.Shares.CityPct.String(),
		AdminRegionPct:  v.Shares.AdminRegionPct.String(),
		CreatedAt:       v.CreatedAt,
		CreatedBy:       v.CreatedBy,
	}
}
