package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
)

// DeliveryStore persists deliveries and reads the shop and client reference
// data they point to.
type DeliveryStore interface {
	GetDelivery(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	CreateDelivery(ctx context.Context, d model.Delivery) error
	UpdateDelivery(ctx context.Context, d model.Delivery) error
	CancelDelivery(ctx context.Context, c model.Cancellation) error
	ListDeliveriesForBilling(ctx context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingDelivery, error)
	HasDeliveriesFrom(ctx context.Context, shopID uuid.UUID, from time.Time) (bool, error)
	GetShop(ctx context.Context, id uuid.UUID) (*model.Shop, error)
	GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error)
}

type TariffStore interface {
	CreateTariffVersion(ctx context.Context, v model.TariffVersion) error
	GetTariffVersion(ctx context.Context, id uuid.UUID) (*model.TariffVersion, error)
	ListTariffVersions(ctx context.Context, regionID uuid.UUID) ([]model.TariffVersion, error)
	AssignTariff(ctx context.Context, a model.TariffAssignment) error
	TariffForShop(ctx context.Context, shopID uuid.UUID, asOf time.Time) (*model.TariffVersion, error)
}

type BillingStore interface {
	ReplaceBillingDocuments(ctx context.Context, regionID uuid.UUID, month time.Time, docs []model.BillingDocument) error
	ListBillingDocuments(ctx context.Context, regionID uuid.UUID, month time.Time, recipientType *model.RecipientType) ([]model.BillingDocument, error)
	GetBillingPeriod(ctx context.Context, shopID uuid.UUID, month time.Time) (model.BillingPeriod, error)
	ListBillingPeriods(ctx context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingPeriod, error)
	FreezePeriod(ctx context.Context, shopID uuid.UUID, month time.Time, actor string, at time.Time) (*model.BillingPeriod, error)
	VatRateFor(ctx context.Context, month time.Time) (*model.VatRateSetting, error)
	SetVatRate(ctx context.Context, s model.VatRateSetting) error
}
