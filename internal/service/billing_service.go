package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/config"
	"github.com/nurpe/delivery-billing/internal/export"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/repository"
)

// DocumentRenderer turns an export bundle into a file.
type DocumentRenderer interface {
	Render(bundle export.Bundle, format export.Format) (*export.File, error)
}

type BillingService struct {
	deliveries DeliveryStore
	tariffs    TariffStore
	billing    BillingStore
	renderer   DocumentRenderer
	defaultVAT decimal.Decimal
	timeout    time.Duration
	runs       singleflight.Group
	log        zerolog.Logger
	now        Clock
}

func NewBillingService(
	deliveries DeliveryStore,
	tariffs TariffStore,
	billingStore BillingStore,
	renderer DocumentRenderer,
	cfg *config.Config,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{
		deliveries: deliveries,
		tariffs:    tariffs,
		billing:    billingStore,
		renderer:   renderer,
		defaultVAT: cfg.Billing.DefaultVATRate,
		timeout:    cfg.Billing.AggregateTimeout,
		log:        log,
		now:        defaultClock,
	}
}

func (s *BillingService) WithClock(now Clock) *BillingService {
	s.now = now
	return s
}

type AggregateInput struct {
	RegionID  uuid.UUID
	Month     time.Time
	Principal model.Principal
}

// Aggregate recomputes and replaces the billing documents of a region and
// month. Concurrent calls for the same key share one run, which is detached
// from the callers' cancellation and bounded by the aggregation timeout.
func (s *BillingService) Aggregate(ctx context.Context, in AggregateInput) ([]model.BillingDocument, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.RegionID == uuid.Nil {
		return nil, fmt.Errorf("%w: region_id is required", ErrInvalidInput)
	}
	if in.Month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", ErrInvalidInput)
	}

	month := model.MonthOf(in.Month)
	key := in.RegionID.String() + "|" + model.FormatMonth(month)
	runCtx := context.WithoutCancel(ctx)
	v, err, _ := s.runs.Do(key, func() (interface{}, error) {
		return s.aggregate(runCtx, in.RegionID, month)
	})
	if err != nil {
		return nil, err
	}
	docs := v.([]model.BillingDocument)
	out := make([]model.BillingDocument, len(docs))
	copy(out, docs)
	return out, nil
}

func (s *BillingService) aggregate(ctx context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingDocument, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	result, _, err := s.compute(ctx, regionID, month)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("region_id", regionID.String()).
			Str("month", model.FormatMonth(month)).
			Msg("billing aggregation failed")
		return nil, err
	}

	computedAt := s.now()
	for i := range result.Documents {
		result.Documents[i].ComputedAt = computedAt
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.billing.ReplaceBillingDocuments(ctx, regionID, month, result.Documents); err != nil {
		return nil, fmt.Errorf("replace billing documents: %w", err)
	}

	s.log.Info().
		Str("region_id", regionID.String()).
		Str("month", model.FormatMonth(month)).
		Int("documents", len(result.Documents)).
		Int("shops", len(result.ShopIDs)).
		Dur("took", time.Since(started)).
		Msg("billing aggregated")
	return result.Documents, nil
}

// compute re-prices the month from current data without writing anything.
func (s *BillingService) compute(ctx context.Context, regionID uuid.UUID, month time.Time) (*billing.Result, decimal.Decimal, error) {
	deliveries, err := s.deliveries.ListDeliveriesForBilling(ctx, regionID, month)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("list deliveries: %w", err)
	}
	rate, err := s.vatRate(ctx, month)
	if err != nil {
		return nil, decimal.Zero, err
	}

	result, err := billing.Aggregate(billing.Input{
		RegionID:   regionID,
		Month:      month,
		Deliveries: deliveries,
		VATRate:    rate,
		Tariff: func(shopID uuid.UUID, date time.Time) (*model.TariffVersion, error) {
			return tariffAt(ctx, s.tariffs, shopID, date)
		},
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return result, rate, nil
}

// vatRate returns the configured rate for the month, or the default rate when
// none was ever set.
func (s *BillingService) vatRate(ctx context.Context, month time.Time) (decimal.Decimal, error) {
	setting, err := s.billing.VatRateFor(ctx, month)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.defaultVAT, nil
		}
		return decimal.Zero, fmt.Errorf("vat rate: %w", err)
	}
	return setting.Rate, nil
}

type ListDocumentsInput struct {
	RegionID      uuid.UUID
	Month         time.Time
	RecipientType *model.RecipientType
	Principal     model.Principal
}

// ListBillingDocuments returns the stored documents. An unaggregated month
// yields an empty list.
func (s *BillingService) ListBillingDocuments(ctx context.Context, in ListDocumentsInput) ([]model.BillingDocument, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.RegionID == uuid.Nil {
		return nil, fmt.Errorf("%w: region_id is required", ErrInvalidInput)
	}
	if in.Month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", ErrInvalidInput)
	}
	if in.RecipientType != nil && !in.RecipientType.Valid() {
		return nil, fmt.Errorf("%w: unknown recipient_type %q", ErrInvalidInput, *in.RecipientType)
	}
	docs, err := s.billing.ListBillingDocuments(ctx, in.RegionID, model.MonthOf(in.Month), in.RecipientType)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.BillingDocument{}
	}
	return docs, nil
}

type FreezeInput struct {
	ShopID    uuid.UUID
	Month     time.Time
	Principal model.Principal
}

// FreezePeriod moves a shop period from OPEN to FROZEN. Freezing a frozen
// period fails with billing.AlreadyFrozenError carrying the existing record.
func (s *BillingService) FreezePeriod(ctx context.Context, in FreezeInput) (*model.BillingPeriod, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.Month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", ErrInvalidInput)
	}
	shop, err := loadShop(ctx, s.deliveries, in.ShopID)
	if err != nil {
		return nil, err
	}

	month := model.MonthOf(in.Month)
	period, err := s.billing.FreezePeriod(ctx, shop.ID, month, in.Principal.Actor(), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := s.billing.GetBillingPeriod(ctx, shop.ID, month)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &billing.AlreadyFrozenError{Period: existing}
		}
		return nil, err
	}

	s.log.Info().
		Str("shop_id", shop.ID.String()).
		Str("month", model.FormatMonth(month)).
		Str("actor", in.Principal.Actor()).
		Msg("billing period frozen")
	return period, nil
}

func (s *BillingService) GetBillingPeriod(ctx context.Context, shopID uuid.UUID, month time.Time, principal model.Principal) (*model.BillingPeriod, error) {
	if err := canAccessShop(principal, shopID); err != nil {
		return nil, err
	}
	if month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", ErrInvalidInput)
	}
	if _, err := loadShop(ctx, s.deliveries, shopID); err != nil {
		return nil, err
	}
	period, err := s.billing.GetBillingPeriod(ctx, shopID, model.MonthOf(month))
	if err != nil {
		return nil, err
	}
	return &period, nil
}
