package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/pricing"
)

type TariffService struct {
	tariffs    TariffStore
	deliveries DeliveryStore
	periods    BillingStore
	guard      billing.Guard
	log        zerolog.Logger
	now        Clock
}

func NewTariffService(tariffs TariffStore, deliveries DeliveryStore, periods BillingStore, log zerolog.Logger) *TariffService {
	return &TariffService{
		tariffs:    tariffs,
		deliveries: deliveries,
		periods:    periods,
		guard:      billing.NewGuard(0),
		log:        log,
		now:        defaultClock,
	}
}

func (s *TariffService) WithClock(now Clock) *TariffService {
	s.now = now
	return s
}

type CreateTariffInput struct {
	RegionID uuid.UUID
	Name     string
	Rule     model.TariffRule
	// Profile, when set, replaces Shares with the profile's split.
	Profile   pricing.Profile
	ClientPct decimal.Decimal
	Shares    model.ShareConfig
	Principal model.Principal
}

// CreateTariffVersion validates and stores a new tariff version. Versions are
// immutable; changing a tariff means creating and assigning a new version.
func (s *TariffService) CreateTariffVersion(ctx context.Context, in CreateTariffInput) (*model.TariffVersion, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.RegionID == uuid.Nil {
		return nil, fmt.Errorf("%w: region_id is required", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	shares := in.Shares
	if in.Profile != "" {
		var err error
		if shares, err = pricing.SharesForProfile(in.Profile, in.ClientPct); err != nil {
			return nil, err
		}
	}
	if err := pricing.ValidateRule(in.Rule); err != nil {
		return nil, err
	}
	if err := pricing.ValidateShares(shares); err != nil {
		return nil, err
	}

	version := model.TariffVersion{
		ID:        uuid.New(),
		RegionID:  in.RegionID,
		Name:      name,
		Rule:      in.Rule,
		Shares:    shares,
		CreatedAt: s.now(),
		CreatedBy: in.Principal.Actor(),
	}
	if err := s.tariffs.CreateTariffVersion(ctx, version); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("tariff_version_id", version.ID.String()).
		Str("region_id", version.RegionID.String()).
		Str("rule_type", string(version.Rule.Type)).
		Msg("tariff version created")
	return &version, nil
}

func (s *TariffService) ListTariffVersions(ctx context.Context, regionID uuid.UUID) ([]model.TariffVersion, error) {
	if regionID == uuid.Nil {
		return nil, fmt.Errorf("%w: region_id is required", ErrInvalidInput)
	}
	return s.tariffs.ListTariffVersions(ctx, regionID)
}

type AssignTariffInput struct {
	ShopID          uuid.UUID
	TariffVersionID uuid.UUID
	EffectiveFrom   time.Time
	Principal       model.Principal
}

// AssignTariff puts a version in force for a shop from EffectiveFrom on.
// Assignments are prospective: they cannot start before today, in a month
// already frozen for the shop, or on a date that would re-price deliveries
// the shop already recorded.
func (s *TariffService) AssignTariff(ctx context.Context, in AssignTariffInput) (*model.TariffAssignment, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.EffectiveFrom.IsZero() {
		return nil, fmt.Errorf("%w: effective_from is required", ErrInvalidInput)
	}
	shop, err := loadShop(ctx, s.deliveries, in.ShopID)
	if err != nil {
		return nil, err
	}
	version, err := s.tariffs.GetTariffVersion(ctx, in.TariffVersionID)
	if err != nil {
		return nil, notFound(err, "tariff version")
	}
	if version.RegionID != shop.RegionID {
		return nil, fmt.Errorf("%w: tariff version belongs to another region", ErrInvalidInput)
	}

	now := s.now()
	effective := model.DateOnly(in.EffectiveFrom)
	if effective.Before(model.DateOnly(now)) {
		return nil, fmt.Errorf("%w: effective_from must not be in the past", ErrInvalidInput)
	}
	period, err := s.periods.GetBillingPeriod(ctx, shop.ID, effective)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Check(period, billing.OpAssignTariff, nil, now); err != nil {
		return nil, err
	}
	priced, err := s.deliveries.HasDeliveriesFrom(ctx, shop.ID, effective)
	if err != nil {
		return nil, err
	}
	if priced {
		return nil, fmt.Errorf("%w: shop has deliveries priced on or after %s", ErrInvalidInput, effective.Format("2006-01-02"))
	}

	assignment := model.TariffAssignment{
		ShopID:          shop.ID,
		TariffVersionID: version.ID,
		EffectiveFrom:   effective,
		CreatedAt:       now,
	}
	if err := s.tariffs.AssignTariff(ctx, assignment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("shop_id", shop.ID.String()).
		Str("tariff_version_id", version.ID.String()).
		Time("effective_from", effective).
		Msg("tariff assigned")
	return &assignment, nil
}

type SetVatRateInput struct {
	EffectiveFrom time.Time
	Rate          decimal.Decimal
	Principal     model.Principal
}

// SetVatRate records the VAT rate applying from a month on. Rate is a
// fraction, 0.20 for 20%.
func (s *TariffService) SetVatRate(ctx context.Context, in SetVatRateInput) (*model.VatRateSetting, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.EffectiveFrom.IsZero() {
		return nil, fmt.Errorf("%w: effective_from is required", ErrInvalidInput)
	}
	if in.Rate.IsNegative() || in.Rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: rate must be a fraction in [0, 1)", ErrInvalidInput)
	}

	setting := model.VatRateSetting{EffectiveFrom: model.MonthOf(in.EffectiveFrom), Rate: in.Rate}
	if err := s.periods.SetVatRate(ctx, setting); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("effective_from", model.FormatMonth(setting.EffectiveFrom)).
		Str("rate", setting.Rate.String()).
		Msg("vat rate set")
	return &setting, nil
}
