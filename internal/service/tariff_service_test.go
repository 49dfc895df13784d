package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/pricing"
)

func tiersRule() model.TariffRule {
	fifty := money.MustParse("50.00")
	return model.TariffRule{
		Type: model.RuleOrderAmountTiers,
		Tiers: model.Tiers{
			{Min: money.Zero, Max: &fifty, Price: money.MustParse("5.00")},
			{Min: fifty, Price: money.MustParse("8.00")},
		},
	}
}

func TestCreateTariffVersion(t *testing.T) {
	f := newFixture(t)
	v, err := f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID:  f.region,
		Name:      " paliers ",
		Rule:      tiersRule(),
		Profile:   pricing.ProfileClientShop,
		ClientPct: decimal.NewFromInt(40),
		Principal: f.admin,
	})
	require.NoError(t, err)
	assert.Equal(t, "paliers", v.Name)
	assert.True(t, v.Shares.ShopPct.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, f.now, v.CreatedAt)

	list, err := f.tariffs.ListTariffVersions(f.ctx, f.region)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreateTariffVersionRejectsBadConfiguration(t *testing.T) {
	f := newFixture(t)
	rule := tiersRule()
	rule.Tiers[1].Min = money.MustParse("60.00")
	_, err := f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID: f.region, Name: "gap", Rule: rule,
		Shares:    model.ShareConfig{ClientPct: decimal.NewFromInt(100), ShopPct: decimal.Zero, CityPct: decimal.Zero, AdminRegionPct: decimal.Zero},
		Principal: f.admin,
	})
	var cfgErr *pricing.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "tiers[1]", cfgErr.Field)

	_, err = f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID: f.region, Name: "bad shares", Rule: tiersRule(),
		Shares:    model.ShareConfig{ClientPct: decimal.NewFromInt(60), ShopPct: decimal.NewFromInt(30), CityPct: decimal.Zero, AdminRegionPct: decimal.Zero},
		Principal: f.admin,
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidConfiguration)

	_, err = f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{RegionID: f.region, Name: "x", Rule: tiersRule(), Principal: f.shopUser})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAssignTariffIsProspective(t *testing.T) {
	f := newFixture(t)
	v, err := f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID: f.region, Name: "avril", Rule: tiersRule(), Profile: pricing.ProfileClientOnly, Principal: f.admin,
	})
	require.NoError(t, err)

	april := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: march.AddDate(0, -1, 0), Principal: f.admin})
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.freeze(f.shop)
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: march.AddDate(0, 0, 20), Principal: f.admin})
	assert.ErrorIs(t, err, billing.ErrPeriodFrozen)

	a, err := f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: april, Principal: f.admin})
	require.NoError(t, err)
	assert.Equal(t, april, a.EffectiveFrom)

	amount := money.MustParse("70.00")
	in := f.input(f.shop, 33, 0)
	in.OrderAmount = &amount
	priced, err := f.deliveries.PreviewPrice(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("8.00"), priced.TotalPrice)
	assert.Equal(t, money.MustParse("8.00"), priced.Shares.Client)

	// March deliveries keep the tariff that was in force for them.
	priced, err = f.deliveries.PreviewPrice(f.ctx, f.input(f.hqShop, 10, 2))
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("10.00"), priced.TotalPrice)
}

func TestAssignTariffDoesNotRepriceRecordedDeliveries(t *testing.T) {
	f := newFixture(t)
	f.deliver(f.create(f.shop, 5, 2))
	v, err := f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID: f.region, Name: "hausse", Profile: pricing.ProfileShopOnly, Principal: f.admin,
		Rule: model.TariffRule{Type: model.RuleBagsPrice, PricePerTwoBags: money.MustParse("99.00")},
	})
	require.NoError(t, err)

	// Earlier in the current month.
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: march, Principal: f.admin})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Today, with a delivery already recorded later in the month.
	later := f.create(f.shop, 20, 2)
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: f.now, Principal: f.admin})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Once that delivery is cancelled nothing recorded is affected.
	_, err = f.deliveries.Cancel(f.ctx, CancelInput{DeliveryID: later.ID, Principal: f.admin})
	require.NoError(t, err)
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: f.now, Principal: f.admin})
	require.NoError(t, err)

	docs, err := f.billing.Aggregate(f.ctx, AggregateInput{RegionID: f.region, Month: march, Principal: f.admin})
	require.NoError(t, err)
	var internal money.Money
	for _, d := range docs {
		if d.RecipientType == model.RecipientInternal {
			internal = d.AmountHT
		}
	}
	assert.Equal(t, money.MustParse("10.00"), internal)
}

func TestAssignTariffChecksRegion(t *testing.T) {
	f := newFixture(t)
	v, err := f.tariffs.CreateTariffVersion(f.ctx, CreateTariffInput{
		RegionID: uuid.New(), Name: "ailleurs", Rule: tiersRule(), Profile: pricing.ProfileShopOnly, Principal: f.admin,
	})
	require.NoError(t, err)
	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: v.ID, EffectiveFrom: f.now, Principal: f.admin})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tariffs.AssignTariff(f.ctx, AssignTariffInput{ShopID: f.shop.ID, TariffVersionID: uuid.New(), EffectiveFrom: f.now, Principal: f.admin})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetVatRateRange(t *testing.T) {
	f := newFixture(t)
	for _, raw := range []string{"-0.01", "1", "20"} {
		_, err := f.tariffs.SetVatRate(f.ctx, SetVatRateInput{EffectiveFrom: march, Rate: decimal.RequireFromString(raw), Principal: f.admin})
		assert.ErrorIs(t, err, ErrInvalidInput, raw)
	}
	s, err := f.tariffs.SetVatRate(f.ctx, SetVatRateInput{EffectiveFrom: march.AddDate(0, 0, 12), Rate: decimal.Zero, Principal: f.admin})
	require.NoError(t, err)
	assert.Equal(t, march, s.EffectiveFrom)
}
