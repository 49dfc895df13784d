package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/config"
	"github.com/nurpe/delivery-billing/internal/export"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/repository/memory"
)

var march = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	now   time.Time

	region, city, hq uuid.UUID
	shop, hqShop     model.Shop
	client           model.Client
	tariff           model.TariffVersion

	admin, shopUser model.Principal

	cfg *config.Config

	deliveries *DeliveryService
	tariffs    *TariffService
	billing    *BillingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.New(),
		now:    time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC),
		region: uuid.New(),
		city:   uuid.New(),
		hq:     uuid.New(),
	}
	hq := f.hq
	city := f.city
	f.shop = model.Shop{ID: uuid.New(), RegionID: f.region, Name: "Épicerie du port"}
	f.hqShop = model.Shop{ID: uuid.New(), RegionID: f.region, HQID: &hq, Name: "Supermarché"}
	f.client = model.Client{ID: uuid.New(), CityID: &city, Name: "M. Martin", Address: "3 quai Est"}
	f.store.PutShop(f.shop)
	f.store.PutShop(f.hqShop)
	f.store.PutClient(f.client)

	f.tariff = model.TariffVersion{
		ID:       uuid.New(),
		RegionID: f.region,
		Name:     "standard",
		Rule: model.TariffRule{
			Type:            model.RuleBagsPrice,
			PricePerTwoBags: money.MustParse("10.00"),
			CMSDiscount:     money.MustParse("2.00"),
		},
		Shares: model.ShareConfig{
			ClientPct:      decimal.Zero,
			ShopPct:        decimal.Zero,
			CityPct:        decimal.NewFromInt(50),
			AdminRegionPct: decimal.NewFromInt(50),
		},
	}
	require.NoError(t, f.store.CreateTariffVersion(f.ctx, f.tariff))
	for _, shop := range []model.Shop{f.shop, f.hqShop} {
		require.NoError(t, f.store.AssignTariff(f.ctx, model.TariffAssignment{
			ShopID: shop.ID, TariffVersionID: f.tariff.ID,
			EffectiveFrom: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		}))
	}

	f.admin = model.Principal{UserID: uuid.New(), Role: model.RoleAdmin}
	f.shopUser = model.Principal{UserID: uuid.New(), OrgID: f.shop.ID, Role: model.RoleShop}

	f.cfg = &config.Config{Billing: config.BillingConfig{
		CancelGrace:      48 * time.Hour,
		DefaultVATRate:   decimal.RequireFromString("0.20"),
		AggregateTimeout: time.Minute,
	}}
	clock := func() time.Time { return f.now }
	log := zerolog.Nop()
	f.deliveries = NewDeliveryService(f.store, f.store, f.store, f.cfg, log).WithClock(clock)
	f.tariffs = NewTariffService(f.store, f.store, f.store, log).WithClock(clock)
	f.billing = NewBillingService(f.store, f.store, f.store, export.NewGateway(), f.cfg, log).WithClock(clock)
	return f
}

func (f *fixture) input(shop model.Shop, day, bags int) DeliveryInput {
	return DeliveryInput{
		ShopID:       shop.ID,
		ClientID:     f.client.ID,
		DeliveryDate: march.AddDate(0, 0, day-1),
		Bags:         bags,
		Principal:    f.admin,
	}
}

func (f *fixture) create(shop model.Shop, day, bags int) *model.Delivery {
	f.t.Helper()
	d, err := f.deliveries.Create(f.ctx, f.input(shop, day, bags))
	require.NoError(f.t, err)
	return d
}

func (f *fixture) deliver(d *model.Delivery) *model.Delivery {
	f.t.Helper()
	var err error
	for _, status := range []model.DeliveryStatus{model.DeliveryAssigned, model.DeliveryPickedUp, model.DeliveryDelivered} {
		d, err = f.deliveries.UpdateStatus(f.ctx, d.ID, status, f.admin)
		require.NoError(f.t, err)
	}
	return d
}

func (f *fixture) freeze(shop model.Shop) {
	f.t.Helper()
	_, err := f.billing.FreezePeriod(f.ctx, FreezeInput{ShopID: shop.ID, Month: march, Principal: f.admin})
	require.NoError(f.t, err)
}
