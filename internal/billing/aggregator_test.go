package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/pricing"
)

type scenario struct {
	region, shopA, shopB, hq, city1, city2 uuid.UUID
	month                                  time.Time
	tariffs                                map[uuid.UUID]*model.TariffVersion
	deliveries                             []model.BillingDelivery
}

func halfAdminTariff(perTwo string) *model.TariffVersion {
	return &model.TariffVersion{
		ID: uuid.New(),
		Rule: model.TariffRule{
			Type:            model.RuleBagsPrice,
			PricePerTwoBags: money.MustParse(perTwo),
		},
		Shares: model.ShareConfig{
			ClientPct:      decimal.Zero,
			ShopPct:        decimal.Zero,
			CityPct:        decimal.NewFromInt(50),
			AdminRegionPct: decimal.NewFromInt(50),
		},
	}
}

// newScenarioC builds shop A (independent, three deliveries) and shop B
// (under an HQ, two deliveries) in one region.
func newScenarioC() *scenario {
	s := &scenario{
		region: uuid.New(), shopA: uuid.New(), shopB: uuid.New(), hq: uuid.New(),
		city1: uuid.New(), city2: uuid.New(),
		month: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	s.tariffs = map[uuid.UUID]*model.TariffVersion{
		s.shopA: halfAdminTariff("10.00"),
		s.shopB: halfAdminTariff("8.00"),
	}
	delivery := func(shop uuid.UUID, hq *uuid.UUID, city uuid.UUID, day int) model.BillingDelivery {
		c := city
		return model.BillingDelivery{
			Delivery: model.Delivery{
				ID:           uuid.New(),
				ShopID:       shop,
				ClientID:     uuid.New(),
				DeliveryDate: time.Date(2025, time.March, day, 10, 0, 0, 0, time.UTC),
				Bags:         2,
				Status:       model.DeliveryDelivered,
			},
			RegionID:   s.region,
			HQID:       hq,
			CityID:     &c,
			ClientName: "client",
		}
	}
	hq := s.hq
	s.deliveries = []model.BillingDelivery{
		delivery(s.shopA, nil, s.city1, 3),
		delivery(s.shopA, nil, s.city1, 4),
		delivery(s.shopA, nil, s.city1, 5),
		delivery(s.shopB, &hq, s.city1, 6),
		delivery(s.shopB, &hq, s.city2, 7),
	}
	return s
}

func (s *scenario) input() Input {
	return Input{
		RegionID:   s.region,
		Month:      s.month,
		Deliveries: s.deliveries,
		VATRate:    decimal.RequireFromString("0.20"),
		Tariff: func(shopID uuid.UUID, _ time.Time) (*model.TariffVersion, error) {
			t, ok := s.tariffs[shopID]
			if !ok {
				return nil, pricing.ErrMissingTariff
			}
			return t, nil
		},
	}
}

func findDoc(t *testing.T, docs []model.BillingDocument, typ model.RecipientType, id uuid.UUID) model.BillingDocument {
	t.Helper()
	for _, d := range docs {
		if d.RecipientType == typ && d.RecipientID == id {
			return d
		}
	}
	t.Fatalf("no %s document for %s", typ, id)
	return model.BillingDocument{}
}

func TestAggregateScenarioC(t *testing.T) {
	s := newScenarioC()
	result, err := Aggregate(s.input())
	require.NoError(t, err)
	require.Len(t, result.Documents, 5)

	indep := findDoc(t, result.Documents, model.RecipientShopIndep, s.shopA)
	assert.Equal(t, money.MustParse("15.00"), indep.AmountHT)
	assert.Equal(t, money.MustParse("3.00"), indep.AmountVAT)
	assert.Equal(t, money.MustParse("18.00"), indep.AmountTTC)
	assert.Equal(t, 3, indep.DeliveriesCount)

	hq := findDoc(t, result.Documents, model.RecipientHQ, s.hq)
	assert.Equal(t, money.MustParse("8.00"), hq.AmountHT)
	assert.Equal(t, 2, hq.DeliveriesCount)

	internal := findDoc(t, result.Documents, model.RecipientInternal, s.region)
	assert.Equal(t, money.MustParse("46.00"), internal.AmountHT)
	assert.Equal(t, 5, internal.DeliveriesCount)

	city1 := findDoc(t, result.Documents, model.RecipientCommune, s.city1)
	assert.Equal(t, money.MustParse("19.00"), city1.AmountHT)
	assert.Equal(t, 4, city1.DeliveriesCount)
	city2 := findDoc(t, result.Documents, model.RecipientCommune, s.city2)
	assert.Equal(t, money.MustParse("4.00"), city2.AmountHT)

	assert.Len(t, result.Lines[KeyOf(internal)], 5)
	assert.ElementsMatch(t, []uuid.UUID{s.shopA, s.shopB}, result.ShopIDs)

	for _, doc := range result.Documents {
		assert.Equal(t, doc.AmountHT.Add(doc.AmountHT.MulRate(doc.VATRate)), doc.AmountTTC)
		assert.Equal(t, s.month, doc.PeriodMonth)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	s := newScenarioC()
	first, err := Aggregate(s.input())
	require.NoError(t, err)
	second, err := Aggregate(s.input())
	require.NoError(t, err)
	assert.Equal(t, first.Documents, second.Documents)
}

func TestAggregateOrdersDocuments(t *testing.T) {
	result, err := Aggregate(newScenarioC().input())
	require.NoError(t, err)
	var types []model.RecipientType
	for _, d := range result.Documents {
		types = append(types, d.RecipientType)
	}
	assert.Equal(t, []model.RecipientType{
		model.RecipientCommune, model.RecipientCommune, model.RecipientHQ,
		model.RecipientShopIndep, model.RecipientInternal,
	}, types)
}

func TestAggregateSkipsCancelledAndOtherMonths(t *testing.T) {
	s := newScenarioC()
	s.deliveries[0].Status = model.DeliveryCancelled
	s.deliveries[1].DeliveryDate = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	result, err := Aggregate(s.input())
	require.NoError(t, err)
	indep := findDoc(t, result.Documents, model.RecipientShopIndep, s.shopA)
	assert.Equal(t, money.MustParse("5.00"), indep.AmountHT)
	assert.Equal(t, 1, indep.DeliveriesCount)
}

func TestAggregateEmpty(t *testing.T) {
	s := newScenarioC()
	s.deliveries = nil
	result, err := Aggregate(s.input())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Empty(t, result.ShopIDs)
}

func TestAggregateFailsWithoutPartialResult(t *testing.T) {
	s := newScenarioC()
	delete(s.tariffs, s.shopB)
	result, err := Aggregate(s.input())
	assert.ErrorIs(t, err, pricing.ErrMissingTariff)
	assert.Nil(t, result)

	s = newScenarioC()
	s.deliveries[2].CityID = nil
	_, err = Aggregate(s.input())
	assert.ErrorIs(t, err, pricing.ErrMissingClient)
}

func TestAggregateLooksUpTariffOncePerShopAndDay(t *testing.T) {
	s := newScenarioC()
	for i := range s.deliveries {
		s.deliveries[i].DeliveryDate = time.Date(2025, time.March, 10, i, 0, 0, 0, time.UTC)
	}
	calls := 0
	in := s.input()
	lookup := in.Tariff
	in.Tariff = func(shopID uuid.UUID, date time.Time) (*model.TariffVersion, error) {
		calls++
		return lookup(shopID, date)
	}
	_, err := Aggregate(in)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDocumentIDIsStable(t *testing.T) {
	region, recipient := uuid.New(), uuid.New()
	key := DocumentKey{Type: model.RecipientCommune, RecipientID: recipient}
	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, DocumentID(region, key, month), DocumentID(region, key, month))
	assert.NotEqual(t, DocumentID(region, key, month), DocumentID(region, key, month.AddDate(0, 1, 0)))
}
