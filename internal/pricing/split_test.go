package pricing

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

func pct(raw string) decimal.Decimal { return decimal.RequireFromString(raw) }

func shares(client, shop, city, admin string) model.ShareConfig {
	return model.ShareConfig{ClientPct: pct(client), ShopPct: pct(shop), CityPct: pct(city), AdminRegionPct: pct(admin)}
}

func TestSplitScenarioB(t *testing.T) {
	got, err := Split(money.MustParse("10.00"), shares("33.33", "33.33", "33.34", "0"))
	require.NoError(t, err)
	assert.Equal(t, model.Shares{
		Client:      money.MustParse("3.33"),
		Shop:        money.MustParse("3.33"),
		City:        money.MustParse("3.34"),
		AdminRegion: money.MustParse("0.00"),
	}, got)
	assert.Equal(t, money.MustParse("10.00"), got.Total())
}

func TestSplitRemainderTieBreak(t *testing.T) {
	// 0.01 split 50/50: both round to 0.01, the client absorbs the -0.01.
	got, err := Split(money.MustParse("0.01"), shares("50", "50", "0", "0"))
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("0.00"), got.Client)
	assert.Equal(t, money.MustParse("0.01"), got.Shop)

	// 0.10 split in thirds: the admin region holds the largest percentage.
	got, err = Split(money.MustParse("0.10"), shares("0", "33.33", "33.33", "33.34"))
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("0.03"), got.Shop)
	assert.Equal(t, money.MustParse("0.03"), got.City)
	assert.Equal(t, money.MustParse("0.04"), got.AdminRegion)
}

func TestSplitSingleParty(t *testing.T) {
	got, err := Split(money.MustParse("9.00"), shares("100", "0", "0", "0"))
	require.NoError(t, err)
	assert.Equal(t, model.Shares{Client: money.MustParse("9.00")}, got)
}

func TestSplitIsSumExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		var basis [4]int64
		left := int64(10000)
		for j := 0; j < 3; j++ {
			basis[j] = rng.Int63n(left + 1)
			left -= basis[j]
		}
		basis[3] = left
		rng.Shuffle(4, func(a, b int) { basis[a], basis[b] = basis[b], basis[a] })

		cfg := model.ShareConfig{
			ClientPct:      decimal.New(basis[0], -2),
			ShopPct:        decimal.New(basis[1], -2),
			CityPct:        decimal.New(basis[2], -2),
			AdminRegionPct: decimal.New(basis[3], -2),
		}
		total := money.FromCents(rng.Int63n(1_000_000))

		got, err := Split(total, cfg)
		require.NoError(t, err)
		require.Equal(t, total, got.Total(), "cfg=%+v total=%s", cfg, total)
	}
}

func TestValidateShares(t *testing.T) {
	assert.NoError(t, ValidateShares(shares("25", "25", "25", "25")))

	err := ValidateShares(shares("50", "30", "10", "5"))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "shares", cfgErr.Field)

	err = ValidateShares(shares("110", "-10", "0", "0"))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "client_pct", cfgErr.Field)

	_, err = Split(money.MustParse("1.00"), shares("50", "30", "10", "5"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSharesForProfile(t *testing.T) {
	cfg, err := SharesForProfile(ProfileEqualThreeWay, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, cfg.CityPct.Equal(pct("33.34")))
	require.NoError(t, ValidateShares(cfg))

	cfg, err = SharesForProfile(ProfileClientShop, pct("30"))
	require.NoError(t, err)
	assert.True(t, cfg.ShopPct.Equal(pct("70")))

	_, err = SharesForProfile(ProfileClientShop, pct("130"))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	for _, p := range []Profile{ProfileClientOnly, ProfileShopOnly} {
		cfg, err := SharesForProfile(p, decimal.Zero)
		require.NoError(t, err)
		assert.NoError(t, ValidateShares(cfg))
	}

	_, err = SharesForProfile("HALF", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
