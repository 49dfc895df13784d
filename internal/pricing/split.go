package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

var hundred = decimal.NewFromInt(100)

// Split divides total between the funding parties. Each share is rounded to the
// cent independently and the rounding remainder goes to the party with the
// largest percentage (ties: client, shop, city, admin region), so the shares
// always add up to total.
func Split(total money.Money, cfg model.ShareConfig) (model.Shares, error) {
	if err := ValidateShares(cfg); err != nil {
		return model.Shares{}, err
	}

	pcts := [4]decimal.Decimal{cfg.ClientPct, cfg.ShopPct, cfg.CityPct, cfg.AdminRegionPct}
	var amounts [4]money.Money
	largest := 0
	for i, pct := range pcts {
		amounts[i] = total.Percent(pct)
		if pct.GreaterThan(pcts[largest]) {
			largest = i
		}
	}
	remainder := total.Sub(money.Sum(amounts[:]...))
	amounts[largest] = amounts[largest].Add(remainder)

	return model.Shares{
		Client:      amounts[0],
		Shop:        amounts[1],
		City:        amounts[2],
		AdminRegion: amounts[3],
	}, nil
}

// ValidateShares checks every percentage is within [0,100] and they sum to 100.
func ValidateShares(cfg model.ShareConfig) error {
	fields := []struct {
		name string
		pct  decimal.Decimal
	}{
		{"client_pct", cfg.ClientPct},
		{"shop_pct", cfg.ShopPct},
		{"city_pct", cfg.CityPct},
		{"admin_region_pct", cfg.AdminRegionPct},
	}
	sum := decimal.Zero
	for _, f := range fields {
		if f.pct.IsNegative() || f.pct.GreaterThan(hundred) {
			return configErr(f.name, "must be between 0 and 100, got %s", f.pct)
		}
		sum = sum.Add(f.pct)
	}
	if !sum.Equal(hundred) {
		return configErr("shares", "percentages sum to %s, expected 100", sum)
	}
	return nil
}

// Profile names a common payer arrangement offered by the tariff editor.
// Profiles only build ShareConfig values; Split never sees them.
type Profile string

const (
	ProfileClientOnly    Profile = "CLIENT_ONLY"
	ProfileShopOnly      Profile = "SHOP_ONLY"
	ProfileEqualThreeWay Profile = "EQUAL_THREE_WAY"
	ProfileClientShop    Profile = "CLIENT_SHOP"
)

// SharesForProfile returns the ShareConfig of a profile. clientPct is only read
// by ProfileClientShop, where the shop funds the rest.
func SharesForProfile(p Profile, clientPct decimal.Decimal) (model.ShareConfig, error) {
	zero := decimal.Zero
	switch p {
	case ProfileClientOnly:
		return model.ShareConfig{ClientPct: hundred, ShopPct: zero, CityPct: zero, AdminRegionPct: zero}, nil
	case ProfileShopOnly:
		return model.ShareConfig{ClientPct: zero, ShopPct: hundred, CityPct: zero, AdminRegionPct: zero}, nil
	case ProfileEqualThreeWay:
		third := decimal.RequireFromString("33.33")
		return model.ShareConfig{
			ClientPct:      third,
			ShopPct:        third,
			CityPct:        hundred.Sub(third).Sub(third),
			AdminRegionPct: zero,
		}, nil
	case ProfileClientShop:
		cfg := model.ShareConfig{ClientPct: clientPct, ShopPct: hundred.Sub(clientPct), CityPct: zero, AdminRegionPct: zero}
		if err := ValidateShares(cfg); err != nil {
			return model.ShareConfig{}, err
		}
		return cfg, nil
	default:
		return model.ShareConfig{}, configErr("profile", "unknown profile %q", p)
	}
}
