package pricing

import (
	"fmt"

	"github.com/nurpe/delivery-billing/internal/model"
)

// Price evaluates the tariff rule for a delivery and splits the result between
// the funding parties. It has no side effects and is safe for previews.
func Price(d model.Delivery, tariff *model.TariffVersion) (model.PricedDelivery, error) {
	if tariff == nil {
		return model.PricedDelivery{}, ErrMissingTariff
	}
	total, err := Evaluate(tariff.Rule, FactsOf(d))
	if err != nil {
		return model.PricedDelivery{}, err
	}
	shares, err := Split(total, tariff.Shares)
	if err != nil {
		return model.PricedDelivery{}, fmt.Errorf("%w: %w", ErrCannotPrice, err)
	}
	return model.PricedDelivery{
		Delivery:        d,
		TariffVersionID: tariff.ID,
		TotalPrice:      total,
		Shares:          shares,
	}, nil
}
