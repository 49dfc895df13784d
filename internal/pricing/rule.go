package pricing

import (
	"fmt"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

// Facts are the delivery attributes a tariff rule depends on.
type Facts struct {
	Bags        int
	OrderAmount *money.Money
	IsCMS       bool
}

func FactsOf(d model.Delivery) Facts {
	return Facts{Bags: d.Bags, OrderAmount: d.OrderAmount, IsCMS: d.IsCMS}
}

// Evaluate computes the total price of a delivery under rule.
func Evaluate(rule model.TariffRule, facts Facts) (money.Money, error) {
	switch rule.Type {
	case model.RuleBagsPrice:
		return evaluateBags(rule, facts)
	case model.RuleOrderAmountTiers:
		return evaluateTiers(rule, facts)
	default:
		return 0, fmt.Errorf("%w: %w", ErrCannotPrice, configErr("rule_type", "unknown rule type %q", rule.Type))
	}
}

// Odd bag counts are charged as the next full two-bag unit.
func evaluateBags(rule model.TariffRule, facts Facts) (money.Money, error) {
	if err := validateBagsParams(rule); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCannotPrice, err)
	}
	if facts.Bags < 0 {
		return 0, fmt.Errorf("%w: negative bag count %d", ErrInvalidFacts, facts.Bags)
	}
	units := int64((facts.Bags + 1) / 2)
	total := rule.PricePerTwoBags.Times(units)
	if facts.IsCMS {
		total = total.Sub(rule.CMSDiscount)
	}
	return total.FloorZero(), nil
}

func evaluateTiers(rule model.TariffRule, facts Facts) (money.Money, error) {
	if facts.OrderAmount == nil {
		return 0, fmt.Errorf("%w: order amount is required", ErrInvalidFacts)
	}
	amount := *facts.OrderAmount
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: negative order amount %s", ErrInvalidFacts, amount)
	}

	matched := -1
	for i, tier := range rule.Tiers {
		if !tierContains(tier, amount) {
			continue
		}
		if matched >= 0 {
			return 0, fmt.Errorf("%w: %w", ErrCannotPrice, configErr("tiers", "tiers %d and %d overlap at %s", matched, i, amount))
		}
		matched = i
	}
	if matched < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnmatchedTier, amount)
	}
	return rule.Tiers[matched].Price, nil
}

// tierContains applies the min-inclusive, max-exclusive convention.
func tierContains(tier model.Tier, amount money.Money) bool {
	if amount < tier.Min {
		return false
	}
	return tier.Max == nil || amount < *tier.Max
}

// ValidateRule is the save-time check of a tariff rule.
func ValidateRule(rule model.TariffRule) error {
	switch rule.Type {
	case model.RuleBagsPrice:
		if len(rule.Tiers) > 0 {
			return configErr("tiers", "not allowed for %s", rule.Type)
		}
		return validateBagsParams(rule)
	case model.RuleOrderAmountTiers:
		return validateTiers(rule.Tiers)
	default:
		return configErr("rule_type", "unknown rule type %q", rule.Type)
	}
}

func validateBagsParams(rule model.TariffRule) error {
	if rule.PricePerTwoBags <= 0 {
		return configErr("price_per_two_bags", "must be positive")
	}
	if rule.CMSDiscount.IsNegative() {
		return configErr("cms_discount", "must not be negative")
	}
	return nil
}

// validateTiers requires tiers ordered by min that tile [0, ∞) without gaps
// or overlaps.
func validateTiers(tiers model.Tiers) error {
	if len(tiers) == 0 {
		return configErr("tiers", "at least one tier is required")
	}
	if !tiers[0].Min.IsZero() {
		return configErr("tiers[0].min", "must be 0, got %s", tiers[0].Min)
	}
	last := len(tiers) - 1
	for i, tier := range tiers {
		if tier.Price.IsNegative() {
			return configErr(fmt.Sprintf("tiers[%d].price", i), "must not be negative")
		}
		if i == last {
			if tier.Max != nil {
				return configErr(fmt.Sprintf("tiers[%d].max", i), "last tier must be open-ended")
			}
			continue
		}
		if tier.Max == nil {
			return configErr(fmt.Sprintf("tiers[%d].max", i), "only the last tier may be open-ended")
		}
		if *tier.Max <= tier.Min {
			return configErr(fmt.Sprintf("tiers[%d].max", i), "must be greater than min %s", tier.Min)
		}
		next := tiers[i+1].Min
		if *tier.Max < next {
			return configErr(fmt.Sprintf("tiers[%d]", i+1), "gap between %s and %s", *tier.Max, next)
		}
		if *tier.Max > next {
			return configErr(fmt.Sprintf("tiers[%d]", i+1), "overlaps previous tier from %s to %s", next, *tier.Max)
		}
	}
	return nil
}
