package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/money"
)

type RuleType string

const (
	RuleBagsPrice        RuleType = "BAGS_PRICE"
	RuleOrderAmountTiers RuleType = "ORDER_AMOUNT_TIERS"
)

// Tier matches order amounts in [Min, Max). A nil Max is open-ended.
type Tier struct {
	Min   money.Money  `json:"min"`
	Max   *money.Money `json:"max"`
	Price money.Money  `json:"price"`
}

// Tiers is stored as a JSONB column.
type Tiers []Tier

func (t Tiers) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]Tier(t))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (t *Tiers) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tiers: unsupported type %T", src)
	}
	var tiers []Tier
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return err
	}
	*t = tiers
	return nil
}

type TariffRule struct {
	Type            RuleType
	PricePerTwoBags money.Money
	CMSDiscount     money.Money
	Tiers           Tiers
}

// ShareConfig holds the percentage of a delivery price funded by each party.
type ShareConfig struct {
	ClientPct      decimal.Decimal
	ShopPct        decimal.Decimal
	CityPct        decimal.Decimal
	AdminRegionPct decimal.Decimal
}

type TariffVersion struct {
	ID        uuid.UUID
	RegionID  uuid.UUID
	Name      string
	Rule      TariffRule
	Shares    ShareConfig
	CreatedAt time.Time
	CreatedBy string
}

// TariffAssignment puts a tariff version in force for a shop from a date on.
type TariffAssignment struct {
	ShopID          uuid.UUID
	TariffVersionID uuid.UUID
	EffectiveFrom   time.Time
	CreatedAt       time.Time
}
