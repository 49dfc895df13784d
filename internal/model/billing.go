package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/money"
)

type RecipientType string

const (
	RecipientCommune   RecipientType = "COMMUNE"
	RecipientHQ        RecipientType = "HQ"
	RecipientShopIndep RecipientType = "SHOP_INDEP"
	RecipientInternal  RecipientType = "INTERNAL"
)

// Rank orders recipient types in document listings.
func (r RecipientType) Rank() int {
	switch r {
	case RecipientCommune:
		return 0
	case RecipientHQ:
		return 1
	case RecipientShopIndep:
		return 2
	case RecipientInternal:
		return 3
	default:
		return 4
	}
}

func (r RecipientType) Valid() bool { return r.Rank() < 4 }

type PeriodState string

const (
	PeriodOpen   PeriodState = "OPEN"
	PeriodFrozen PeriodState = "FROZEN"
)

// BillingPeriod is the mutability record of one shop and month. A missing row
// is an OPEN period.
type BillingPeriod struct {
	ShopID      uuid.UUID
	PeriodMonth time.Time
	FrozenAt    *time.Time
	FrozenBy    *string
	StaleSince  *time.Time
}

func (p BillingPeriod) State() PeriodState {
	if p.FrozenAt != nil {
		return PeriodFrozen
	}
	return PeriodOpen
}

func (p BillingPeriod) IsFrozen() bool { return p.FrozenAt != nil }

// IsStale reports whether a frozen period changed after its last aggregation.
func (p BillingPeriod) IsStale() bool { return p.StaleSince != nil }

type BillingDocument struct {
	ID              uuid.UUID
	RegionID        uuid.UUID
	RecipientType   RecipientType
	RecipientID     uuid.UUID
	PeriodMonth     time.Time
	AmountHT        money.Money
	AmountVAT       money.Money
	AmountTTC       money.Money
	VATRate         decimal.Decimal
	DeliveriesCount int
	ComputedAt      time.Time
}

type VatRateSetting struct {
	EffectiveFrom time.Time
	Rate          decimal.Decimal
}

// DocumentLine is one delivery's contribution to a billing document.
type DocumentLine struct {
	DeliveryID    uuid.UUID
	ShopID        uuid.UUID
	Date          time.Time
	ClientName    string
	ClientAddress string
	Bags          int
	Amount        money.Money
}
