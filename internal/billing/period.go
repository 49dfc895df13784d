package billing

import (
	"time"

	"github.com/nurpe/delivery-billing/internal/model"
)

// DefaultCancelGrace is how long after completion a delivery of a frozen
// period may still be cancelled.
const DefaultCancelGrace = 48 * time.Hour

type Operation string

const (
	OpCreate       Operation = "create"
	OpEdit         Operation = "edit"
	OpStatus       Operation = "status change"
	OpCancel       Operation = "cancel"
	OpPreview      Operation = "preview"
	OpAssignTariff Operation = "tariff assignment"
)

// Guard decides which delivery operations a billing period allows.
type Guard struct {
	Grace time.Duration
}

func NewGuard(grace time.Duration) Guard {
	if grace <= 0 {
		grace = DefaultCancelGrace
	}
	return Guard{Grace: grace}
}

// Check returns nil when op is allowed on delivery d (nil for creations and
// previews) in period p at time now. An OPEN period allows everything; a
// FROZEN one only allows cancellations inside the grace window.
func (g Guard) Check(p model.BillingPeriod, op Operation, d *model.Delivery, now time.Time) error {
	if !p.IsFrozen() {
		return nil
	}
	if op == OpCancel && d != nil && g.WithinGrace(*d, now) {
		return nil
	}
	return &PeriodFrozenError{ShopID: p.ShopID, Month: p.PeriodMonth, Op: op}
}

// WithinGrace reports whether now is less than Grace after the delivery
// completed, or after its delivery date when it never completed.
func (g Guard) WithinGrace(d model.Delivery, now time.Time) bool {
	return now.Before(GraceAnchor(d).Add(g.Grace))
}

func GraceAnchor(d model.Delivery) time.Time {
	if d.DeliveredAt != nil {
		return *d.DeliveredAt
	}
	return d.DeliveryDate
}
