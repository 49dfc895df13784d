package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
)

var (
	ErrPeriodFrozen  = errors.New("billing period is frozen")
	ErrAlreadyFrozen = errors.New("billing period already frozen")
)

// PeriodFrozenError rejects a mutation of a frozen shop period.
type PeriodFrozenError struct {
	ShopID uuid.UUID
	Month  time.Time
	Op     Operation
}

func (e *PeriodFrozenError) Error() string {
	return fmt.Sprintf("%s: %s not allowed for shop %s in %s", ErrPeriodFrozen, e.Op, e.ShopID, model.FormatMonth(e.Month))
}

func (e *PeriodFrozenError) Unwrap() error { return ErrPeriodFrozen }

// AlreadyFrozenError carries the existing freeze record.
type AlreadyFrozenError struct {
	Period model.BillingPeriod
}

func (e *AlreadyFrozenError) Error() string {
	return fmt.Sprintf("%s: shop %s, %s", ErrAlreadyFrozen, e.Period.ShopID, model.FormatMonth(e.Period.PeriodMonth))
}

func (e *AlreadyFrozenError) Unwrap() error { return ErrAlreadyFrozen }
