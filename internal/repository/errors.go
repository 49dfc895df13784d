package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-billing/internal/model"
)

var (
	// ErrNotFound is gorm's record-not-found so callers can keep checking either.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrConflict reports a conditional write that matched no row.
	ErrConflict = errors.New("conflict")
	// ErrPeriodFrozen reports a delivery write refused because the shop period
	// was frozen when the write ran.
	ErrPeriodFrozen = errors.New("period frozen at write time")
)

// periodLockKey names the advisory lock shared by delivery writes and taken
// exclusively by a freeze of the same shop and month.
func periodLockKey(shopID uuid.UUID, month time.Time) string {
	return "period|" + shopID.String() + "|" + model.FormatMonth(model.MonthOf(month))
}
