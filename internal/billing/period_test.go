package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/delivery-billing/internal/model"
)

func frozenPeriod(at time.Time) model.BillingPeriod {
	by := "admin"
	return model.BillingPeriod{
		ShopID:      uuid.New(),
		PeriodMonth: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		FrozenAt:    &at,
		FrozenBy:    &by,
	}
}

func TestGuardOpenPeriodAllowsEverything(t *testing.T) {
	g := NewGuard(0)
	assert.Equal(t, DefaultCancelGrace, g.Grace)
	open := model.BillingPeriod{ShopID: uuid.New()}
	for _, op := range []Operation{OpCreate, OpEdit, OpStatus, OpCancel, OpPreview} {
		assert.NoError(t, g.Check(open, op, &model.Delivery{}, time.Now()), op)
	}
}

func TestGuardFrozenPeriodRejectsMutations(t *testing.T) {
	g := NewGuard(48 * time.Hour)
	now := time.Date(2025, time.April, 2, 12, 0, 0, 0, time.UTC)
	p := frozenPeriod(now.Add(-time.Hour))
	d := &model.Delivery{DeliveryDate: now.Add(-time.Hour)}

	for _, op := range []Operation{OpCreate, OpEdit, OpStatus, OpPreview} {
		err := g.Check(p, op, d, now)
		require.ErrorIs(t, err, ErrPeriodFrozen, op)
		var frozenErr *PeriodFrozenError
		require.ErrorAs(t, err, &frozenErr)
		assert.Equal(t, p.ShopID, frozenErr.ShopID)
		assert.Equal(t, op, frozenErr.Op)
	}
}

func TestGuardGraceWindowCancellation(t *testing.T) {
	g := NewGuard(48 * time.Hour)
	deliveredAt := time.Date(2025, time.March, 31, 18, 0, 0, 0, time.UTC)
	p := frozenPeriod(deliveredAt.Add(time.Hour))
	d := &model.Delivery{
		DeliveryDate: time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC),
		DeliveredAt:  &deliveredAt,
	}

	assert.NoError(t, g.Check(p, OpCancel, d, deliveredAt.Add(47*time.Hour)))
	assert.ErrorIs(t, g.Check(p, OpCancel, d, deliveredAt.Add(48*time.Hour)), ErrPeriodFrozen)
	assert.ErrorIs(t, g.Check(p, OpCancel, nil, deliveredAt), ErrPeriodFrozen)
}

func TestGraceAnchorFallsBackToDeliveryDate(t *testing.T) {
	date := time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, date, GraceAnchor(model.Delivery{DeliveryDate: date}))

	g := NewGuard(48 * time.Hour)
	assert.True(t, g.WithinGrace(model.Delivery{DeliveryDate: date}, date.Add(24*time.Hour)))
	assert.False(t, g.WithinGrace(model.Delivery{DeliveryDate: date}, date.Add(72*time.Hour)))
}

func TestAlreadyFrozenErrorCarriesPeriod(t *testing.T) {
	p := frozenPeriod(time.Now())
	err := error(&AlreadyFrozenError{Period: p})
	assert.ErrorIs(t, err, ErrAlreadyFrozen)
	var af *AlreadyFrozenError
	require.ErrorAs(t, err, &af)
	assert.Equal(t, p.ShopID, af.Period.ShopID)
	assert.Contains(t, err.Error(), "2025-03")
}
