package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/config"
	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/pricing"
	"github.com/nurpe/delivery-billing/internal/repository"
)

var statusTransitions = map[model.DeliveryStatus][]model.DeliveryStatus{
	model.DeliveryCreated:  {model.DeliveryAssigned, model.DeliveryCancelled},
	model.DeliveryAssigned: {model.DeliveryPickedUp, model.DeliveryCancelled},
	model.DeliveryPickedUp: {model.DeliveryDelivered, model.DeliveryCancelled},
}

// ValidStatusTransition reports whether a status change is allowed. Delivered
// deliveries only leave that state through Cancel.
func ValidStatusTransition(from, to model.DeliveryStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type DeliveryService struct {
	deliveries DeliveryStore
	tariffs    TariffStore
	periods    BillingStore
	guard      billing.Guard
	log        zerolog.Logger
	now        Clock
}

func NewDeliveryService(deliveries DeliveryStore, tariffs TariffStore, periods BillingStore, cfg *config.Config, log zerolog.Logger) *DeliveryService {
	return &DeliveryService{
		deliveries: deliveries,
		tariffs:    tariffs,
		periods:    periods,
		guard:      billing.NewGuard(cfg.Billing.CancelGrace),
		log:        log,
		now:        defaultClock,
	}
}

func (s *DeliveryService) WithClock(now Clock) *DeliveryService {
	s.now = now
	return s
}

// DeliveryInput carries the pricing facts of a delivery.
type DeliveryInput struct {
	ShopID       uuid.UUID
	ClientID     uuid.UUID
	DeliveryDate time.Time
	Bags         int
	OrderAmount  *money.Money
	IsCMS        bool
	Principal    model.Principal
}

func (in DeliveryInput) validate(requireClient bool) error {
	if in.ShopID == uuid.Nil {
		return fmt.Errorf("%w: shop_id is required", ErrInvalidInput)
	}
	if requireClient && in.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client_id is required", ErrInvalidInput)
	}
	if in.DeliveryDate.IsZero() {
		return fmt.Errorf("%w: delivery_date is required", ErrInvalidInput)
	}
	if in.Bags < 0 {
		return fmt.Errorf("%w: bags must not be negative", ErrInvalidInput)
	}
	if in.OrderAmount != nil && in.OrderAmount.IsNegative() {
		return fmt.Errorf("%w: order_amount must not be negative", ErrInvalidInput)
	}
	return nil
}

func (in DeliveryInput) delivery() model.Delivery {
	return model.Delivery{
		ShopID:       in.ShopID,
		ClientID:     in.ClientID,
		DeliveryDate: model.DateOnly(in.DeliveryDate),
		Bags:         in.Bags,
		OrderAmount:  in.OrderAmount,
		IsCMS:        in.IsCMS,
	}
}

// PreviewPrice prices a prospective delivery without storing it. Previews
// into a frozen period are refused like any other change to it.
func (s *DeliveryService) PreviewPrice(ctx context.Context, in DeliveryInput) (*model.PricedDelivery, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	if err := canAccessShop(in.Principal, in.ShopID); err != nil {
		return nil, err
	}
	if _, err := loadShop(ctx, s.deliveries, in.ShopID); err != nil {
		return nil, err
	}

	d := in.delivery()
	if err := s.checkPeriod(ctx, d.ShopID, d.DeliveryDate, billing.OpPreview, nil); err != nil {
		return nil, err
	}
	priced, err := s.price(ctx, d)
	if err != nil {
		return nil, err
	}
	return &priced, nil
}

func (s *DeliveryService) Create(ctx context.Context, in DeliveryInput) (*model.Delivery, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if err := canAccessShop(in.Principal, in.ShopID); err != nil {
		return nil, err
	}
	if _, err := loadShop(ctx, s.deliveries, in.ShopID); err != nil {
		return nil, err
	}
	if _, err := s.deliveries.GetClient(ctx, in.ClientID); err != nil {
		return nil, notFound(err, "client")
	}

	d := in.delivery()
	if err := s.checkPeriod(ctx, d.ShopID, d.DeliveryDate, billing.OpCreate, nil); err != nil {
		return nil, err
	}
	priced, err := s.price(ctx, d)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d = priced.Delivery
	d.ID = uuid.New()
	d.Status = model.DeliveryCreated
	d.StatusUpdatedAt = now
	d.CreatedAt = now
	d.UpdatedAt = now
	if err := s.deliveries.CreateDelivery(ctx, d); err != nil {
		return nil, frozenAtWrite(err, d.ShopID, d.DeliveryDate, billing.OpCreate)
	}
	return &d, nil
}

// Update replaces the pricing facts of a delivery and re-prices it. Both the
// current and the target period must be open.
func (s *DeliveryService) Update(ctx context.Context, id uuid.UUID, in DeliveryInput) (*model.Delivery, error) {
	current, err := s.load(ctx, id, in.Principal)
	if err != nil {
		return nil, err
	}
	in.ShopID = current.ShopID
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if current.Status == model.DeliveryCancelled {
		return nil, fmt.Errorf("%w: cancelled deliveries cannot be edited", ErrInvalidTransition)
	}
	if _, err := s.deliveries.GetClient(ctx, in.ClientID); err != nil {
		return nil, notFound(err, "client")
	}

	next := in.delivery()
	if err := s.checkPeriod(ctx, current.ShopID, current.DeliveryDate, billing.OpEdit, current); err != nil {
		return nil, err
	}
	if !model.MonthOf(next.DeliveryDate).Equal(model.MonthOf(current.DeliveryDate)) {
		if err := s.checkPeriod(ctx, current.ShopID, next.DeliveryDate, billing.OpEdit, current); err != nil {
			return nil, err
		}
	}
	priced, err := s.price(ctx, next)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.ClientID = next.ClientID
	updated.DeliveryDate = next.DeliveryDate
	updated.Bags = next.Bags
	updated.OrderAmount = next.OrderAmount
	updated.IsCMS = next.IsCMS
	updated.TotalPrice = priced.TotalPrice
	updated.Shares = priced.Shares
	updated.UpdatedAt = s.now()
	if err := s.deliveries.UpdateDelivery(ctx, updated); err != nil {
		return nil, notFound(frozenAtWrite(err, current.ShopID, current.DeliveryDate, billing.OpEdit), "delivery")
	}
	return &updated, nil
}

// UpdateStatus moves a delivery along its lifecycle. A move to CANCELLED is
// handled as a cancellation.
func (s *DeliveryService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeliveryStatus, principal model.Principal) (*model.Delivery, error) {
	current, err := s.load(ctx, id, principal)
	if err != nil {
		return nil, err
	}
	if !ValidStatusTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
	}
	if status == model.DeliveryCancelled {
		return s.Cancel(ctx, CancelInput{DeliveryID: id, Reason: "status change", Principal: principal})
	}
	if err := s.checkPeriod(ctx, current.ShopID, current.DeliveryDate, billing.OpStatus, current); err != nil {
		return nil, err
	}

	now := s.now()
	updated := *current
	updated.Status = status
	updated.StatusUpdatedAt = now
	updated.UpdatedAt = now
	if status == model.DeliveryDelivered {
		updated.DeliveredAt = &now
	}
	if err := s.deliveries.UpdateDelivery(ctx, updated); err != nil {
		return nil, notFound(frozenAtWrite(err, current.ShopID, current.DeliveryDate, billing.OpStatus), "delivery")
	}
	return &updated, nil
}

type CancelInput struct {
	DeliveryID uuid.UUID
	Reason     string
	Principal  model.Principal
}

// Cancel cancels a delivery. In a frozen period this is only possible within
// the grace window; the cancellation is then logged against the period and
// its billing documents are marked stale.
func (s *DeliveryService) Cancel(ctx context.Context, in CancelInput) (*model.Delivery, error) {
	current, err := s.load(ctx, in.DeliveryID, in.Principal)
	if err != nil {
		return nil, err
	}
	if current.Status == model.DeliveryCancelled {
		return nil, fmt.Errorf("%w: delivery already cancelled", ErrInvalidTransition)
	}

	updated, err := s.cancel(ctx, current, in)
	if errors.Is(err, repository.ErrPeriodFrozen) {
		// The period froze after it was read: decide again against the frozen
		// period. Freezes are final, so one retry settles it.
		updated, err = s.cancel(ctx, current, in)
	}
	if err != nil {
		return nil, frozenAtWrite(err, current.ShopID, current.DeliveryDate, billing.OpCancel)
	}
	return updated, nil
}

func (s *DeliveryService) cancel(ctx context.Context, current *model.Delivery, in CancelInput) (*model.Delivery, error) {
	period, err := s.periods.GetBillingPeriod(ctx, current.ShopID, current.DeliveryDate)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.guard.Check(period, billing.OpCancel, current, now); err != nil {
		return nil, err
	}

	cancellation := model.Cancellation{
		DeliveryID:   current.ID,
		CancelledAt:  now,
		CancelledBy:  in.Principal.Actor(),
		Reason:       in.Reason,
		PeriodFrozen: period.IsFrozen(),
	}
	if err := s.deliveries.CancelDelivery(ctx, cancellation); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: delivery already cancelled", ErrInvalidTransition)
		}
		return nil, err
	}

	if period.IsFrozen() {
		s.log.Warn().
			Str("delivery_id", current.ID.String()).
			Str("shop_id", current.ShopID.String()).
			Str("month", model.FormatMonth(period.PeriodMonth)).
			Str("actor", cancellation.CancelledBy).
			Msg("delivery cancelled in frozen period, billing documents are stale")
	}

	updated := *current
	updated.Status = model.DeliveryCancelled
	updated.StatusUpdatedAt = now
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *DeliveryService) Get(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Delivery, error) {
	return s.load(ctx, id, principal)
}

func (s *DeliveryService) load(ctx context.Context, id uuid.UUID, principal model.Principal) (*model.Delivery, error) {
	d, err := s.deliveries.GetDelivery(ctx, id)
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	if err := canAccessShop(principal, d.ShopID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DeliveryService) checkPeriod(ctx context.Context, shopID uuid.UUID, date time.Time, op billing.Operation, d *model.Delivery) error {
	period, err := s.periods.GetBillingPeriod(ctx, shopID, date)
	if err != nil {
		return err
	}
	return s.guard.Check(period, op, d, s.now())
}

// frozenAtWrite turns a store refusal caused by a freeze that landed after
// the period check into the error the check itself would have returned.
func frozenAtWrite(err error, shopID uuid.UUID, date time.Time, op billing.Operation) error {
	if errors.Is(err, repository.ErrPeriodFrozen) {
		return &billing.PeriodFrozenError{ShopID: shopID, Month: model.MonthOf(date), Op: op}
	}
	return err
}

func (s *DeliveryService) price(ctx context.Context, d model.Delivery) (model.PricedDelivery, error) {
	tariff, err := tariffAt(ctx, s.tariffs, d.ShopID, d.DeliveryDate)
	if err != nil {
		return model.PricedDelivery{}, err
	}
	priced, err := pricing.Price(d, tariff)
	if err != nil {
		return model.PricedDelivery{}, err
	}
	priced.Delivery.TotalPrice = priced.TotalPrice
	priced.Delivery.Shares = priced.Shares
	return priced, nil
}
