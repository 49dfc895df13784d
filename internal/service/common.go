package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/pricing"
	"github.com/nurpe/delivery-billing/internal/repository"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func defaultClock() time.Time { return time.Now().UTC() }

func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func loadShop(ctx context.Context, store DeliveryStore, id uuid.UUID) (*model.Shop, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: shop_id is required", ErrInvalidInput)
	}
	shop, err := store.GetShop(ctx, id)
	if err != nil {
		return nil, notFound(err, "shop")
	}
	return shop, nil
}

// tariffAt resolves the tariff assigned to a shop on a date.
func tariffAt(ctx context.Context, store TariffStore, shopID uuid.UUID, date time.Time) (*model.TariffVersion, error) {
	tariff, err := store.TariffForShop(ctx, shopID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: shop %s on %s", pricing.ErrMissingTariff, shopID, date.Format("2006-01-02"))
		}
		return nil, err
	}
	return tariff, nil
}

func requireAdmin(p model.Principal) error {
	if !p.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}

// canAccessShop lets administrators act on every shop and shop accounts on
// their own.
func canAccessShop(p model.Principal, shopID uuid.UUID) error {
	if p.IsAdmin() || (p.IsShop() && p.OrgID == shopID) {
		return nil
	}
	return ErrPermissionDenied
}
