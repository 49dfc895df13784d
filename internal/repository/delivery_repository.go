package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `
	d.id,
	d.shop_id,
	d.client_id,
	d.delivery_date,
	d.bags,
	d.order_amount,
	d.is_cms,
	d.status,
	d.status_updated_at,
	d.delivered_at,
	d.total_price,
	d.share_client,
	d.share_shop,
	d.share_city,
	d.share_admin_region,
	d.created_at,
	d.updated_at`

type deliveryRow struct {
	ID               uuid.UUID
	ShopID           uuid.UUID
	ClientID         uuid.UUID
	DeliveryDate     time.Time
	Bags             int
	OrderAmount      *money.Money
	IsCMS            bool `gorm:"column:is_cms"`
	Status           model.DeliveryStatus
	StatusUpdatedAt  time.Time
	DeliveredAt      *time.Time
	TotalPrice       money.Money
	ShareClient      money.Money
	ShareShop        money.Money
	ShareCity        money.Money
	ShareAdminRegion money.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r deliveryRow) toModel() model.Delivery {
	return model.Delivery{
		ID:              r.ID,
		ShopID:          r.ShopID,
		ClientID:        r.ClientID,
		DeliveryDate:    r.DeliveryDate,
		Bags:            r.Bags,
		OrderAmount:     r.OrderAmount,
		IsCMS:           r.IsCMS,
		Status:          r.Status,
		StatusUpdatedAt: r.StatusUpdatedAt,
		DeliveredAt:     r.DeliveredAt,
		TotalPrice:      r.TotalPrice,
		Shares: model.Shares{
			Client:      r.ShareClient,
			Shop:        r.ShareShop,
			City:        r.ShareCity,
			AdminRegion: r.ShareAdminRegion,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *DeliveryRepository) GetDelivery(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	var row deliveryRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+deliveryColumns+`
		FROM deliveries d
		WHERE d.id = ?
		LIMIT 1
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	delivery := row.toModel()
	return &delivery, nil
}

// lockOpenPeriods takes the shared period locks of the shop for the months of
// dates and reports ErrPeriodFrozen when one of them is frozen. The locks are
// held until tx ends, so a freeze cannot commit in between.
func lockOpenPeriods(tx *gorm.DB, shopID uuid.UUID, dates ...time.Time) error {
	frozen, err := lockPeriods(tx, shopID, dates...)
	if err != nil {
		return err
	}
	if frozen {
		return ErrPeriodFrozen
	}
	return nil
}

func lockPeriods(tx *gorm.DB, shopID uuid.UUID, dates ...time.Time) (bool, error) {
	months := make([]time.Time, 0, len(dates))
	for _, date := range dates {
		month := model.MonthOf(date)
		if len(months) == 1 && months[0].Equal(month) {
			continue
		}
		months = append(months, month)
	}
	// Fixed order so two writers never wait on each other.
	if len(months) == 2 && months[1].Before(months[0]) {
		months[0], months[1] = months[1], months[0]
	}

	for _, month := range months {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock_shared(hashtext(?))`, periodLockKey(shopID, month)).Error; err != nil {
			return false, err
		}
	}

	var found struct{ Frozen bool }
	if err := tx.Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM billing_periods
			WHERE shop_id = ?
				AND period_month IN ?
				AND frozen_at IS NOT NULL
		) AS frozen
	`, shopID, months).Scan(&found).Error; err != nil {
		return false, err
	}
	return found.Frozen, nil
}

// CreateDelivery inserts the delivery unless its period is frozen.
func (r *DeliveryRepository) CreateDelivery(ctx context.Context, d model.Delivery) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOpenPeriods(tx, d.ShopID, d.DeliveryDate); err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO deliveries (
				id,
				shop_id,
				client_id,
				delivery_date,
				bags,
				order_amount,
				is_cms,
				status,
				status_updated_at,
				delivered_at,
				total_price,
				share_client,
				share_shop,
				share_city,
				share_admin_region,
				created_at,
				updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			d.ID,
			d.ShopID,
			d.ClientID,
			d.DeliveryDate,
			d.Bags,
			d.OrderAmount,
			d.IsCMS,
			d.Status,
			d.StatusUpdatedAt,
			d.DeliveredAt,
			d.TotalPrice,
			d.Shares.Client,
			d.Shares.Shop,
			d.Shares.City,
			d.Shares.AdminRegion,
			d.CreatedAt,
			d.UpdatedAt,
		).Error
	})
}

type deliveryTarget struct {
	ShopID       uuid.UUID
	DeliveryDate time.Time
	Status       model.DeliveryStatus
}

func lockDelivery(tx *gorm.DB, id uuid.UUID) (deliveryTarget, error) {
	var target deliveryTarget
	err := tx.Raw(`
		SELECT shop_id, delivery_date, status
		FROM deliveries
		WHERE id = ?
		FOR UPDATE
	`, id).Scan(&target).Error
	return target, err
}

// UpdateDelivery rewrites the delivery. Both the stored and the new delivery
// month must be open when the write runs.
func (r *DeliveryRepository) UpdateDelivery(ctx context.Context, d model.Delivery) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockDelivery(tx, d.ID)
		if err != nil {
			return err
		}
		if target.ShopID == uuid.Nil {
			return ErrNotFound
		}
		if err := lockOpenPeriods(tx, target.ShopID, target.DeliveryDate, d.DeliveryDate); err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE deliveries
			SET
				client_id = ?,
				delivery_date = ?,
				bags = ?,
				order_amount = ?,
				is_cms = ?,
				status = ?,
				status_updated_at = ?,
				delivered_at = ?,
				total_price = ?,
				share_client = ?,
				share_shop = ?,
				share_city = ?,
				share_admin_region = ?,
				updated_at = ?
			WHERE id = ?
		`,
			d.ClientID,
			d.DeliveryDate,
			d.Bags,
			d.OrderAmount,
			d.IsCMS,
			d.Status,
			d.StatusUpdatedAt,
			d.DeliveredAt,
			d.TotalPrice,
			d.Shares.Client,
			d.Shares.Shop,
			d.Shares.City,
			d.Shares.AdminRegion,
			d.UpdatedAt,
			d.ID,
		).Error
	})
}

// CancelDelivery marks the delivery cancelled and logs the cancellation. When
// the period was already frozen its totals are flagged stale in the same
// transaction. A period whose freeze state differs from c.PeriodFrozen at
// write time yields ErrPeriodFrozen so the caller can re-check the grace
// window.
func (r *DeliveryRepository) CancelDelivery(ctx context.Context, c model.Cancellation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := lockDelivery(tx, c.DeliveryID)
		if err != nil {
			return err
		}
		if target.ShopID == uuid.Nil || target.Status == model.DeliveryCancelled {
			return ErrConflict
		}
		frozen, err := lockPeriods(tx, target.ShopID, target.DeliveryDate)
		if err != nil {
			return err
		}
		if frozen != c.PeriodFrozen {
			return ErrPeriodFrozen
		}

		if err := tx.Exec(`
			UPDATE deliveries
			SET status = 'CANCELLED', status_updated_at = ?, updated_at = ?
			WHERE id = ?
		`, c.CancelledAt, c.CancelledAt, c.DeliveryID).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			INSERT INTO delivery_cancellations (delivery_id, cancelled_at, cancelled_by, reason, period_frozen)
			VALUES (?, ?, ?, ?, ?)
		`, c.DeliveryID, c.CancelledAt, c.CancelledBy, c.Reason, c.PeriodFrozen).Error; err != nil {
			return err
		}

		if !c.PeriodFrozen {
			return nil
		}
		return tx.Exec(`
			UPDATE billing_periods
			SET stale_since = COALESCE(stale_since, ?)
			WHERE shop_id = ? AND period_month = ?
		`, c.CancelledAt, target.ShopID, model.MonthOf(target.DeliveryDate)).Error
	})
}

// HasDeliveriesFrom reports whether the shop has non-cancelled deliveries
// dated on or after from.
func (r *DeliveryRepository) HasDeliveriesFrom(ctx context.Context, shopID uuid.UUID, from time.Time) (bool, error) {
	var found struct{ Found bool }
	if err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (
			SELECT 1
			FROM deliveries
			WHERE shop_id = ?
				AND delivery_date >= ?
				AND status <> 'CANCELLED'
		) AS found
	`, shopID, model.DateOnly(from)).Scan(&found).Error; err != nil {
		return false, err
	}
	return found.Found, nil
}

// ListDeliveriesForBilling returns the non-cancelled deliveries of the
// region's shops dated within month.
func (r *DeliveryRepository) ListDeliveriesForBilling(ctx context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingDelivery, error) {
	from, to := model.MonthRange(month)

	var rows []struct {
		deliveryRow
		RegionID      uuid.UUID
		HQID          *uuid.UUID `gorm:"column:hq_id"`
		CityID        *uuid.UUID
		ClientName    string
		ClientAddress string
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+deliveryColumns+`,
			s.region_id,
			s.hq_id,
			c.city_id,
			COALESCE(c.name, '') AS client_name,
			COALESCE(c.address, '') AS client_address
		FROM deliveries d
		JOIN shops s ON s.id = d.shop_id
		LEFT JOIN clients c ON c.id = d.client_id
		WHERE s.region_id = ?
			AND d.delivery_date >= ?
			AND d.delivery_date < ?
			AND d.status <> 'CANCELLED'
		ORDER BY d.delivery_date ASC, d.id ASC
	`, regionID, from, to).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]model.BillingDelivery, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.BillingDelivery{
			Delivery:      row.toModel(),
			RegionID:      row.RegionID,
			HQID:          row.HQID,
			CityID:        row.CityID,
			ClientName:    row.ClientName,
			ClientAddress: row.ClientAddress,
		})
	}
	return result, nil
}

func (r *DeliveryRepository) GetShop(ctx context.Context, id uuid.UUID) (*model.Shop, error) {
	var shop struct {
		ID       uuid.UUID
		RegionID uuid.UUID
		HQID     *uuid.UUID `gorm:"column:hq_id"`
		Name     string
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, region_id, hq_id, name
		FROM shops
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&shop).Error; err != nil {
		return nil, err
	}
	if shop.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &model.Shop{ID: shop.ID, RegionID: shop.RegionID, HQID: shop.HQID, Name: shop.Name}, nil
}

func (r *DeliveryRepository) GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Raw(`
		SELECT id, city_id, name, address
		FROM clients
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&client).Error; err != nil {
		return nil, err
	}
	if client.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &client, nil
}
