package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-billing/internal/model"
)

type BillingRepository struct {
	db *gorm.DB
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

const documentColumns = `
	id,
	region_id,
	recipient_type,
	recipient_id,
	period_month,
	amount_ht,
	amount_vat,
	amount_ttc,
	vat_rate,
	deliveries_count,
	computed_at`

// ReplaceBillingDocuments swaps the whole document set of a region and month
// in one transaction and clears the stale marks of the region's shop periods.
// Concurrent runs for the same key are serialized by an advisory lock.
func (r *BillingRepository) ReplaceBillingDocuments(ctx context.Context, regionID uuid.UUID, month time.Time, docs []model.BillingDocument) error {
	month = model.MonthOf(month)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`,
			regionID.String()+"|"+model.FormatMonth(month)).Error; err != nil {
			return err
		}

		if err := tx.Exec(`
			DELETE FROM billing_documents
			WHERE region_id = ? AND period_month = ?
		`, regionID, month).Error; err != nil {
			return err
		}

		for _, doc := range docs {
			if err := tx.Exec(`
				INSERT INTO billing_documents (`+documentColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				doc.ID,
				doc.RegionID,
				doc.RecipientType,
				doc.RecipientID,
				doc.PeriodMonth,
				doc.AmountHT,
				doc.AmountVAT,
				doc.AmountTTC,
				doc.VATRate,
				doc.DeliveriesCount,
				doc.ComputedAt,
			).Error; err != nil {
				return err
			}
		}

		return tx.Exec(`
			UPDATE billing_periods bp
			SET stale_since = NULL
			FROM shops s
			WHERE s.id = bp.shop_id
				AND s.region_id = ?
				AND bp.period_month = ?
				AND bp.stale_since IS NOT NULL
		`, regionID, month).Error
	})
}

func (r *BillingRepository) ListBillingDocuments(
	ctx context.Context,
	regionID uuid.UUID,
	month time.Time,
	recipientType *model.RecipientType,
) ([]model.BillingDocument, error) {
	query := `
		SELECT ` + documentColumns + `
		FROM billing_documents
		WHERE region_id = ? AND period_month = ?
	`
	args := []interface{}{regionID, model.MonthOf(month)}
	if recipientType != nil {
		query += " AND recipient_type = ?"
		args = append(args, *recipientType)
	}
	query += " ORDER BY array_position(ARRAY['COMMUNE','HQ','SHOP_INDEP','INTERNAL']::billing_recipient_type[], recipient_type), recipient_id::text"

	var docs []model.BillingDocument
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

type periodRow struct {
	ShopID      uuid.UUID
	PeriodMonth time.Time
	FrozenAt    *time.Time
	FrozenBy    *string
	StaleSince  *time.Time
}

func (r periodRow) toModel() model.BillingPeriod {
	return model.BillingPeriod{
		ShopID:      r.ShopID,
		PeriodMonth: model.MonthOf(r.PeriodMonth),
		FrozenAt:    r.FrozenAt,
		FrozenBy:    r.FrozenBy,
		StaleSince:  r.StaleSince,
	}
}

// GetBillingPeriod returns the period record, or an OPEN period when none has
// been written yet.
func (r *BillingRepository) GetBillingPeriod(ctx context.Context, shopID uuid.UUID, month time.Time) (model.BillingPeriod, error) {
	month = model.MonthOf(month)
	var row periodRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT shop_id, period_month, frozen_at, frozen_by, stale_since
		FROM billing_periods
		WHERE shop_id = ? AND period_month = ?
		LIMIT 1
	`, shopID, month).Scan(&row).Error; err != nil {
		return model.BillingPeriod{}, err
	}
	if row.ShopID == uuid.Nil {
		return model.BillingPeriod{ShopID: shopID, PeriodMonth: month}, nil
	}
	return row.toModel(), nil
}

// ListBillingPeriods returns the written period records of the region's shops.
func (r *BillingRepository) ListBillingPeriods(ctx context.Context, regionID uuid.UUID, month time.Time) ([]model.BillingPeriod, error) {
	var rows []periodRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT bp.shop_id, bp.period_month, bp.frozen_at, bp.frozen_by, bp.stale_since
		FROM billing_periods bp
		JOIN shops s ON s.id = bp.shop_id
		WHERE s.region_id = ? AND bp.period_month = ?
		ORDER BY bp.shop_id
	`, regionID, model.MonthOf(month)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]model.BillingPeriod, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

// FreezePeriod records the freeze unless the period is already frozen, in
// which case it returns ErrConflict. The conditional upsert makes concurrent
// freezes of the same key record exactly once, and the exclusive period lock
// waits for delivery writes already checking the period.
func (r *BillingRepository) FreezePeriod(ctx context.Context, shopID uuid.UUID, month time.Time, actor string, at time.Time) (*model.BillingPeriod, error) {
	month = model.MonthOf(month)
	var row periodRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`, periodLockKey(shopID, month)).Error; err != nil {
			return err
		}
		return tx.Raw(`
			INSERT INTO billing_periods (shop_id, period_month, frozen_at, frozen_by)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (shop_id, period_month)
			DO UPDATE SET frozen_at = EXCLUDED.frozen_at, frozen_by = EXCLUDED.frozen_by
			WHERE billing_periods.frozen_at IS NULL
			RETURNING shop_id, period_month, frozen_at, frozen_by, stale_since
		`, shopID, month, at, actor).Scan(&row).Error
	})
	if err != nil {
		return nil, err
	}
	if row.ShopID == uuid.Nil {
		return nil, ErrConflict
	}
	period := row.toModel()
	return &period, nil
}

// VatRateFor returns the latest setting effective on or before month.
func (r *BillingRepository) VatRateFor(ctx context.Context, month time.Time) (*model.VatRateSetting, error) {
	var setting model.VatRateSetting
	if err := r.db.WithContext(ctx).Raw(`
		SELECT effective_from, rate
		FROM vat_rate_settings
		WHERE effective_from <= ?
		ORDER BY effective_from DESC
		LIMIT 1
	`, model.MonthOf(month)).Scan(&setting).Error; err != nil {
		return nil, err
	}
	if setting.EffectiveFrom.IsZero() {
		return nil, ErrNotFound
	}
	return &setting, nil
}

func (r *BillingRepository) SetVatRate(ctx context.Context, s model.VatRateSetting) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO vat_rate_settings (effective_from, rate)
		VALUES (?, ?)
		ON CONFLICT (effective_from) DO UPDATE SET rate = EXCLUDED.rate
	`, model.MonthOf(s.EffectiveFrom), s.Rate).Error
}
