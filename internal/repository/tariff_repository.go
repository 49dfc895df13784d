package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

type TariffRepository struct {
	db *gorm.DB
}

func NewTariffRepository(db *gorm.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

const tariffColumns = `
	t.id,
	t.region_id,
	t.name,
	t.rule_type,
	t.price_per_two_bags,
	t.cms_discount,
	t.tiers,
	t.client_pct,
	t.shop_pct,
	t.city_pct,
	t.admin_region_pct,
	t.created_by,
	t.created_at`

type tariffRow struct {
	ID              uuid.UUID
	RegionID        uuid.UUID
	Name            string
	RuleType        model.RuleType
	PricePerTwoBags money.Money
	CMSDiscount     money.Money `gorm:"column:cms_discount"`
	Tiers           model.Tiers
	ClientPct       decimal.Decimal
	ShopPct         decimal.Decimal
	CityPct         decimal.Decimal
	AdminRegionPct  decimal.Decimal
	CreatedBy       string
	CreatedAt       time.Time
}

func (r tariffRow) toModel() *model.TariffVersion {
	return &model.TariffVersion{
		ID:       r.ID,
		RegionID: r.RegionID,
		Name:     r.Name,
		Rule: model.TariffRule{
			Type:            r.RuleType,
			PricePerTwoBags: r.PricePerTwoBags,
			CMSDiscount:     r.CMSDiscount,
			Tiers:           r.Tiers,
		},
		Shares: model.ShareConfig{
			ClientPct:      r.ClientPct,
			ShopPct:        r.ShopPct,
			CityPct:        r.CityPct,
			AdminRegionPct: r.AdminRegionPct,
		},
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}
}

// CreateTariffVersion inserts a new version. Versions are never updated.
func (r *TariffRepository) CreateTariffVersion(ctx context.Context, v model.TariffVersion) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO tariff_versions (
			id,
			region_id,
			name,
			rule_type,
			price_per_two_bags,
			cms_discount,
			tiers,
			client_pct,
			shop_pct,
			city_pct,
			admin_region_pct,
			created_by,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID,
		v.RegionID,
		v.Name,
		v.Rule.Type,
		v.Rule.PricePerTwoBags,
		v.Rule.CMSDiscount,
		v.Rule.Tiers,
		v.Shares.ClientPct,
		v.Shares.ShopPct,
		v.Shares.CityPct,
		v.Shares.AdminRegionPct,
		v.CreatedBy,
		v.CreatedAt,
	).Error
}

func (r *TariffRepository) GetTariffVersion(ctx context.Context, id uuid.UUID) (*model.TariffVersion, error) {
	var row tariffRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+tariffColumns+`
		FROM tariff_versions t
		WHERE t.id = ?
		LIMIT 1
	`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}

func (r *TariffRepository) ListTariffVersions(ctx context.Context, regionID uuid.UUID) ([]model.TariffVersion, error) {
	var rows []tariffRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+tariffColumns+`
		FROM tariff_versions t
		WHERE t.region_id = ?
		ORDER BY t.created_at DESC
	`, regionID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]model.TariffVersion, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row.toModel())
	}
	return result, nil
}

// AssignTariff schedules a version for a shop. A second assignment on the same
// date replaces the first.
func (r *TariffRepository) AssignTariff(ctx context.Context, a model.TariffAssignment) error {
	return r.db.WithContext(ctx).Exec(`
		INSERT INTO shop_tariffs (shop_id, tariff_version_id, effective_from, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (shop_id, effective_from)
		DO UPDATE SET tariff_version_id = EXCLUDED.tariff_version_id, created_at = EXCLUDED.created_at
	`, a.ShopID, a.TariffVersionID, model.DateOnly(a.EffectiveFrom), a.CreatedAt).Error
}

// TariffForShop returns the version in force for the shop on asOf.
func (r *TariffRepository) TariffForShop(ctx context.Context, shopID uuid.UUID, asOf time.Time) (*model.TariffVersion, error) {
	var row tariffRow
	if err := r.db.WithContext(ctx).Raw(`
		SELECT `+tariffColumns+`
		FROM shop_tariffs st
		JOIN tariff_versions t ON t.id = st.tariff_version_id
		WHERE st.shop_id = ?
			AND st.effective_from <= ?
		ORDER BY st.effective_from DESC
		LIMIT 1
	`, shopID, model.DateOnly(asOf)).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return row.toModel(), nil
}
