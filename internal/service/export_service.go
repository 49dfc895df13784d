package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/delivery-billing/internal/billing"
	"github.com/nurpe/delivery-billing/internal/export"
	"github.com/nurpe/delivery-billing/internal/model"
)

type ExportInput struct {
	RegionID      uuid.UUID
	Month         time.Time
	RecipientType *model.RecipientType
	RecipientID   *uuid.UUID
	Mode          export.Mode
	Format        export.Format
	Principal     model.Principal
}

// RequestDocumentExport renders billing documents with their line items.
// Preview exports are computed from current data and never persisted.
// Official exports use the stored documents and require every contributing
// shop period to be frozen, aggregated after its last change, and to still
// match the deliveries on record.
func (s *BillingService) RequestDocumentExport(ctx context.Context, in ExportInput) (*export.File, error) {
	if err := requireAdmin(in.Principal); err != nil {
		return nil, err
	}
	if in.RegionID == uuid.Nil {
		return nil, fmt.Errorf("%w: region_id is required", ErrInvalidInput)
	}
	if in.Month.IsZero() {
		return nil, fmt.Errorf("%w: month is required", ErrInvalidInput)
	}
	if in.Mode != export.ModePreview && in.Mode != export.ModeOfficial {
		return nil, fmt.Errorf("%w: invalid mode %q", ErrInvalidInput, in.Mode)
	}
	if _, err := export.ParseFormat(string(in.Format)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.RecipientType != nil && !in.RecipientType.Valid() {
		return nil, fmt.Errorf("%w: unknown recipient_type %q", ErrInvalidInput, *in.RecipientType)
	}

	month := model.MonthOf(in.Month)
	result, rate, err := s.compute(ctx, in.RegionID, month)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var docs []export.Document
	for _, doc := range result.Documents {
		if in.RecipientType != nil && doc.RecipientType != *in.RecipientType {
			continue
		}
		if in.RecipientID != nil && doc.RecipientID != *in.RecipientID {
			continue
		}
		doc.ComputedAt = now
		docs = append(docs, export.Document{BillingDocument: doc, Lines: result.Lines[billing.KeyOf(doc)]})
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	if in.Mode == export.ModeOfficial {
		if err := s.checkOfficial(ctx, in.RegionID, month, docs); err != nil {
			return nil, err
		}
	}

	file, err := s.renderer.Render(export.Bundle{
		Mode:        in.Mode,
		RegionID:    in.RegionID,
		Month:       month,
		VATRate:     rate,
		GeneratedAt: now,
		Documents:   docs,
	}, in.Format)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("region_id", in.RegionID.String()).
		Str("month", model.FormatMonth(month)).
		Str("mode", string(in.Mode)).
		Str("format", string(in.Format)).
		Int("documents", len(docs)).
		Msg("billing documents exported")
	return file, nil
}

// checkOfficial verifies the exported documents against the freeze state and
// the stored aggregation, and swaps in the stored computation timestamps.
func (s *BillingService) checkOfficial(ctx context.Context, regionID uuid.UUID, month time.Time, docs []export.Document) error {
	shops := make(map[uuid.UUID]struct{})
	for _, doc := range docs {
		for _, line := range doc.Lines {
			shops[line.ShopID] = struct{}{}
		}
	}
	for shopID := range shops {
		period, err := s.billing.GetBillingPeriod(ctx, shopID, month)
		if err != nil {
			return err
		}
		if !period.IsFrozen() {
			return fmt.Errorf("%w: shop %s is open for %s", ErrExportRequiresFrozen, shopID, model.FormatMonth(month))
		}
		if period.IsStale() {
			return fmt.Errorf("%w: shop %s changed after aggregation", ErrStaleDocuments, shopID)
		}
	}

	stored, err := s.billing.ListBillingDocuments(ctx, regionID, month, nil)
	if err != nil {
		return err
	}
	byKey := make(map[billing.DocumentKey]model.BillingDocument, len(stored))
	for _, doc := range stored {
		byKey[billing.KeyOf(doc)] = doc
	}
	for i := range docs {
		saved, ok := byKey[billing.KeyOf(docs[i].BillingDocument)]
		if !ok || saved.AmountHT != docs[i].AmountHT || saved.AmountTTC != docs[i].AmountTTC || saved.DeliveriesCount != docs[i].DeliveriesCount {
			return fmt.Errorf("%w: %s %s needs aggregation", ErrStaleDocuments, docs[i].RecipientType, docs[i].RecipientID)
		}
		docs[i].ComputedAt = saved.ComputedAt
	}
	return nil
}
