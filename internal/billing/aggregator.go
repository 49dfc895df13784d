package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
	"github.com/nurpe/delivery-billing/internal/pricing"
)

// documentNamespace seeds the deterministic ids of billing documents.
var documentNamespace = uuid.MustParse("8d4f3c2a-6a0e-4b71-9a55-3f1b0c9e7d21")

// TariffLookup returns the tariff in force for a shop at a date. It returns
// pricing.ErrMissingTariff when none is.
type TariffLookup func(shopID uuid.UUID, date time.Time) (*model.TariffVersion, error)

type Input struct {
	RegionID   uuid.UUID
	Month      time.Time
	Deliveries []model.BillingDelivery
	Tariff     TariffLookup
	VATRate    decimal.Decimal
}

// DocumentKey identifies a billing document within a region and month.
type DocumentKey struct {
	Type        model.RecipientType
	RecipientID uuid.UUID
}

func KeyOf(doc model.BillingDocument) DocumentKey {
	return DocumentKey{Type: doc.RecipientType, RecipientID: doc.RecipientID}
}

type Result struct {
	Documents []model.BillingDocument
	Lines     map[DocumentKey][]model.DocumentLine
	// ShopIDs lists the shops that contributed at least one delivery.
	ShopIDs []uuid.UUID
}

type bucket struct {
	amount     money.Money
	deliveries map[uuid.UUID]struct{}
	lines      []model.DocumentLine
}

// Aggregate re-prices every delivery and sums the amounts owed per billing
// recipient. The result depends only on the input, so repeated runs over
// unchanged data produce identical documents.
func Aggregate(in Input) (*Result, error) {
	month := model.MonthOf(in.Month)
	buckets := make(map[DocumentKey]*bucket)
	shops := make(map[uuid.UUID]struct{})

	type tariffKey struct {
		shopID uuid.UUID
		date   time.Time
	}
	tariffs := make(map[tariffKey]*model.TariffVersion)

	add := func(key DocumentKey, d model.BillingDelivery, amount money.Money) {
		b, ok := buckets[key]
		if !ok {
			b = &bucket{deliveries: make(map[uuid.UUID]struct{})}
			buckets[key] = b
		}
		b.amount = b.amount.Add(amount)
		b.deliveries[d.ID] = struct{}{}
		b.lines = append(b.lines, model.DocumentLine{
			DeliveryID:    d.ID,
			ShopID:        d.ShopID,
			Date:          d.DeliveryDate,
			ClientName:    d.ClientName,
			ClientAddress: d.ClientAddress,
			Bags:          d.Bags,
			Amount:        amount,
		})
	}

	for _, d := range in.Deliveries {
		if d.Status == model.DeliveryCancelled || !model.MonthOf(d.DeliveryDate).Equal(month) {
			continue
		}
		if d.CityID == nil {
			return nil, fmt.Errorf("delivery %s: %w", d.ID, pricing.ErrMissingClient)
		}

		tk := tariffKey{shopID: d.ShopID, date: model.DateOnly(d.DeliveryDate)}
		tariff, ok := tariffs[tk]
		if !ok {
			var err error
			tariff, err = in.Tariff(d.ShopID, tk.date)
			if err != nil {
				return nil, fmt.Errorf("delivery %s: %w", d.ID, err)
			}
			tariffs[tk] = tariff
		}

		priced, err := pricing.Price(d.Delivery, tariff)
		if err != nil {
			return nil, fmt.Errorf("delivery %s: %w", d.ID, err)
		}

		if d.HQID != nil {
			add(DocumentKey{Type: model.RecipientHQ, RecipientID: *d.HQID}, d, priced.Shares.AdminRegion)
		} else {
			add(DocumentKey{Type: model.RecipientShopIndep, RecipientID: d.ShopID}, d, priced.Shares.AdminRegion)
		}
		add(DocumentKey{Type: model.RecipientCommune, RecipientID: *d.CityID}, d, priced.Shares.City)
		add(DocumentKey{Type: model.RecipientInternal, RecipientID: in.RegionID}, d, priced.TotalPrice)
		shops[d.ShopID] = struct{}{}
	}

	result := &Result{
		Documents: make([]model.BillingDocument, 0, len(buckets)),
		Lines:     make(map[DocumentKey][]model.DocumentLine, len(buckets)),
		ShopIDs:   make([]uuid.UUID, 0, len(shops)),
	}
	for key, b := range buckets {
		vat := b.amount.MulRate(in.VATRate)
		result.Documents = append(result.Documents, model.BillingDocument{
			ID:              DocumentID(in.RegionID, key, month),
			RegionID:        in.RegionID,
			RecipientType:   key.Type,
			RecipientID:     key.RecipientID,
			PeriodMonth:     month,
			AmountHT:        b.amount,
			AmountVAT:       vat,
			AmountTTC:       b.amount.Add(vat),
			VATRate:         in.VATRate,
			DeliveriesCount: len(b.deliveries),
		})
		sortLines(b.lines)
		result.Lines[key] = b.lines
	}
	SortDocuments(result.Documents)

	for id := range shops {
		result.ShopIDs = append(result.ShopIDs, id)
	}
	sort.Slice(result.ShopIDs, func(i, j int) bool {
		return result.ShopIDs[i].String() < result.ShopIDs[j].String()
	})
	return result, nil
}

// DocumentID derives a stable id from the document key so that a recompute
// replaces a document instead of adding a new one.
func DocumentID(regionID uuid.UUID, key DocumentKey, month time.Time) uuid.UUID {
	name := strings.Join([]string{regionID.String(), string(key.Type), key.RecipientID.String(), model.FormatMonth(month)}, "|")
	return uuid.NewSHA1(documentNamespace, []byte(name))
}

// SortDocuments orders documents by recipient type, then recipient id.
func SortDocuments(docs []model.BillingDocument) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].RecipientType != docs[j].RecipientType {
			return docs[i].RecipientType.Rank() < docs[j].RecipientType.Rank()
		}
		return docs[i].RecipientID.String() < docs[j].RecipientID.String()
	})
}

func sortLines(lines []model.DocumentLine) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].Date.Equal(lines[j].Date) {
			return lines[i].Date.Before(lines[j].Date)
		}
		return lines[i].DeliveryID.String() < lines[j].DeliveryID.String()
	})
}
