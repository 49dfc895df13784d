package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/nurpe/delivery-billing/internal/model"
)

// CSVRenderer writes one row per document line, prefixed with the document
// totals, so a single file carries the whole bundle.
type CSVRenderer struct{}

func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

var csvHeader = []string{
	"mode",
	"period",
	"recipient_type",
	"recipient_id",
	"document_id",
	"amount_ht",
	"amount_vat",
	"amount_ttc",
	"vat_rate",
	"deliveries_count",
	"delivery_id",
	"date",
	"client",
	"address",
	"bags",
	"amount",
}

func (r *CSVRenderer) Render(bundle Bundle) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	period := model.FormatMonth(bundle.Month)
	for _, doc := range bundle.Documents {
		head := []string{
			string(bundle.Mode),
			period,
			string(doc.RecipientType),
			doc.RecipientID.String(),
			doc.ID.String(),
			doc.AmountHT.String(),
			doc.AmountVAT.String(),
			doc.AmountTTC.String(),
			doc.VATRate.String(),
			strconv.Itoa(doc.DeliveriesCount),
		}
		for _, line := range doc.Lines {
			record := append(append([]string(nil), head...),
				line.DeliveryID.String(),
				line.Date.Format("2006-01-02"),
				line.ClientName,
				line.ClientAddress,
				strconv.Itoa(line.Bags),
				line.Amount.String(),
			)
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
