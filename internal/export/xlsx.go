package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/delivery-billing/internal/model"
)

type XLSXRenderer struct{}

func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// Render writes a summary sheet followed by one sheet per document.
func (r *XLSXRenderer) Render(bundle Bundle) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Synthèse"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := r.writeSummary(file, summarySheet, bundle); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, doc := range bundle.Documents {
		sheetName := buildSheetName(doc, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := r.writeDetail(file, sheetName, bundle, doc); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *XLSXRenderer) writeSummary(file *excelize.File, sheet string, bundle Bundle) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	mode := "Officiel"
	if bundle.IsPreview() {
		mode = "APERÇU - non officiel"
	}
	ht, vat, ttc := bundle.Totals()

	set("A1", "Mode")
	set("B1", mode)
	set("A2", "Région")
	set("B2", bundle.RegionID.String())
	set("A3", "Période")
	set("B3", model.FormatMonth(bundle.Month))
	set("A4", "Taux de TVA")
	set("B4", formatRate(bundle.VATRate))
	set("A5", "Total HT")
	set("B5", ht.Decimal().InexactFloat64())
	set("A6", "Total TVA")
	set("B6", vat.Decimal().InexactFloat64())
	set("A7", "Total TTC")
	set("B7", ttc.Decimal().InexactFloat64())

	tableRow := 9
	headers := []string{"Destinataire", "Identifiant", "Livraisons", "HT", "TVA", "TTC"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	for i, doc := range bundle.Documents {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), recipientLabel(doc.RecipientType))
		set(fmt.Sprintf("B%d", row), doc.RecipientID.String())
		set(fmt.Sprintf("C%d", row), doc.DeliveriesCount)
		set(fmt.Sprintf("D%d", row), doc.AmountHT.Decimal().InexactFloat64())
		set(fmt.Sprintf("E%d", row), doc.AmountVAT.Decimal().InexactFloat64())
		set(fmt.Sprintf("F%d", row), doc.AmountTTC.Decimal().InexactFloat64())
	}

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "F", 14)
	return nil
}

func (r *XLSXRenderer) writeDetail(file *excelize.File, sheet string, bundle Bundle, doc Document) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Destinataire")
	set("B1", recipientLabel(doc.RecipientType))
	set("A2", "Identifiant")
	set("B2", doc.RecipientID.String())
	set("A3", "Période")
	set("B3", model.FormatMonth(bundle.Month))
	set("A4", "Livraisons")
	set("B4", doc.DeliveriesCount)
	set("A5", "Total HT")
	set("B5", doc.AmountHT.Decimal().InexactFloat64())
	set("A6", "TVA")
	set("B6", doc.AmountVAT.Decimal().InexactFloat64())
	set("A7", "Total TTC")
	set("B7", doc.AmountTTC.Decimal().InexactFloat64())

	tableRow := 9
	headers := []string{"Date", "Client", "Adresse", "Sacs", "Montant", "Livraison"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}
	for i, line := range doc.Lines {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), formatDate(line.Date))
		set(fmt.Sprintf("B%d", row), line.ClientName)
		set(fmt.Sprintf("C%d", row), line.ClientAddress)
		set(fmt.Sprintf("D%d", row), line.Bags)
		set(fmt.Sprintf("E%d", row), line.Amount.Decimal().InexactFloat64())
		set(fmt.Sprintf("F%d", row), line.DeliveryID.String())
	}

	_ = file.SetColWidth(sheet, "A", "A", 14)
	_ = file.SetColWidth(sheet, "B", "C", 32)
	_ = file.SetColWidth(sheet, "D", "E", 12)
	_ = file.SetColWidth(sheet, "F", "F", 40)
	return nil
}

func buildSheetName(doc Document, used map[string]struct{}) string {
	base := sanitizeSheetName(fmt.Sprintf("%s %s", doc.RecipientType, doc.RecipientID.String()[:8]))
	if len(base) > 31 {
		base = base[:31]
	}

	candidate := base
	for counter := 2; ; counter++ {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate = trimmed + suffix
	}
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Document"
	}
	return value
}
