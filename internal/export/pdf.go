package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/delivery-billing/internal/model"
)

const pdfFont = "Helvetica"

type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render writes one page per document.
func (r *PDFRenderer) Render(bundle Bundle) ([]byte, error) {
	return r.render(bundle, bundle.Documents)
}

// RenderDocument writes a single document of the bundle.
func (r *PDFRenderer) RenderDocument(bundle Bundle, doc Document) ([]byte, error) {
	return r.render(bundle, []Document{doc})
}

func (r *PDFRenderer) render(bundle Bundle, docs []Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(docs) == 0 {
		pdf.AddPage()
		drawHeader(pdf, tr, bundle)
		pdf.SetFont(pdfFont, "", 11)
		pdf.CellFormat(0, 8, tr("Aucun document pour cette période."), "", 1, "L", false, 0, "")
	}

	for _, doc := range docs {
		pdf.AddPage()
		drawHeader(pdf, tr, bundle)
		drawDocument(pdf, tr, doc)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *gofpdf.Fpdf, tr func(string) string, bundle Bundle) {
	if bundle.IsPreview() {
		pdf.SetTextColor(200, 0, 0)
		pdf.SetFont(pdfFont, "B", 12)
		pdf.CellFormat(0, 8, tr("APERÇU - document non officiel"), "1", 1, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}

	pdf.SetFont(pdfFont, "B", 14)
	pdf.CellFormat(0, 10, tr("Facture de livraisons de courses"), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Période : %s    Région : %s", model.FormatMonth(bundle.Month), bundle.RegionID)), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Éditée le %s", formatDate(bundle.GeneratedAt))), "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func drawDocument(pdf *gofpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont(pdfFont, "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Destinataire : %s", recipientLabel(doc.RecipientType))), "", 1, "L", false, 0, "")
	pdf.SetFont(pdfFont, "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Identifiant : %s", doc.RecipientID)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Document : %s", doc.ID)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{25, 55, 65, 15, 20}
	drawTableRow(pdf, tr, []string{"Date", "Client", "Adresse", "Sacs", "Montant"}, widths, true)
	for _, line := range doc.Lines {
		drawTableRow(pdf, tr, []string{
			formatDate(line.Date),
			truncate(line.ClientName, 32),
			truncate(line.ClientAddress, 40),
			strconv.Itoa(line.Bags),
			line.Amount.String(),
		}, widths, false)
	}

	pdf.Ln(3)
	pdf.SetFont(pdfFont, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Nombre de livraisons : %d", doc.DeliveriesCount)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total HT : %s EUR", doc.AmountHT)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("TVA (%s) : %s EUR", formatRate(doc.VATRate), doc.AmountVAT)), "", 1, "R", false, 0, "")
	pdf.SetFont(pdfFont, "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Total TTC : %s EUR", doc.AmountTTC)), "", 1, "R", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(pdfFont, style, 9)
	for i, col := range cols {
		align := "L"
		if i > 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
