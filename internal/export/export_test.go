package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

func sampleBundle(mode Mode) Bundle {
	month := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	region := uuid.New()
	line := func(day int, amount string) model.DocumentLine {
		return model.DocumentLine{
			DeliveryID:    uuid.New(),
			ShopID:        uuid.New(),
			Date:          time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
			ClientName:    "Mme Dupré",
			ClientAddress: "12 rue des Écoles",
			Bags:          2,
			Amount:        money.MustParse(amount),
		}
	}
	doc := func(typ model.RecipientType, recipient uuid.UUID, lines ...model.DocumentLine) Document {
		var ht money.Money
		for _, l := range lines {
			ht = ht.Add(l.Amount)
		}
		rate := decimal.RequireFromString("0.20")
		return Document{
			BillingDocument: model.BillingDocument{
				ID: uuid.New(), RegionID: region, RecipientType: typ, RecipientID: recipient,
				PeriodMonth: month, AmountHT: ht, AmountVAT: ht.MulRate(rate), AmountTTC: ht.Add(ht.MulRate(rate)),
				VATRate: rate, DeliveriesCount: len(lines),
			},
			Lines: lines,
		}
	}
	return Bundle{
		Mode:        mode,
		RegionID:    region,
		Month:       month,
		VATRate:     decimal.RequireFromString("0.20"),
		GeneratedAt: time.Date(2025, time.April, 2, 9, 0, 0, 0, time.UTC),
		Documents: []Document{
			doc(model.RecipientCommune, uuid.New(), line(3, "5.00"), line(4, "5.00")),
			doc(model.RecipientInternal, region, line(3, "10.00"), line(4, "10.00")),
		},
	}
}

func TestParseModeAndFormat(t *testing.T) {
	m, err := ParseMode(" Official ")
	require.NoError(t, err)
	assert.Equal(t, ModeOfficial, m)
	_, err = ParseMode("draft")
	assert.Error(t, err)

	f, err := ParseFormat("XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderPDF(t *testing.T) {
	for _, mode := range []Mode{ModePreview, ModeOfficial} {
		bundle := sampleBundle(mode)
		file, err := NewGateway().Render(bundle, FormatPDF)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
		assert.Equal(t, "application/pdf", file.ContentType)
		assert.Equal(t, mode == ModePreview, bytes.Contains([]byte(file.Name), []byte("-preview")))
	}
}

func TestRenderPDFWithoutDocuments(t *testing.T) {
	bundle := sampleBundle(ModePreview)
	bundle.Documents = nil
	content, err := NewPDFRenderer().Render(bundle)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestRenderXLSX(t *testing.T) {
	bundle := sampleBundle(ModePreview)
	file, err := NewGateway().Render(bundle, FormatXLSX)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer book.Close()

	sheets := book.GetSheetList()
	require.Len(t, sheets, 3)
	assert.Equal(t, "Synthèse", sheets[0])

	mode, err := book.GetCellValue(sheets[0], "B1")
	require.NoError(t, err)
	assert.Contains(t, mode, "APERÇU")

	client, err := book.GetCellValue(sheets[1], "B10")
	require.NoError(t, err)
	assert.Equal(t, "Mme Dupré", client)
}

func TestRenderCSV(t *testing.T) {
	bundle := sampleBundle(ModeOfficial)
	file, err := NewGateway().Render(bundle, FormatCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "official", records[1][0])
	assert.Equal(t, "2025-03", records[1][1])
	assert.Equal(t, "COMMUNE", records[1][2])
	assert.Equal(t, "10.00", records[1][5])
	assert.Equal(t, "12 rue des Écoles", records[1][13])
}

func TestRenderZIP(t *testing.T) {
	bundle := sampleBundle(ModeOfficial)
	file, err := NewGateway().Render(bundle, FormatZIP)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(file.Content), int64(len(file.Content)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Len(t, names, 4)
	assert.Contains(t, names, bundle.FileName(FormatCSV))
	assert.Contains(t, names, bundle.FileName(FormatXLSX))
	assert.Contains(t, names, documentFileName(bundle.Documents[0], bundle.Month, "pdf"))
}

func TestBuildSheetNameIsUnique(t *testing.T) {
	doc := Document{BillingDocument: model.BillingDocument{RecipientType: model.RecipientShopIndep, RecipientID: uuid.New()}}
	used := map[string]struct{}{}
	first := buildSheetName(doc, used)
	used[first] = struct{}{}
	second := buildSheetName(doc, used)
	assert.NotEqual(t, first, second)
	assert.LessOrEqual(t, len(second), 31)
}

func TestBundleTotals(t *testing.T) {
	ht, vat, ttc := sampleBundle(ModePreview).Totals()
	assert.Equal(t, money.MustParse("30.00"), ht)
	assert.Equal(t, money.MustParse("6.00"), vat)
	assert.Equal(t, money.MustParse("36.00"), ttc)
}
