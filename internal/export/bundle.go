// Package export renders billing documents into downloadable files.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/delivery-billing/internal/model"
	"github.com/nurpe/delivery-billing/internal/money"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

type Mode string

const (
	ModePreview  Mode = "preview"
	ModeOfficial Mode = "official"
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModePreview:
		return ModePreview, nil
	case ModeOfficial:
		return ModeOfficial, nil
	default:
		return "", fmt.Errorf("invalid export mode %q", raw)
	}
}

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatZIP  Format = "zip"
)

func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatPDF, FormatXLSX, FormatCSV, FormatZIP:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatZIP:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// Document is a billing document with the deliveries behind its amount.
type Document struct {
	model.BillingDocument
	Lines []model.DocumentLine
}

// Bundle is everything a renderer needs. Renderers never read storage.
type Bundle struct {
	Mode        Mode
	RegionID    uuid.UUID
	Month       time.Time
	VATRate     decimal.Decimal
	GeneratedAt time.Time
	Documents   []Document
}

func (b Bundle) IsPreview() bool { return b.Mode != ModeOfficial }

// Totals sums the documents of the bundle.
func (b Bundle) Totals() (ht, vat, ttc money.Money) {
	for _, doc := range b.Documents {
		ht = ht.Add(doc.AmountHT)
		vat = vat.Add(doc.AmountVAT)
		ttc = ttc.Add(doc.AmountTTC)
	}
	return ht, vat, ttc
}

type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// FileName builds "billing-<region>-<month>[-preview].<ext>".
func (b Bundle) FileName(f Format) string {
	name := fmt.Sprintf("billing-%s-%s", b.RegionID.String()[:8], model.FormatMonth(b.Month))
	if b.IsPreview() {
		name += "-preview"
	}
	return name + "." + string(f)
}

func documentFileName(doc Document, month time.Time, ext string) string {
	return fmt.Sprintf("%s-%s-%s.%s",
		strings.ToLower(string(doc.RecipientType)),
		doc.RecipientID.String()[:8],
		model.FormatMonth(month),
		ext,
	)
}

func recipientLabel(t model.RecipientType) string {
	switch t {
	case model.RecipientCommune:
		return "Commune"
	case model.RecipientHQ:
		return "Siège"
	case model.RecipientShopIndep:
		return "Commerce indépendant"
	case model.RecipientInternal:
		return "Région (interne)"
	default:
		return string(t)
	}
}

func formatRate(rate decimal.Decimal) string {
	return rate.Shift(2).StringFixed(2) + " %"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
