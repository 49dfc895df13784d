package export

import "fmt"

// Gateway dispatches a bundle to the renderer of the requested format.
type Gateway struct {
	pdf  *PDFRenderer
	xlsx *XLSXRenderer
	csv  *CSVRenderer
}

func NewGateway() *Gateway {
	return &Gateway{
		pdf:  NewPDFRenderer(),
		xlsx: NewXLSXRenderer(),
		csv:  NewCSVRenderer(),
	}
}

func (g *Gateway) Render(bundle Bundle, format Format) (*File, error) {
	var (
		content []byte
		err     error
	)
	switch format {
	case FormatPDF:
		content, err = g.pdf.Render(bundle)
	case FormatXLSX:
		content, err = g.xlsx.Render(bundle)
	case FormatCSV:
		content, err = g.csv.Render(bundle)
	case FormatZIP:
		content, err = g.archive(bundle)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return &File{
		Name:        bundle.FileName(format),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}
