package export

import (
	"archive/zip"
	"bytes"
)

// archive packs one PDF per document with the CSV and XLSX of the bundle.
func (g *Gateway) archive(bundle Bundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	add := func(name string, content []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(content)
		return err
	}

	for _, doc := range bundle.Documents {
		content, err := g.pdf.RenderDocument(bundle, doc)
		if err != nil {
			return nil, err
		}
		if err := add(documentFileName(doc, bundle.Month, "pdf"), content); err != nil {
			return nil, err
		}
	}

	sheet, err := g.xlsx.Render(bundle)
	if err != nil {
		return nil, err
	}
	if err := add(bundle.FileName(FormatXLSX), sheet); err != nil {
		return nil, err
	}

	lines, err := g.csv.Render(bundle)
	if err != nil {
		return nil, err
	}
	if err := add(bundle.FileName(FormatCSV), lines); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
