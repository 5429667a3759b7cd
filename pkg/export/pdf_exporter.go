package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Section is a heading followed by free-form lines.
type Section struct {
	Heading string
	Lines   []string
}

// Table is an optional tabular block rendered after the sections.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Document describes a printable record: a title, narrative sections,
// and an optional table.
type Document struct {
	Title    string
	Sections []Section
	Table    *Table
}

// PDFExporter renders documents into a basic A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF from the document.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, section.Heading, "", 1, "L", false, 0, "")
		}
		pdf.SetFont("Arial", "", 10)
		for _, line := range section.Lines {
			pdf.MultiCell(0, 6, line, "", "L", false)
		}
		pdf.Ln(3)
	}

	if doc.Table != nil && len(doc.Table.Headers) > 0 {
		pdf.SetFont("Arial", "B", 10)
		colWidth := 190.0 / float64(len(doc.Table.Headers))
		for _, header := range doc.Table.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range doc.Table.Rows {
			for i := 0; i < len(doc.Table.Headers); i++ {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
