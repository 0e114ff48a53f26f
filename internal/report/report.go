// Package report renders downloadable persona reports.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// PersonaPDF renders a one-page PDF report for the given persona and returns
// the document bytes. The persona name is treated purely as text; it never
// reaches the filesystem and the document is built entirely in memory.
func PersonaPDF(p schema.Persona) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Customer Persona Report", "", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Persona: %s", p.Name), "", 1, "", false, 0, "")

	if p.Description != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 8, p.Description, "", "", false)
	}
	if len(p.Strategies) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Recommended strategies", "", 1, "", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		for _, s := range p.Strategies {
			pdf.CellFormat(0, 8, "- "+s, "", 1, "", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render persona report: %w", err)
	}
	return buf.Bytes(), nil
}
