// Package export renders the ledger as a CSV report and optionally uploads
// it to Cloud Storage.
package export

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/dvloznov/mail-ledger/internal/domain"
)

var csvHeader = []string{"Fecha", "Descripción", "Origen", "Categoría", "Tipo", "Monto"}

// sanitizeCell defuses spreadsheet formula injection: a leading =, +, - or @
// would otherwise execute when the report is opened in a spreadsheet.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// Render writes the events as a CSV report with localized labels. Quoting is
// handled by the CSV encoder; cell content is additionally guarded against
// formula injection.
func Render(events []domain.FinancialEvent) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, e := range events {
		record := []string{
			e.Date.String(),
			sanitizeCell(e.Description),
			sanitizeCell(e.Source),
			domain.CategoryLabel(e.Category),
			domain.DirectionLabel(e.Direction),
			e.Amount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
