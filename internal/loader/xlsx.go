package loader

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/commission-staging/internal/model"
)

// XLSX loads certificate split records from an XLSX extract. The first row
// must carry the column names.
type XLSX struct {
	Path      string
	SheetName string // empty = first sheet
}

// NewXLSX creates an XLSX loader for the given file.
func NewXLSX(path, sheetName string) *XLSX {
	return &XLSX{Path: path, SheetName: sheetName}
}

// Load reads and converts the whole sheet, skipping inactive rows.
func (l *XLSX) Load(ctx context.Context) ([]model.CertificateSplitRecord, error) {
	log := zap.L().With(zap.String("component", "loader.xlsx"))

	f, err := xlsx.OpenFile(l.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open xlsx %s", l.Path)
	}

	sheet, err := l.sheet(f)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("loader: xlsx %s: empty sheet", l.Path)
	}

	colIdx := mapColumns(rowToStrings(sheet.Rows[0]))

	var records []model.CertificateSplitRecord
	skipped := 0
	for i, row := range sheet.Rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "loader: xlsx cancelled")
		}

		cells := rowToStrings(row)
		if getCol(cells, colIdx, "certificate_id") == "" {
			continue // trailing blank rows
		}
		if !activeStatus(getCol(cells, colIdx, "cert_status")) {
			skipped++
			continue
		}

		rec, err := recordFromStrings(cells, colIdx)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: xlsx row %d", i+2)
		}
		records = append(records, rec)
	}

	log.Info("xlsx load complete", zap.Int("records", len(records)), zap.Int("inactive_skipped", skipped))
	return records, nil
}

func (l *XLSX) sheet(f *xlsx.File) (*xlsx.Sheet, error) {
	if l.SheetName != "" {
		sheet, ok := f.Sheet[l.SheetName]
		if !ok {
			return nil, eris.Errorf("loader: xlsx sheet %q not found", l.SheetName)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: xlsx %s has no sheets", l.Path)
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
