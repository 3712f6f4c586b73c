package pipeline

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/model"
)

const exportSheet = "Companies"

// ExportXLSX writes records to path with one header row of model.Columns.
// With no records nothing is written. It reports whether a file was saved.
func ExportXLSX(records []model.CompanyRecord, path string) (bool, error) {
	if len(records) == 0 {
		zap.L().Warn("export: no records to export", zap.String("path", path))
		return false, nil
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(exportSheet)
	if err != nil {
		return false, eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, model.Columns)
	for _, rec := range records {
		addRow(sheet, rec.Values())
	}

	if err := f.Save(path); err != nil {
		return false, eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("export: wrote records", zap.String("path", path), zap.Int("count", len(records)))
	return true, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
