// Package export converts artifacts into download formats.
package export

import (
	"encoding/csv"
	"io"
	"reflect"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/RedWaffle007/sic-data-software/internal/artifact"
	"github.com/RedWaffle007/sic-data-software/internal/model"
	"github.com/RedWaffle007/sic-data-software/internal/resilience"
)

// Formats accepted by Artifact.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// CSV writes rows as CSV with a header, columns in struct field order.
func CSV[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// XLSX writes rows as a single-sheet workbook. Headers come from the csv
// struct tags so spreadsheet and CSV exports stay column-identical.
func XLSX[T any](w io.Writer, rows []T, sheetName string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	var zero T
	typ := reflect.TypeOf(zero)
	header := sheet.AddRow()
	for i := 0; i < typ.NumField(); i++ {
		header.AddCell().SetString(columnName(typ.Field(i)))
	}

	for _, row := range rows {
		v := reflect.ValueOf(row)
		xr := sheet.AddRow()
		for i := 0; i < typ.NumField(); i++ {
			cell := xr.AddCell()
			switch f := v.Field(i); f.Kind() {
			case reflect.Bool:
				cell.SetBool(f.Bool())
			case reflect.Float64:
				cell.SetFloat(f.Float())
			case reflect.Int, reflect.Int64:
				cell.SetInt64(f.Int())
			default:
				cell.SetString(f.String())
			}
		}
	}

	return eris.Wrap(file.Write(w), "export: write workbook")
}

// Artifact streams a keyed artifact in the requested format, picking the
// record schema from the artifact's stage.
func Artifact(w io.Writer, dir, key, format string) error {
	if !artifact.Exists(dir, key) {
		return eris.Wrap(resilience.NewNotFound("artifact", key), "export: artifact")
	}
	meta, err := artifact.ReadMeta(dir, key)
	if err != nil {
		return err
	}

	switch meta.Stage {
	case "sic_extract":
		return exportRows[model.ExtractRecord](w, dir, key, format)
	case "enrich_v1":
		return exportRows[model.EnrichedRecord](w, dir, key, format)
	case "enrich_v2":
		return exportRows[model.EnrichedV2Record](w, dir, key, format)
	default:
		return exportRows[model.ResolvedRecord](w, dir, key, format)
	}
}

func exportRows[T any](w io.Writer, dir, key, format string) error {
	rows, err := artifact.ReadRows[T](dir, key)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV, "":
		return CSV(w, rows)
	case FormatXLSX:
		return XLSX(w, rows, "companies")
	default:
		return eris.Wrap(resilience.NewValidation("unknown export format %q", format), "export: artifact")
	}
}

func columnName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("csv"); ok && tag != "" && tag != "-" {
		return tag
	}
	return f.Name
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}
