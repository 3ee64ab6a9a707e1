package output

import (
	"archive/zip"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/county-loads/internal/observability"
)

// Format identifies an output serialization.
type Format string

const (
	FormatTable Format = "table" // aligned text, stdout only
	FormatCSV   Format = "csv"
	FormatGzip  Format = "gzip"
	FormatZip   Format = "zip"
	FormatXLSX  Format = "xlsx"
)

// xlsxSheet is the worksheet name used for workbook output.
const xlsxSheet = "loads"

// Resolve picks the effective format from the --format flag and the output
// filename, and rejects invalid combinations before any data is produced.
// An empty output means stdout, which supports only the text table and CSV.
func Resolve(format, output string) (Format, error) {
	if output == "" {
		switch format {
		case "":
			return FormatTable, nil
		case "csv":
			return FormatCSV, nil
		default:
			return "", fmt.Errorf("format %q is not valid for standard output", format)
		}
	}
	switch {
	case strings.HasSuffix(output, ".csv") || format == "csv":
		return FormatCSV, nil
	case strings.HasSuffix(output, ".csv.gz") || format == "gzip":
		return FormatGzip, nil
	case strings.HasSuffix(output, ".csv.zip") || format == "zip":
		return FormatZip, nil
	case strings.HasSuffix(output, ".xlsx") || format == "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("output format %q for %q is invalid", format, output)
}

// Writer serializes documents with write accounting.
type Writer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a document writer.
func NewWriter(logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{logger: logger, metrics: metrics}
}

// Write serializes doc in the given format. An empty output writes to stdout.
func (w *Writer) Write(doc *Document, format Format, output string) error {
	var err error
	switch format {
	case FormatTable:
		err = writeText(os.Stdout, doc)
	case FormatCSV:
		err = w.toFileOrStdout(output, func(dst io.Writer) error {
			return writeCSV(dst, doc)
		})
	case FormatGzip:
		err = w.toFile(output, func(dst io.Writer) error {
			gz := gzip.NewWriter(dst)
			if err := writeCSV(gz, doc); err != nil {
				return err
			}
			return gz.Close()
		})
	case FormatZip:
		err = w.toFile(output, func(dst io.Writer) error {
			return writeZip(dst, output, doc)
		})
	case FormatXLSX:
		err = writeXLSX(output, doc)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	w.metrics.RowsWritten.WithLabelValues(string(format)).Add(float64(len(doc.Rows)))
	w.logger.Debug("output written", "format", string(format), "rows", len(doc.Rows), "output", output)
	return nil
}

func (w *Writer) toFileOrStdout(output string, fn func(io.Writer) error) error {
	if output == "" {
		return fn(os.Stdout)
	}
	return w.toFile(output, fn)
}

func (w *Writer) toFile(output string, fn func(io.Writer) error) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

// writeText prints an aligned text table, timestamps left-aligned and values
// right-aligned.
func writeText(dst io.Writer, doc *Document) error {
	widths := make([]int, len(doc.Columns))
	for i, name := range doc.Columns {
		widths[i] = len(name)
	}
	for _, row := range doc.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	line := make([]string, len(doc.Columns))
	for i, name := range doc.Columns {
		line[i] = fmt.Sprintf("%*s", widths[i], name)
	}
	if _, err := fmt.Fprintln(dst, strings.Join(line, "  ")); err != nil {
		return err
	}
	for _, row := range doc.Rows {
		for i, cell := range row {
			if i == 0 {
				line[i] = fmt.Sprintf("%-*s", widths[i], cell)
			} else {
				line[i] = fmt.Sprintf("%*s", widths[i], cell)
			}
		}
		if _, err := fmt.Fprintln(dst, strings.Join(line, "  ")); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(dst io.Writer, doc *Document) error {
	cw := csv.NewWriter(dst)
	if err := cw.Write(doc.Columns); err != nil {
		return err
	}
	for _, row := range doc.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeZip stores the CSV as the archive's single member, named after the
// output file with the .zip suffix stripped.
func writeZip(dst io.Writer, output string, doc *Document) error {
	zw := zip.NewWriter(dst)
	name := strings.TrimSuffix(filepath.Base(output), ".zip")
	member, err := zw.Create(name)
	if err != nil {
		return err
	}
	if err := writeCSV(member, doc); err != nil {
		return err
	}
	return zw.Close()
}

func writeXLSX(output string, doc *Document) error {
	wb := excelize.NewFile()
	defer wb.Close()
	if err := wb.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(doc.Columns))
	for i, name := range doc.Columns {
		header[i] = name
	}
	if err := wb.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}
	for r, row := range doc.Rows {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(xlsxSheet, addr, &cells); err != nil {
			return err
		}
	}
	return wb.SaveAs(output)
}
