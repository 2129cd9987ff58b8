package feed

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/xuri/excelize/v2"
)

// oleMagic opens every OLE2 compound file, which is how BIFF .xls workbooks
// are stored.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

type sheetSource interface {
	sheets() []string
	// rows returns nil, false when the sheet does not exist.
	rows(sheet string) ([][]string, bool, error)
	close() error
}

// Workbook is an opened season spreadsheet, either OOXML (.xlsx) or legacy
// BIFF (.xls).
type Workbook struct {
	src sheetSource

	// Name is the archive entry the workbook was read from.
	Name string
	// Date1904 reports whether date serials count from 1904-01-01 instead of 1899-12-30.
	Date1904 bool
}

// OpenWorkbook reads a workbook from r. Older seasons are published as
// BIFF .xls files; they are recognised by their OLE2 signature or, failing
// that, by the entry name.
func OpenWorkbook(r io.Reader, name string) (*Workbook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read workbook %q: %v", ErrArchiveFormat, name, err)
	}

	if bytes.HasPrefix(data, oleMagic) || strings.EqualFold(path.Ext(name), ".xls") {
		return openXLS(data, name)
	}
	return openXLSX(data, name)
}

func openXLSX(data []byte, name string) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %q: %v", ErrArchiveFormat, name, err)
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: read workbook properties of %q: %v", ErrArchiveFormat, name, err)
	}

	wb := &Workbook{src: xlsxSource{f}, Name: name}
	if props.Date1904 != nil {
		wb.Date1904 = *props.Date1904
	}
	return wb, nil
}

// Sheets lists the sheet names in workbook order.
func (w *Workbook) Sheets() []string {
	return w.src.sheets()
}

// Rows returns the raw cell values of the named sheet, row by row. Numbers
// and dates come back unformatted, so a date is its serial number.
// Trailing empty cells of a row are not included.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, ok, err := w.src.rows(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s (have %v)", ErrSheetNotFound, sheet, w.Name, w.Sheets())
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Close releases the temporary files excelize may have created.
func (w *Workbook) Close() error {
	return w.src.close()
}

type xlsxSource struct {
	file *excelize.File
}

func (s xlsxSource) sheets() []string {
	return s.file.GetSheetList()
}

func (s xlsxSource) rows(sheet string) ([][]string, bool, error) {
	idx, err := s.file.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, false, nil
	}
	rows, err := s.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	return rows, true, err
}

func (s xlsxSource) close() error {
	return s.file.Close()
}
