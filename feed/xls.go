package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// maxXLSCols is the BIFF8 column limit, used when a row carries no ROW record
// telling us its width.
const maxXLSCols = 256

// epochFormat is a custom number format id no real workbook uses.
const epochFormat = 0xFFFF

func openXLS(data []byte, name string) (wb *Workbook, err error) {
	// The BIFF parser panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%w: open workbook %q: %v", ErrArchiveFormat, name, r)
		}
	}()

	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %q: %v", ErrArchiveFormat, name, err)
	}
	if book == nil {
		return nil, fmt.Errorf("%w: open workbook %q: no Workbook stream", ErrArchiveFormat, name)
	}

	date1904 := xlsDate1904(book)
	rawNumbers(book)
	return &Workbook{src: &xlsSource{book: book}, Name: name, Date1904: date1904}, nil
}

// xlsDate1904 reports the workbook's date system. The library keeps it
// private but applies it when rendering a cell with a custom format, so a
// known serial is rendered through a temporary custom-format XF.
func xlsDate1904(book *xls.WorkBook) bool {
	n := len(book.Xfs)
	prev, had := book.Formats[epochFormat]
	book.Xfs = append(book.Xfs, &xls.Xf8{Format: epochFormat})
	book.Formats[epochFormat] = &xls.Format{}
	defer func() {
		book.Xfs = book.Xfs[:n]
		if had {
			book.Formats[epochFormat] = prev
		} else {
			delete(book.Formats, epochFormat)
		}
	}()

	// Serial 100 is 1900-04-09 in the 1900 system and 1904-04-10 in the 1904 one.
	cell := xls.XfRk{Index: uint16(n), Rk: xls.RK(100<<2 | 2)}
	return strings.HasPrefix(cell.String(book), "1904")
}

// rawNumbers points every cell style at the General format so number cells,
// dates included, render as their stored value rather than a formatted date.
func rawNumbers(book *xls.WorkBook) {
	for _, xf := range book.Xfs {
		switch x := xf.(type) {
		case *xls.Xf8:
			x.Format = 0
		case *xls.Xf5:
			x.Format = 0
		}
	}
}

type xlsSource struct {
	book *xls.WorkBook
}

func (s *xlsSource) sheets() []string {
	names := make([]string, 0, s.book.NumSheets())
	for i := 0; i < s.book.NumSheets(); i++ {
		names = append(names, s.book.GetSheet(i).Name)
	}
	return names
}

func (s *xlsSource) rows(name string) (rows [][]string, ok bool, err error) {
	var sheet *xls.WorkSheet
	for i := 0; i < s.book.NumSheets(); i++ {
		if ws := s.book.GetSheet(i); ws != nil && ws.Name == name {
			sheet = ws
			break
		}
	}
	if sheet == nil {
		return nil, false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			rows, ok, err = nil, true, fmt.Errorf("%w: %v", ErrArchiveFormat, r)
		}
	}()

	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, xlsRow(sheet, i))
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return rows, true, nil
}

func (s *xlsSource) close() error {
	return nil
}

// xlsRow reads row i with trailing empty cells dropped. Rows the sheet never
// stored come back empty.
func xlsRow(sheet *xls.WorkSheet, i int) []string {
	row := storedRow(sheet, i)
	if row == nil {
		return nil
	}

	width := row.LastCol()
	if width <= 0 || width > maxXLSCols {
		width = maxXLSCols
	}
	cells := make([]string, width)
	for j := range cells {
		cells[j] = row.Col(j)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}

// storedRow returns nil for a missing row; WorkSheet.Row panics on one.
func storedRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
