// Package testhelpers builds season feed fixtures and test databases.
package testhelpers

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// WorkbookBytes builds an xlsx workbook holding a single sheet with the given rows.
func WorkbookBytes(t *testing.T, sheet string, rows [][]interface{}, date1904 bool) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	require.NoError(t, err)
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}

	if date1904 {
		require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &date1904}))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// Entry is one file of a zip archive fixture.
type Entry struct {
	Name string
	Data []byte
}

// ZipArchive packs entries into a zip archive in the given order.
func ZipArchive(t *testing.T, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// FeedServer serves body for every request and is closed when the test ends.
func FeedServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Header is the first row of a season sheet.
var Header = []interface{}{
	"ATP", "Location", "Tournament", "Date", "Series", "Court", "Surface", "Round", "Best of",
	"Winner", "Loser", "WRank", "LRank", "WPts", "LPts",
	"W1", "L1", "W2", "L2", "W3", "L3", "W4", "L4", "W5", "L5",
	"Wsets", "Lsets", "Comment",
	"B365W", "B365L", "EXW", "EXL", "LBW", "LBL", "PSW", "PSL", "SJW", "SJL",
	"MaxW", "MaxL", "AvgW", "AvgL",
}

// SampleRow returns a complete data row: Brisbane 2011-01-03, a three set
// match with every bookmaker column filled. Callers may modify the copy.
func SampleRow() []interface{} {
	return []interface{}{
		1, "Brisbane", "Brisbane International", 40546, "ATP250", "Outdoor", "Hard", "1st Round", 3,
		"Soderling R.", "Hewitt L.", 5, 54, 5785, 1040,
		6, 3, 3, 6, 7, 5, "", "", "", "",
		2, 1, "Completed",
		1.5, 2.5, 1.6, 2.4, 1.55, 2.3, 1.52, 2.62, 1.57, 2.2,
		9.99, 9.99, 9.99, 9.99,
	}
}
