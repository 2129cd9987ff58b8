package testhelpers

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/extrame/xls"
	"github.com/stretchr/testify/require"
)

const (
	cfbSector     = 512
	cfbMiniCutoff = 4096
	cfbEndOfChain = 0xFFFFFFFE
	cfbFree       = 0xFFFFFFFF
	cfbFATSector  = 0xFFFFFFFD

	biffBOF        = 0x0809
	biffEOF        = 0x000A
	biffDateMode   = 0x0022
	biffXF         = 0x00E0
	biffBoundSheet = 0x0085
	biffSST        = 0x00FC
	biffRow        = 0x0208
	biffNumber     = 0x0203
	biffRK         = 0x027E
	biffLabelSST   = 0x00FD

	// xfGeneral and xfDate index the two cell styles the fixture defines.
	xfGeneral = 0
	xfDate    = 1
	// fmtShortDate is the built-in m/d/yy number format.
	fmtShortDate = 14
)

type cfbHeader struct {
	Signature       [8]byte
	CLSID           [16]byte
	MinorVersion    uint16
	MajorVersion    uint16
	ByteOrder       uint16
	SectorShift     uint16
	MiniSectorShift uint16
	_               [6]byte
	DirSectors      uint32
	FATSectors      uint32
	DirStart        uint32
	_               uint32
	MiniCutoff      uint32
	MiniFATStart    uint32
	MiniFATSectors  uint32
	DIFATStart      uint32
	DIFATSectors    uint32
	DIFAT           [109]uint32
}

type cfbDirEntry struct {
	Name     [32]uint16
	NameLen  uint16
	Type     byte
	Color    byte
	Left     uint32
	Right    uint32
	Child    uint32
	CLSID    [16]byte
	State    uint32
	Times    [2]uint64
	Start    uint32
	Size     uint32
	SizeHigh uint32
}

type biffRowInfo struct {
	Index  uint16
	First  uint16
	Last   uint16
	Height uint16
	_      uint16
	_      uint16
	Flags  uint32
}

// XLSBytes builds a BIFF8 .xls workbook holding a single sheet with the
// given rows. Strings go to the shared string table, non-negative ints are
// RK cells and floats are NUMBER cells. Cells under a "Date" header carry
// the built-in m/d/yy format, as the published season files do.
func XLSBytes(t *testing.T, sheet string, rows [][]interface{}, date1904 bool) []byte {
	t.Helper()

	dateCol := -1
	if len(rows) > 0 {
		for j, v := range rows[0] {
			if v == "Date" {
				dateCol = j
			}
		}
	}

	var strs []string
	index := map[string]uint32{}
	for _, row := range rows {
		for _, v := range row {
			if s, ok := v.(string); ok && s != "" {
				if _, seen := index[s]; !seen {
					index[s] = uint32(len(strs))
					strs = append(strs, s)
				}
			}
		}
	}

	var sst bytes.Buffer
	writeLE(t, &sst, xls.SstInfo{Total: uint32(len(strs)), Count: uint32(len(strs))})
	for _, s := range strs {
		writeLE(t, &sst, uint16(len(s)), byte(0), []byte(s))
	}
	require.Less(t, sst.Len(), 8224, "shared strings must fit one record")

	var globals bytes.Buffer
	biffRecord(t, &globals, biffBOF, uint16(0x0600), uint16(0x0005), uint16(0), uint16(1997), uint32(0), uint32(0x0600))
	if date1904 {
		biffRecord(t, &globals, biffDateMode, uint16(1))
	}
	biffRecord(t, &globals, biffXF, xls.Xf8{Format: 0})
	biffRecord(t, &globals, biffXF, xls.Xf8{Format: fmtShortDate})

	// BOUNDSHEET is followed by SST and EOF; the sheet substream starts after them.
	boundSheetLen := 4 + 8 + len(sheet)
	sheetPos := globals.Len() + boundSheetLen + 4 + sst.Len() + 4
	biffRecord(t, &globals, biffBoundSheet, uint32(sheetPos), byte(0), byte(0), byte(len(sheet)), byte(0), []byte(sheet))
	biffRecord(t, &globals, biffSST, sst.Bytes())
	biffRecord(t, &globals, biffEOF)
	require.Equal(t, sheetPos, globals.Len())

	var cells bytes.Buffer
	biffRecord(t, &cells, biffBOF, uint16(0x0600), uint16(0x0010), uint16(0), uint16(1997), uint32(0), uint32(0x0600))
	for i, row := range rows {
		biffRecord(t, &cells, biffRow, biffRowInfo{Index: uint16(i), Last: uint16(len(row)), Height: 0xFF, Flags: 0x100})
		for j, v := range row {
			at := xls.Col{RowB: uint16(i), FirstColB: uint16(j)}
			switch v := v.(type) {
			case string:
				if v != "" {
					biffRecord(t, &cells, biffLabelSST, xls.LabelsstCol{Col: at, Xf: xfGeneral, Sst: index[v]})
				}
			case int:
				xf := uint16(xfGeneral)
				if j == dateCol && i > 0 {
					xf = xfDate
				}
				if v >= 0 && v < 1<<29 {
					biffRecord(t, &cells, biffRK, xls.RkCol{Col: at, Xfrk: xls.XfRk{Index: xf, Rk: xls.RK(uint32(v)<<2 | 2)}})
				} else {
					biffRecord(t, &cells, biffNumber, xls.NumberCol{Col: at, Index: xf, Float: float64(v)})
				}
			case float64:
				biffRecord(t, &cells, biffNumber, xls.NumberCol{Col: at, Index: xfGeneral, Float: v})
			case nil:
			default:
				t.Fatalf("unsupported cell type %T", v)
			}
		}
	}
	biffRecord(t, &cells, biffEOF)

	stream := append(globals.Bytes(), cells.Bytes()...)
	size := cfbMiniCutoff
	for size < len(stream) {
		size += cfbSector
	}
	stream = append(stream, make([]byte, size-len(stream))...)
	return compoundFile(t, "Workbook", stream)
}

// compoundFile wraps stream in a minimal OLE2 container: one FAT sector,
// one directory sector, then the stream's sectors.
func compoundFile(t *testing.T, name string, stream []byte) []byte {
	t.Helper()

	n := len(stream) / cfbSector
	require.Less(t, n+2, cfbSector/4, "stream too large for a single FAT sector")

	h := cfbHeader{
		Signature:       [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1},
		MinorVersion:    0x003E,
		MajorVersion:    3,
		ByteOrder:       0xFFFE,
		SectorShift:     9,
		MiniSectorShift: 6,
		FATSectors:      1,
		DirStart:        1,
		MiniCutoff:      cfbMiniCutoff,
		MiniFATStart:    cfbEndOfChain,
		DIFATStart:      cfbEndOfChain,
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = cfbFree
	}
	h.DIFAT[0] = 0

	fat := make([]uint32, cfbSector/4)
	for i := range fat {
		fat[i] = cfbFree
	}
	fat[0] = cfbFATSector
	fat[1] = cfbEndOfChain
	for i := 0; i < n; i++ {
		fat[2+i] = uint32(3 + i)
	}
	fat[2+n-1] = cfbEndOfChain

	root := dirEntry("Root Entry", 5)
	root.Child = 1
	root.Start = cfbEndOfChain
	book := dirEntry(name, 2)
	book.Child = cfbFree
	book.Start = 2
	book.Size = uint32(len(stream))

	var buf bytes.Buffer
	writeLE(t, &buf, h, fat, root, book, make([]byte, 2*128))
	buf.Write(stream)
	require.Equal(t, (n+3)*cfbSector, buf.Len())
	return buf.Bytes()
}

func dirEntry(name string, typ byte) cfbDirEntry {
	e := cfbDirEntry{Type: typ, Color: 1, Left: cfbFree, Right: cfbFree}
	u := utf16.Encode([]rune(name))
	copy(e.Name[:], u)
	e.NameLen = uint16(2 * (len(u) + 1))
	return e
}

func biffRecord(t *testing.T, w *bytes.Buffer, id uint16, fields ...interface{}) {
	t.Helper()

	var body bytes.Buffer
	writeLE(t, &body, fields...)
	writeLE(t, w, id, uint16(body.Len()))
	w.Write(body.Bytes())
}

func writeLE(t *testing.T, w *bytes.Buffer, fields ...interface{}) {
	t.Helper()
	for _, f := range fields {
		require.NoError(t, binary.Write(w, binary.LittleEndian, f))
	}
}
