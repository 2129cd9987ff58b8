// Package feed downloads season archives and opens the workbook inside them.
package feed

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/padraicbc/tennisapi/metrics"
)

var (
	// ErrFetch covers network failures and non-2xx responses.
	ErrFetch = errors.New("feed fetch failed")
	// ErrArchiveFormat is returned when the download is not a zip holding
	// exactly one readable workbook.
	ErrArchiveFormat = errors.New("feed archive format")
	// ErrSheetNotFound is returned when the workbook has no sheet of the requested name.
	ErrSheetNotFound = errors.New("feed sheet not found")
)

// DefaultMaxBytes bounds the size of a downloaded archive.
const DefaultMaxBytes = 64 << 20

// Fetcher downloads season archives.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// NewFetcher returns a Fetcher whose requests give up after timeout.
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
		logger:   logger,
	}
}

// Fetch downloads the archive at url and opens the single workbook it holds.
// The caller must Close the returned workbook.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Workbook, error) {
	start := time.Now()
	data, err := f.download(ctx, url)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.FeedFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	metrics.FeedBytes.Observe(float64(len(data)))

	f.logger.Info("feed downloaded",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Duration("took", time.Since(start)),
	)

	entry, err := singleEntry(data)
	if err != nil {
		return nil, err
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open entry %q: %v", ErrArchiveFormat, entry.Name, err)
	}
	defer rc.Close()

	return OpenWorkbook(rc, entry.Name)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetch, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrFetch, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetch, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: archive larger than %d bytes", ErrFetch, f.maxBytes)
	}
	return data, nil
}

// singleEntry returns the only file in the zip archive. Directories and
// macOS resource forks are not counted.
func singleEntry(data []byte) (*zip.File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveFormat, err)
	}

	var files []*zip.File
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasPrefix(zf.Name, "__MACOSX/") {
			continue
		}
		files = append(files, zf)
	}

	switch len(files) {
	case 0:
		return nil, fmt.Errorf("%w: archive is empty", ErrArchiveFormat)
	case 1:
		return files[0], nil
	default:
		names := make([]string, len(files))
		for i, zf := range files {
			names[i] = zf.Name
		}
		return nil, fmt.Errorf("%w: expected one entry, found %d: %s", ErrArchiveFormat, len(files), strings.Join(names, ", "))
	}
}
