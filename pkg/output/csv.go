// Package output persists extracted quotes. It sits outside the
// scraping core behind the uber.QuoteSink boundary.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/entrhq/farescout/pkg/uber"
)

// header is written once per file, when it is first created.
var header = []string{
	"date",
	"time",
	"trip_estimate",
	"base_fare",
	"minimum_fare",
	"plus_per_minute",
	"plus_per_kilometer",
	"wait_charge",
}

// Writer appends quotes to one CSV file per ride name under
// <dir>/csv/uber/. It satisfies uber.QuoteSink.
type Writer struct {
	dir string
	log *zap.Logger
}

// NewWriter writes under dir, or the working directory when dir is
// empty.
func NewWriter(dir string, log *zap.Logger) *Writer {
	if dir == "" {
		dir = "."
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{dir: dir, log: log}
}

// Write appends one quote to its ride's file, creating the file with
// a header row on first use.
func (w *Writer) Write(quote uber.Quote) error {
	path := w.quotePath(quote.RideName)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	row := []string{
		quote.Date,
		quote.Time,
		quote.Estimate,
		quote.BaseFare,
		quote.MinimumFare,
		quote.PerMinute,
		quote.PerKilometer,
		quote.WaitCharge,
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	w.log.Debug("quote written", zap.String("ride", quote.RideName), zap.String("path", path))
	return nil
}

// quotePath maps a ride name to its file, flattening path separators
// so a hostile ride name cannot escape the output directory.
func (w *Writer) quotePath(rideName string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, rideName)
	if name == "" || name == "." || name == ".." {
		name = "unknown"
	}
	return filepath.Join(w.dir, "csv", "uber", name+".csv")
}
