// Package forecast resolves complete NOAA dataset windows and assembles the
// per-location 72-hour forecast series with its transparency classification.
package forecast

import (
	"os"
	"path/filepath"
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// CompletionMarker is written by the acquisition loop once every forecast
// hour of both sources has been processed for an update instant.
const CompletionMarker = "complete.flag"

// UpdateInstants are the UTC publication hours, scanned latest-first.
var UpdateInstants = []string{"18", "12", "06", "00"}

// lookbackDays bounds the backward scan for a complete dataset.
const lookbackDays = 3

// dateLayout is the calendar-date form used in dataset directory names.
const dateLayout = "20060102"

// Window is a resolved dataset: the directory holding one source's grids and
// the dataset base timestamp (YYYYMMDDHH, UTC).
type Window struct {
	Path      string
	Timestamp string
}

// Resolve finds the most recent complete dataset of the given kind under
// dataDir. referenceDate is a YYYYMMDD string; when empty, the current UTC
// date is used. It scans backward up to three calendar days, trying update
// instants from 18 down to 00, and accepts a dataset only when its completion
// marker exists. Returns DataUnavailable when the lookback window holds no
// complete dataset.
func Resolve(dataDir string, kind domain.DatasetKind, referenceDate string) (Window, error) {
	if !kind.Valid() {
		return Window{}, domain.Errorf(domain.InvalidInput, "invalid dataset kind: %q (expected %q or %q)",
			kind, domain.DatasetGFS, domain.DatasetGEFS)
	}

	if referenceDate == "" {
		referenceDate = domain.Clock().Now().UTC().Format(dateLayout)
	}
	refDate, err := time.Parse(dateLayout, referenceDate)
	if err != nil {
		return Window{}, domain.WrapError(domain.InvalidInput, err, "invalid reference date %q", referenceDate)
	}

	for day := 0; day < lookbackDays; day++ {
		date := refDate.AddDate(0, 0, -day).Format(dateLayout)
		for _, instant := range UpdateInstants {
			dir := filepath.Join(dataDir, date, instant)
			if _, err := os.Stat(filepath.Join(dir, CompletionMarker)); err != nil {
				continue
			}
			return Window{
				Path:      filepath.Join(dir, string(kind)),
				Timestamp: date + instant,
			}, nil
		}
	}

	return Window{}, domain.Errorf(domain.DataUnavailable,
		"no complete %s dataset within %d days of %s", kind, lookbackDays, referenceDate)
}
