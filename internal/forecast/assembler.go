package forecast

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
)

// aerosolStep is the GEFS refresh cadence in forecast hours.
const aerosolStep = 3

// Variables lists the grid variables a source carries.
func Variables(kind domain.DatasetKind) []string {
	if kind == domain.DatasetGFS {
		return []string{"cloud", "humidity"}
	}
	return []string{"aerosol"}
}

// Hours lists the forecast hours a source publishes grids for.
func Hours(kind domain.DatasetKind) []int {
	step := 1
	if kind == domain.DatasetGEFS {
		step = aerosolStep
	}
	hours := make([]int, 0, domain.ForecastHours/step)
	for h := 0; h < domain.ForecastHours; h += step {
		hours = append(hours, h)
	}
	return hours
}

// GridFileName is the on-disk name of one processed grid,
// e.g. cloud.f007.npy.
func GridFileName(variable string, hour int) string {
	return fmt.Sprintf("%s.f%03d.npy", variable, hour)
}

// Assemble resolves the most recent complete dataset of the given kind and
// builds the 72-hour per-variable series at one grid cell. The 3-hourly
// aerosol series is forward-filled so every hour h carries the value from
// floor(h/3)*3.
func Assemble(dataDir string, kind domain.DatasetKind, idx grid.Index, referenceDate string) (*domain.SourceSeries, error) {
	win, err := Resolve(dataDir, kind, referenceDate)
	if err != nil {
		return nil, err
	}

	base, err := time.Parse(domain.TimestampLayout, win.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse dataset timestamp %q: %w", win.Timestamp, err)
	}

	series := &domain.SourceSeries{
		Kind:      kind,
		Timestamp: win.Timestamp,
		Base:      base.UTC(),
	}

	for _, variable := range Variables(kind) {
		values := make([]float64, domain.ForecastHours)
		for _, hour := range Hours(kind) {
			path := filepath.Join(win.Path, GridFileName(variable, hour))
			arr, err := grid.ReadArray(path)
			if err != nil {
				return nil, domain.WrapError(domain.DataUnavailable, err,
					"dataset %s is marked complete but %s is unreadable", win.Timestamp, GridFileName(variable, hour))
			}
			if len(arr.Shape) != 2 || idx.Row >= arr.Shape[0] || idx.Col >= arr.Shape[1] {
				return nil, domain.Errorf(domain.DataUnavailable,
					"grid %s has shape %v, cannot index cell (%d, %d)", path, arr.Shape, idx.Row, idx.Col)
			}
			values[hour] = arr.At2(idx.Row, idx.Col)
		}
		if kind == domain.DatasetGEFS {
			for h := 0; h < domain.ForecastHours; h++ {
				values[h] = values[(h/aerosolStep)*aerosolStep]
			}
		}

		switch variable {
		case "cloud":
			series.Cloud = values
		case "humidity":
			series.Humidity = values
		case "aerosol":
			series.Aerosol = values
		}
	}

	return series, nil
}

// Merge combines the GFS and GEFS source series into one forecast series.
// The two independently resolved base timestamps are expected to match; a
// mismatch is logged as an anomaly but does not abort the request, and the
// GEFS timestamp is canonical for presentation.
func Merge(gfs, gefs *domain.SourceSeries, logger *slog.Logger) *domain.ForecastSeries {
	if gfs.Timestamp != gefs.Timestamp {
		logger.Error("gfs and gefs datasets have different timestamps",
			"timestamp_gfs", gfs.Timestamp, "timestamp_gefs", gefs.Timestamp)
	}
	return &domain.ForecastSeries{
		Timestamp: gefs.Timestamp,
		Base:      gefs.Base,
		Cloud:     gfs.Cloud,
		Humidity:  gfs.Humidity,
		Aerosol:   gefs.Aerosol,
	}
}
