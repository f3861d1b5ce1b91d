package domain

import "time"

// ForecastHours is the length of every assembled series: a contiguous
// 72-hour horizon starting at the dataset base timestamp.
const ForecastHours = 72

// TimestampLayout is the compact dataset base timestamp form, UTC.
const TimestampLayout = "2006010215"

// DatasetKind selects one of the two NOAA sources.
type DatasetKind string

const (
	// DatasetGFS carries cloud cover and relative humidity at hourly cadence.
	DatasetGFS DatasetKind = "gfs"
	// DatasetGEFS carries aerosol concentration at 3-hourly cadence.
	DatasetGEFS DatasetKind = "gefs"
)

// Valid reports whether k names a known source.
func (k DatasetKind) Valid() bool { return k == DatasetGFS || k == DatasetGEFS }

// SourceSeries is the per-source 72-hour series straight off the grid files.
// GFS fills Cloud and Humidity; GEFS fills Aerosol (forward-filled to hourly).
type SourceSeries struct {
	Kind      DatasetKind
	Timestamp string // YYYYMMDDHH, UTC
	Base      time.Time
	Cloud     []float64
	Humidity  []float64
	Aerosol   []float64
}

// ForecastSeries is the merged, classified hourly series for one location.
// Invariant: every slice holds exactly ForecastHours entries, one per hour
// from Base.
type ForecastSeries struct {
	Timestamp    string // canonical (GEFS) base timestamp
	Base         time.Time
	Cloud        []float64
	Humidity     []float64
	Aerosol      []float64
	Transparency []int // composite rating 1..5 (5 best), attached by the classifier
}

// DarkWindow pairs a setting with the following rising (local time). Used for
// the sun and the moon, where the interesting interval is the object-free one.
// Invariant: Set < Rise.
type DarkWindow struct {
	Set  time.Time
	Rise time.Time
}

// VisibilityWindow pairs a rising with the following setting plus the transit
// instant (local time). Used for the galactic center.
// Invariant: Rise < Transit <= Set.
type VisibilityWindow struct {
	Rise    time.Time
	Set     time.Time
	Transit time.Time
}

// DatasetCompletion announces one fully processed dataset.
type DatasetCompletion struct {
	Kind        DatasetKind `json:"kind"`
	Timestamp   string      `json:"timestamp"` // YYYYMMDDHH, UTC
	Grids       int         `json:"grids"`
	CompletedAt time.Time   `json:"completed_at"`
}

// WindowsPerRequest is how many consecutive windows a request produces per object.
const WindowsPerRequest = 4

// Grade is the aggregate stargazing quality over the forecast horizon.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
)
