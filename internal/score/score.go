// Package score turns per-hour transparency ratings, sky darkness and moon
// state into hourly stargazing scores and an aggregate grade.
package score

import (
	"fmt"
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/astro"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
)

const (
	tiers          = 4
	transparencies = 5
)

// Table is the fixed 4x5 lookup resolving (light pollution tier,
// transparency index) to an hourly score in 1..4. Opaque precomputed asset.
type Table struct {
	arr *grid.Array
}

// LoadTable reads and shape-checks the score table.
func LoadTable(path string) (*Table, error) {
	arr, err := grid.ReadArray(path)
	if err != nil {
		return nil, err
	}
	if !arr.IsShape(tiers, transparencies) {
		return nil, fmt.Errorf("score table %s: unexpected shape %v", path, arr.Shape)
	}
	return &Table{arr: arr}, nil
}

// NewTable wraps in-memory values; used by tests and fixtures.
func NewTable(values [tiers][transparencies]int) *Table {
	data := make([]float64, 0, tiers*transparencies)
	for _, row := range values {
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return &Table{arr: &grid.Array{Shape: []int{tiers, transparencies}, Data: data}}
}

func (t *Table) at(tier, transparency int) int {
	return int(t.arr.At2(tier, transparency))
}

// LightPollutionTier collapses the Bortle scale into the four table rows:
// pristine (1), rural (2..4), suburban (5), bright (6 and up).
func LightPollutionTier(bortle int) int {
	switch {
	case bortle <= 1:
		return 0
	case bortle <= 4:
		return 1
	case bortle == 5:
		return 2
	default:
		return 3
	}
}

// TransparencyIndex maps the composite rating (1 = poor .. 5 = excellent)
// to the table column, where excellent transparency is column 0.
func TransparencyIndex(rating int) (int, error) {
	if rating < 1 || rating > transparencies {
		return 0, domain.Errorf(domain.InvalidInput,
			"invalid transparency rating %d, should be between 1 and %d", rating, transparencies)
	}
	return transparencies - rating, nil
}

// Hourly scores the hour starting at start (a whole UTC hour) for an
// observer at (lat, lng) with the given Bortle class. The moon dominates:
// any hour it is up scores the floor before forecast data is even consulted.
// Hours outside the series horizon are MissingData, which callers may skip.
func Hourly(table *Table, series *domain.ForecastSeries, bortle int, lat, lng float64, start time.Time) (int, error) {
	free, err := astro.MoonFree(lat, lng, start)
	if err != nil {
		return 0, err
	}
	if !free {
		return 1, nil
	}

	offset := int(start.Sub(series.Base).Hours())
	if offset < 0 || offset >= domain.ForecastHours || len(series.Transparency) != domain.ForecastHours {
		return 0, domain.Errorf(domain.MissingData,
			"hour %s is outside the %s forecast horizon", start.Format(time.RFC3339), series.Timestamp)
	}

	col, err := TransparencyIndex(series.Transparency[offset])
	if err != nil {
		return 0, err
	}
	return table.at(LightPollutionTier(bortle), col), nil
}

// Grade thresholds over the scored hours of the dark windows.
const (
	minScoredHours = 5
	sCountFours    = 3
	aCountThrees   = 3
	bCountTwos     = 5
)

// Grade aggregates hourly scores into a letter grade. Fewer than five scored
// hours carry too little signal and yield InsufficientData.
func Grade(scores []int) (domain.Grade, error) {
	if len(scores) < minScoredHours {
		return "", domain.Errorf(domain.InsufficientData,
			"only %d scored hours, need at least %d", len(scores), minScoredHours)
	}

	var fours, threes, twos int
	for _, s := range scores {
		switch {
		case s >= 4:
			fours++
			threes++
			twos++
		case s == 3:
			threes++
			twos++
		case s == 2:
			twos++
		}
	}

	switch {
	case fours >= sCountFours:
		return domain.GradeS, nil
	case threes >= aCountThrees:
		return domain.GradeA, nil
	case twos >= bCountTwos:
		return domain.GradeB, nil
	default:
		return domain.GradeC, nil
	}
}
