// Package grid maps coordinates onto the fixed 0.25 degree global forecast
// grid and loads the NumPy-format backing assets shared by all requests.
package grid

import (
	"fmt"
	"math"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// Default grid dimensions for the 0.25 degree global grid.
const (
	DefaultRows = 721  // latitude 90 .. -90
	DefaultCols = 1440 // longitude 0 .. 359.75
)

// Assets holds the immutable grid coordinate axes, loaded once at process
// start and shared read-only across concurrent requests.
type Assets struct {
	lats []float64 // row axis, descending (90 .. -90)
	lngs []float64 // column axis, ascending (0 .. 360 convention)
}

// Index locates a grid cell: row indexes latitude, col indexes longitude.
type Index struct {
	Row int
	Col int
}

// LoadAssets reads the latitude and longitude coordinate arrays. The
// latitude file may be 2-D (one value per cell, as NOAA ships it) or 1-D;
// 2-D arrays contribute their first column.
func LoadAssets(latsPath, lngsPath string) (*Assets, error) {
	latsArr, err := ReadArray(latsPath)
	if err != nil {
		return nil, err
	}
	lngsArr, err := ReadArray(lngsPath)
	if err != nil {
		return nil, err
	}

	var lats []float64
	switch len(latsArr.Shape) {
	case 1:
		lats = latsArr.Data
	case 2:
		lats = make([]float64, latsArr.Shape[0])
		for row := range lats {
			lats[row] = latsArr.At2(row, 0)
		}
	default:
		return nil, fmt.Errorf("latitude asset %s: unexpected shape %v", latsPath, latsArr.Shape)
	}

	if len(lngsArr.Shape) != 1 {
		return nil, fmt.Errorf("longitude asset %s: unexpected shape %v", lngsPath, lngsArr.Shape)
	}

	return NewAssets(lats, lngsArr.Data)
}

// NewAssets builds an Assets handle from in-memory axes.
func NewAssets(lats, lngs []float64) (*Assets, error) {
	if len(lats) == 0 || len(lngs) == 0 {
		return nil, fmt.Errorf("grid axes must be non-empty: %d lats, %d lngs", len(lats), len(lngs))
	}
	return &Assets{lats: lats, lngs: lngs}, nil
}

// Rows returns the latitude axis length.
func (a *Assets) Rows() int { return len(a.lats) }

// Cols returns the longitude axis length.
func (a *Assets) Cols() int { return len(a.lngs) }

// LatIndex returns the row of the grid latitude nearest to lat. Ties at
// exactly half a grid step resolve to the lower index.
func (a *Assets) LatIndex(lat float64) (int, error) {
	if lat > 90 || lat < -90 {
		return 0, domain.Errorf(domain.InvalidInput, "latitude out of range: %v (-90 <= lat <= 90)", lat)
	}
	return nearest(a.lats, lat), nil
}

// LngIndex returns the column of the grid longitude nearest to lng. The axis
// uses the 0..360 convention, so the input is offset by +180 first.
func (a *Assets) LngIndex(lng float64) (int, error) {
	if lng > 180 || lng < -180 {
		return 0, domain.Errorf(domain.InvalidInput, "longitude out of range: %v (-180 <= lng <= 180)", lng)
	}
	return nearest(a.lngs, lng+180), nil
}

// CellIndex resolves both axes at once.
func (a *Assets) CellIndex(lat, lng float64) (Index, error) {
	row, err := a.LatIndex(lat)
	if err != nil {
		return Index{}, err
	}
	col, err := a.LngIndex(lng)
	if err != nil {
		return Index{}, err
	}
	return Index{Row: row, Col: col}, nil
}

// nearest returns the first index minimizing |axis[i] - target|, matching
// NumPy argmin's first-occurrence tie break.
func nearest(axis []float64, target float64) int {
	best := 0
	bestDist := math.Abs(axis[0] - target)
	for i := 1; i < len(axis); i++ {
		d := math.Abs(axis[i] - target)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
