package grid

import (
	"fmt"
	"math"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// LightPollutionMap is the static Bortle-class raster on the forecast grid.
type LightPollutionMap struct {
	assets *Assets
	values *Array
}

// LoadLightPollutionMap reads the Bortle raster and checks it against the
// grid dimensions.
func LoadLightPollutionMap(assets *Assets, path string) (*LightPollutionMap, error) {
	values, err := ReadArray(path)
	if err != nil {
		return nil, err
	}
	if !values.IsShape(assets.Rows(), assets.Cols()) {
		return nil, fmt.Errorf("light pollution raster %s: shape %v does not match %dx%d grid",
			path, values.Shape, assets.Rows(), assets.Cols())
	}
	return &LightPollutionMap{assets: assets, values: values}, nil
}

// NewLightPollutionMap wraps an in-memory raster; used by tests.
func NewLightPollutionMap(assets *Assets, values *Array) *LightPollutionMap {
	return &LightPollutionMap{assets: assets, values: values}
}

// BortleAt returns the Bortle class (1..9) at the grid cell nearest to the
// coordinates.
func (m *LightPollutionMap) BortleAt(lat, lng float64) (int, error) {
	idx, err := m.assets.CellIndex(lat, lng)
	if err != nil {
		return 0, err
	}
	class := int(math.Round(m.values.At2(idx.Row, idx.Col)))
	if class < 1 || class > 9 {
		return 0, domain.Errorf(domain.InvalidInput, "bortle class %d at (%v, %v) outside 1..9", class, lat, lng)
	}
	return class, nil
}
