package forecast

import (
	"fmt"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
)

// ConversionTable is the fixed 3x3x3 lookup resolving (cloud bucket,
// humidity bucket, aerosol bucket) to the composite transparency rating
// (1 = poor .. 5 = excellent). Opaque precomputed asset, consumed as-is.
type ConversionTable struct {
	arr *grid.Array
}

// LoadConversionTable reads and shape-checks the transparency table.
func LoadConversionTable(path string) (*ConversionTable, error) {
	arr, err := grid.ReadArray(path)
	if err != nil {
		return nil, err
	}
	if !arr.IsShape(3, 3, 3) {
		return nil, fmt.Errorf("transparency table %s: unexpected shape %v", path, arr.Shape)
	}
	return &ConversionTable{arr: arr}, nil
}

// NewConversionTable wraps in-memory values; used by tests and fixtures.
func NewConversionTable(values [3][3][3]int) *ConversionTable {
	data := make([]float64, 0, 27)
	for _, plane := range values {
		for _, row := range plane {
			for _, v := range row {
				data = append(data, float64(v))
			}
		}
	}
	return &ConversionTable{arr: &grid.Array{Shape: []int{3, 3, 3}, Data: data}}
}

func (t *ConversionTable) lookup(cloud, humidity, aerosol int) int {
	return int(t.arr.At3(cloud, humidity, aerosol))
}

// CloudHumidityBucket buckets a cloud-cover or relative-humidity percentage.
// The two share one quantitative standard: [0,20) low, [20,40) moderate,
// [40,100] high.
func CloudHumidityBucket(pct float64) (int, error) {
	if pct < 0 || pct > 100 {
		return 0, domain.Errorf(domain.InvalidInput,
			"invalid cloud/humidity percentage %v, should be between 0 and 100", pct)
	}
	switch {
	case pct < 20:
		return 0, nil
	case pct < 40:
		return 1, nil
	default:
		return 2, nil
	}
}

// AerosolBucket buckets a total aerosol concentration: [0,0.1) low,
// [0.1,0.3) moderate, [0.3,inf) high.
func AerosolBucket(aerosol float64) (int, error) {
	if aerosol < 0 {
		return 0, domain.Errorf(domain.InvalidInput, "invalid aerosol concentration %v, should be non-negative", aerosol)
	}
	switch {
	case aerosol < 0.1:
		return 0, nil
	case aerosol < 0.3:
		return 1, nil
	default:
		return 2, nil
	}
}

// Classify attaches the per-hour transparency rating to the series.
func Classify(series *domain.ForecastSeries, table *ConversionTable) error {
	ratings := make([]int, domain.ForecastHours)
	for hour := 0; hour < domain.ForecastHours; hour++ {
		cloudBucket, err := CloudHumidityBucket(series.Cloud[hour])
		if err != nil {
			return domain.WrapError(domain.InvalidInput, err, "cloud value at hour %d", hour)
		}
		humidityBucket, err := CloudHumidityBucket(series.Humidity[hour])
		if err != nil {
			return domain.WrapError(domain.InvalidInput, err, "humidity value at hour %d", hour)
		}
		aerosolBucket, err := AerosolBucket(series.Aerosol[hour])
		if err != nil {
			return domain.WrapError(domain.InvalidInput, err, "aerosol value at hour %d", hour)
		}
		ratings[hour] = table.lookup(cloudBucket, humidityBucket, aerosolBucket)
	}
	series.Transparency = ratings
	return nil
}
