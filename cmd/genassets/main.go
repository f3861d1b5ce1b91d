// Command genassets generates the static assets the dataserver loads at
// startup, plus the pinned fixture dataset served when a request carries the
// `test` parameter. Values are synthetic; production deployments replace the
// light pollution raster and lookup tables with the real precomputed ones.
//
// Usage:
//
//	go run ./cmd/genassets -assets-dir assets -data-dir data -step 0.25
//
// A coarser -step (e.g. 1.0) keeps development fixtures small.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
)

// Fixture dataset location, far in the future so it never collides with
// real data. Requests with the `test` parameter resolve here.
const (
	fixtureDate    = "30770617"
	fixtureInstant = "12"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	assetsDir := flag.String("assets-dir", "assets", "output directory for static assets")
	dataDir := flag.String("data-dir", "data", "output directory for the fixture dataset")
	step := flag.Float64("step", 0.25, "grid step in degrees")
	year := flag.Int("year", time.Now().UTC().Year(), "year for the meteor shower table")
	flag.Parse()

	if *step <= 0 || *step > 90 {
		return fmt.Errorf("invalid step %v", *step)
	}

	if err := os.MkdirAll(*assetsDir, 0o755); err != nil {
		return err
	}

	lats, lngs := axes(*step)
	rows, cols := len(lats), len(lngs)

	if err := grid.WriteArray(filepath.Join(*assetsDir, config.LatAssetFile), []int{rows}, lats); err != nil {
		return err
	}
	if err := grid.WriteArray(filepath.Join(*assetsDir, config.LngAssetFile), []int{cols}, lngs); err != nil {
		return err
	}
	if err := grid.WriteArray(filepath.Join(*assetsDir, config.LightPollutionFile),
		[]int{rows, cols}, lightPollution(lats, cols)); err != nil {
		return err
	}
	if err := grid.WriteArray(filepath.Join(*assetsDir, config.TransparencyTableFile),
		[]int{3, 3, 3}, transparencyTable()); err != nil {
		return err
	}
	if err := grid.WriteArray(filepath.Join(*assetsDir, config.ScoreTableFile),
		[]int{4, 5}, scoreTable()); err != nil {
		return err
	}
	if err := writeMeteorShowers(filepath.Join(*assetsDir, config.MeteorShowerTableFile), *year); err != nil {
		return err
	}

	if err := writeFixtureDataset(*dataDir, rows, cols); err != nil {
		return err
	}

	log.Printf("assets written to %s, fixture dataset to %s/%s/%s (%dx%d grid)",
		*assetsDir, *dataDir, fixtureDate, fixtureInstant, rows, cols)
	return nil
}

// axes builds the latitude (descending) and longitude (ascending, 0..360
// convention) coordinate arrays.
func axes(step float64) (lats, lngs []float64) {
	for lat := 90.0; lat >= -90; lat -= step {
		lats = append(lats, lat)
	}
	for lng := 0.0; lng < 360; lng += step {
		lngs = append(lngs, lng)
	}
	return lats, lngs
}

// lightPollution fills a synthetic Bortle raster: bright skies near the
// equator fading to pristine at the poles.
func lightPollution(lats []float64, cols int) []float64 {
	values := make([]float64, 0, len(lats)*cols)
	for _, lat := range lats {
		class := 9 - math.Round(8*math.Abs(lat)/90)
		for c := 0; c < cols; c++ {
			values = append(values, class)
		}
	}
	return values
}

// transparencyTable derives a monotone 3x3x3 rating table: each worse bucket
// costs one rating point, floored at 1.
func transparencyTable() []float64 {
	values := make([]float64, 0, 27)
	for cloud := 0; cloud < 3; cloud++ {
		for humidity := 0; humidity < 3; humidity++ {
			for aerosol := 0; aerosol < 3; aerosol++ {
				rating := 5 - cloud - humidity - aerosol
				if rating < 1 {
					rating = 1
				}
				values = append(values, float64(rating))
			}
		}
	}
	return values
}

// scoreTable is the 4x5 hourly score lookup, rows by light pollution tier,
// columns by transparency index (0 = excellent).
func scoreTable() []float64 {
	table := [4][5]float64{
		{4, 4, 3, 2, 1},
		{4, 3, 3, 2, 1},
		{3, 3, 2, 2, 1},
		{2, 2, 1, 1, 1},
	}
	values := make([]float64, 0, 20)
	for _, row := range table {
		values = append(values, row[:]...)
	}
	return values
}

type meteorShower struct {
	Name      string `json:"name"`
	BeginDate string `json:"begin_date"`
	EndDate   string `json:"end_date"`
	MaxDate   string `json:"max_date"`
	Rate      int    `json:"hourly_rate"`
}

// writeMeteorShowers emits the major annual showers for the given year plus
// the first shower of the next year, so a lookup in late December still has
// a successor.
func writeMeteorShowers(path string, year int) error {
	date := func(y int, m, d string) string { return fmt.Sprintf("%d/%s/%s", y, m, d) }
	showers := []meteorShower{
		{"Quadrantids", date(year, "01", "01"), date(year, "01", "06"), date(year, "01", "03"), 120},
		{"Lyrids", date(year, "04", "15"), date(year, "04", "29"), date(year, "04", "22"), 18},
		{"Eta Aquariids", date(year, "04", "19"), date(year, "05", "28"), date(year, "05", "06"), 50},
		{"Delta Aquariids", date(year, "07", "12"), date(year, "08", "23"), date(year, "07", "30"), 25},
		{"Perseids", date(year, "07", "17"), date(year, "08", "24"), date(year, "08", "13"), 100},
		{"Orionids", date(year, "10", "02"), date(year, "11", "07"), date(year, "10", "21"), 20},
		{"Leonids", date(year, "11", "06"), date(year, "11", "30"), date(year, "11", "17"), 15},
		{"Geminids", date(year, "12", "04"), date(year, "12", "17"), date(year, "12", "14"), 150},
		{"Quadrantids", date(year+1, "01", "01"), date(year+1, "01", "06"), date(year+1, "01", "03"), 120},
	}

	payload, err := json.MarshalIndent(map[string][]meteorShower{"data": showers}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// writeFixtureDataset builds the complete pinned dataset: 72 hourly GFS
// grids, 24 three-hourly GEFS grids, alternating between two value sets so
// consecutive hours differ, plus the completion marker.
func writeFixtureDataset(dataDir string, rows, cols int) error {
	base := filepath.Join(dataDir, fixtureDate, fixtureInstant)
	for _, kind := range []domain.DatasetKind{domain.DatasetGFS, domain.DatasetGEFS} {
		if err := os.MkdirAll(filepath.Join(base, string(kind)), 0o755); err != nil {
			return err
		}
	}

	// Even/odd hour values per variable: clear vs mediocre conditions.
	values := map[string][2]float64{
		"cloud":    {10, 30},
		"humidity": {15, 45},
		"aerosol":  {0.05, 0.2},
	}

	for _, kind := range []domain.DatasetKind{domain.DatasetGFS, domain.DatasetGEFS} {
		for _, variable := range forecast.Variables(kind) {
			for _, hour := range forecast.Hours(kind) {
				v := values[variable][hour%2]
				path := filepath.Join(base, string(kind), forecast.GridFileName(variable, hour))
				if err := grid.WriteArray(path, []int{rows, cols}, constantGrid(rows*cols, v)); err != nil {
					return err
				}
			}
		}
	}

	marker := filepath.Join(base, forecast.CompletionMarker)
	return os.WriteFile(marker, []byte("Testing files processing complete.\n"), 0o644)
}

func constantGrid(n int, v float64) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return data
}
