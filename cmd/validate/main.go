// Command validate checks the integrity of an on-disk dataset: every
// expected grid is present, loads, matches the coordinate axes, and holds
// values inside the valid range for its variable. Run it after manual data
// surgery or when the API serves suspicious numbers.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -assets-dir assets -date 20230701 -instant 06
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
	"github.com/wmarcoyu/starchasers-dataserver/internal/grid"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func main() {
	dataDir := flag.String("data-dir", "data", "dataset root directory")
	assetsDir := flag.String("assets-dir", "assets", "static assets directory")
	date := flag.String("date", "", "dataset date (YYYYMMDD)")
	instant := flag.String("instant", "", "update instant (00, 06, 12, 18)")
	flag.Parse()

	if *date == "" || *instant == "" {
		flag.Usage()
		os.Exit(2)
	}

	assets, err := grid.LoadAssets(
		filepath.Join(*assetsDir, config.LatAssetFile),
		filepath.Join(*assetsDir, config.LngAssetFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load assets: %v\n", err)
		os.Exit(1)
	}

	datasetDir := filepath.Join(*dataDir, *date, *instant)
	phases := []*phase{
		checkMarker(datasetDir),
		checkGrids(datasetDir, domain.DatasetGFS, assets),
		checkGrids(datasetDir, domain.DatasetGEFS, assets),
	}

	failed := false
	for _, p := range phases {
		if len(p.errors) == 0 {
			fmt.Printf("PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL %s (%d errors)\n", p.name, len(p.errors))
		for _, e := range p.errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func checkMarker(datasetDir string) *phase {
	p := &phase{name: "completion marker"}
	if _, err := os.Stat(filepath.Join(datasetDir, forecast.CompletionMarker)); err != nil {
		p.errorf("missing %s: %v", forecast.CompletionMarker, err)
	}
	return p
}

// validRange per variable; cloud and humidity are percentages, aerosol is a
// non-negative optical thickness.
func validRange(variable string) (lo, hi float64) {
	if variable == "aerosol" {
		return 0, 10
	}
	return 0, 100
}

func checkGrids(datasetDir string, kind domain.DatasetKind, assets *grid.Assets) *phase {
	p := &phase{name: fmt.Sprintf("%s grids", kind)}
	dir := filepath.Join(datasetDir, string(kind))

	for _, variable := range forecast.Variables(kind) {
		for _, hour := range forecast.Hours(kind) {
			name := forecast.GridFileName(variable, hour)
			arr, err := grid.ReadArray(filepath.Join(dir, name))
			if err != nil {
				p.errorf("%s: %v", name, err)
				continue
			}
			if !arr.IsShape(assets.Rows(), assets.Cols()) {
				p.errorf("%s: shape %v, want %dx%d", name, arr.Shape, assets.Rows(), assets.Cols())
				continue
			}
			lo, hi := validRange(variable)
			for i, v := range arr.Data {
				if v < lo || v > hi {
					p.errorf("%s: value %v at index %d outside [%v, %v]", name, v, i, lo, hi)
					break
				}
			}
		}
	}
	return p
}
