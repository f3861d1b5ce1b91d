package acquire

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
	"github.com/wmarcoyu/starchasers-dataserver/internal/forecast"
)

// CommandProcessor shells out to an external GRIB converter for each raw
// file. The converter extracts the variables of the dataset kind into
// NumPy-format grids next to the raw file:
//
//	<tool> <kind> <raw-path> <out-dir> <hour>
//
// writing cloud.fNNN.npy and humidity.fNNN.npy for gfs, aerosol.fNNN.npy
// for gefs. The raw file is removed after a successful conversion.
type CommandProcessor struct {
	tool string
}

// NewCommandProcessor builds a processor invoking the given converter tool.
func NewCommandProcessor(tool string) *CommandProcessor {
	return &CommandProcessor{tool: tool}
}

// Process converts one raw grid file and removes it.
func (p *CommandProcessor) Process(ctx context.Context, kind domain.DatasetKind, rawPath string, hour int) error {
	outDir := filepath.Dir(rawPath)

	cmd := exec.CommandContext(ctx, p.tool, string(kind), rawPath, outDir, fmt.Sprintf("%d", hour))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("convert %s: %w: %s", rawPath, err, out)
	}

	// The converter is expected to have produced every variable grid.
	for _, variable := range forecast.Variables(kind) {
		grid := filepath.Join(outDir, forecast.GridFileName(variable, hour))
		if _, err := os.Stat(grid); err != nil {
			return fmt.Errorf("converter did not produce %s: %w", grid, err)
		}
	}

	return os.Remove(rawPath)
}
