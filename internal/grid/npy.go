package grid

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/sbinet/npyio"
)

// Array is a dense row-major numeric array loaded from a NumPy .npy file.
// Integer-typed files are widened to float64 on load; every backing asset of
// the server holds either float64 grids or small integer tables.
type Array struct {
	Shape []int
	Data  []float64
}

// ReadArray loads a .npy file of dtype <f8, <f4 or <i8.
func ReadArray(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open npy %s: %w", path, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read npy header %s: %w", path, err)
	}

	shape := append([]int(nil), r.Header.Descr.Shape...)
	n := 1
	for _, dim := range shape {
		n *= dim
	}

	data := make([]float64, 0, n)
	switch dtype := r.Header.Descr.Type; dtype {
	case "<f8", "f8", ">f8":
		vals := make([]float64, n)
		if err := r.Read(&vals); err != nil {
			return nil, fmt.Errorf("read npy data %s: %w", path, err)
		}
		data = vals
	case "<f4", "f4", ">f4":
		vals := make([]float32, n)
		if err := r.Read(&vals); err != nil {
			return nil, fmt.Errorf("read npy data %s: %w", path, err)
		}
		for _, v := range vals {
			data = append(data, float64(v))
		}
	case "<i8", "i8", ">i8":
		vals := make([]int64, n)
		if err := r.Read(&vals); err != nil {
			return nil, fmt.Errorf("read npy data %s: %w", path, err)
		}
		for _, v := range vals {
			data = append(data, float64(v))
		}
	default:
		return nil, fmt.Errorf("read npy %s: unsupported dtype %q", path, dtype)
	}

	if len(data) != n {
		return nil, fmt.Errorf("read npy %s: shape %v holds %d values, got %d", path, shape, n, len(data))
	}
	return &Array{Shape: shape, Data: data}, nil
}

// At2 indexes a 2-D array.
func (a *Array) At2(row, col int) float64 {
	return a.Data[row*a.Shape[1]+col]
}

// At3 indexes a 3-D array.
func (a *Array) At3(i, j, k int) float64 {
	return a.Data[(i*a.Shape[1]+j)*a.Shape[2]+k]
}

// IsShape reports whether the array has exactly the given dimensions.
func (a *Array) IsShape(dims ...int) bool {
	if len(a.Shape) != len(dims) {
		return false
	}
	for i, d := range dims {
		if a.Shape[i] != d {
			return false
		}
	}
	return true
}

// WriteArray writes data as a <f8 .npy file with an explicit shape. npyio's
// writer only derives shapes from slices and gonum matrices, so fixtures with
// 3-D tables are encoded here; the format is NPY v1.0, which ReadArray and
// NumPy both accept.
func WriteArray(path string, shape []int, data []float64) error {
	n := 1
	dims := make([]string, len(shape))
	for i, d := range shape {
		n *= d
		dims[i] = fmt.Sprintf("%d", d)
	}
	if len(data) != n {
		return fmt.Errorf("write npy %s: shape %v needs %d values, got %d", path, shape, n, len(data))
	}

	shapeRepr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeRepr += ","
	}
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%s), }", shapeRepr)
	// Total preamble (magic + version + header length + header) must be a
	// multiple of 64, with the header ending in '\n'.
	preamble := 6 + 2 + 2 + len(header) + 1
	if pad := preamble % 64; pad != 0 {
		header += strings.Repeat(" ", 64-pad)
	}
	header += "\n"

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write npy %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte("\x93NUMPY\x01\x00")); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := f.Write([]byte(header)); err != nil {
		return err
	}
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	if _, err := f.Write(buf); err != nil {
		return err
	}
	return nil
}
