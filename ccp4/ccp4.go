/*
 * ccp4.go, part of ddtrek.
 *
 * Copyright 2024 Biocrystallography, KU Leuven
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package ccp4 reads and writes CCP4/MRC real-space density maps.
//Only mode-2 (float32) maps with column/row/section along x/y/z are
//supported, which covers everything ddtrek produces and the common
//cryo-EM case. Header words are exposed by their 1-based indexes, as
//the fragment bookkeeping is specified in terms of them:
//
//	1-3   NC NR NS      size of the stored block
//	4     MODE          2 for float32 density
//	5-7   NCSTART...    position of the block inside the full cell grid
//	8-10  NX NY NZ      sampling intervals along the full cell
//	11-16 cell          dimensions (A) and angles (deg)
//	17-19 MAPC MAPR MAPS axis order
//	20-22 AMIN AMAX AMEAN
//	23    ISPG          space group number
//	53    "MAP "        format magic
//	55    RMS
package ccp4

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BiocrystLab/DDtrek/pdb"
	mmap "github.com/edsrzf/mmap-go"
	gzip "github.com/klauspost/compress/gzip"
)

const headerSize = 1024

// Grid is a 3D block of density values. Data is stored with x fastest:
// Data[(z*Ny+y)*Nx+x].
type Grid struct {
	Data       []float32
	Nx, Ny, Nz int
	Cell       *pdb.UnitCell
	SpaceGroup int
}

// At returns the value at grid point x,y,z of the stored block.
// Panics if out of range.
func (g *Grid) At(x, y, z int) float32 {
	return g.Data[(z*g.Ny+y)*g.Nx+x]
}

// Set sets the value at grid point x,y,z of the stored block.
func (g *Grid) Set(x, y, z int, v float32) {
	g.Data[(z*g.Ny+y)*g.Nx+x] = v
}

// Subarray copies the block of the given shape starting at the given
// grid indexes into a new Grid. Indexes wrap periodically, so negative
// start points are fine; the grid is treated as one period of the
// crystal lattice, the way gemmi does it.
func (g *Grid) Subarray(start, shape [3]int) *Grid {
	out := &Grid{
		Data: make([]float32, shape[0]*shape[1]*shape[2]),
		Nx:   shape[0], Ny: shape[1], Nz: shape[2],
		Cell:       g.Cell,
		SpaceGroup: g.SpaceGroup,
	}
	for z := 0; z < shape[2]; z++ {
		sz := mod(start[2]+z, g.Nz)
		for y := 0; y < shape[1]; y++ {
			sy := mod(start[1]+y, g.Ny)
			for x := 0; x < shape[0]; x++ {
				sx := mod(start[0]+x, g.Nx)
				out.Set(x, y, z, g.At(sx, sy, sz))
			}
		}
	}
	return out
}

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

// Map couples a grid with a raw CCP4 header. The header is the source
// of truth for everything written to disk; UpdateHeader syncs it from
// the grid, and the Set/HeaderI32/Float accessors allow the explicit
// word-level bookkeeping that fragment extraction needs.
type Map struct {
	Grid *Grid
	hdr  []byte
	// sampling intervals of the full cell; equal to the grid dims for
	// a whole-cell map, larger for a fragment
	SamplingX, SamplingY, SamplingZ int
	StartX, StartY, StartZ          int
}

// NewMap wraps a whole-cell grid into a Map with a fresh header.
func NewMap(g *Grid) *Map {
	m := &Map{
		Grid: g, hdr: make([]byte, headerSize),
		SamplingX: g.Nx, SamplingY: g.Ny, SamplingZ: g.Nz,
	}
	copy(m.hdr[(53-1)*4:], []byte("MAP "))
	//little-endian IEEE machine stamp
	m.hdr[(54-1)*4] = 0x44
	m.hdr[(54-1)*4+1] = 0x41
	m.UpdateHeader()
	return m
}

// HeaderI32 returns the 1-based ith header word as an int32.
func (m *Map) HeaderI32(i int) int32 {
	return int32(binary.LittleEndian.Uint32(m.hdr[(i-1)*4:]))
}

// SetHeaderI32 sets the 1-based ith header word.
func (m *Map) SetHeaderI32(i int, v int32) {
	binary.LittleEndian.PutUint32(m.hdr[(i-1)*4:], uint32(v))
}

// HeaderFloat returns the 1-based ith header word as a float32.
func (m *Map) HeaderFloat(i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(m.hdr[(i-1)*4:]))
}

// SetHeaderFloat sets the 1-based ith header word from a float32.
func (m *Map) SetHeaderFloat(i int, v float32) {
	binary.LittleEndian.PutUint32(m.hdr[(i-1)*4:], math.Float32bits(v))
}

// Spacing returns the grid spacing (Angstrom) along each cell axis,
// derived from the cell dimensions and the full-cell sampling.
func (m *Map) Spacing() [3]float64 {
	c := m.Grid.Cell
	return [3]float64{
		c.A / float64(m.SamplingX),
		c.B / float64(m.SamplingY),
		c.C / float64(m.SamplingZ),
	}
}

// UpdateHeader rewrites the size, mode, start, sampling, cell, axis
// order, statistics and space group words from the current grid state.
func (m *Map) UpdateHeader() {
	g := m.Grid
	m.SetHeaderI32(1, int32(g.Nx))
	m.SetHeaderI32(2, int32(g.Ny))
	m.SetHeaderI32(3, int32(g.Nz))
	m.SetHeaderI32(4, 2) //float32 density
	m.SetHeaderI32(5, int32(m.StartX))
	m.SetHeaderI32(6, int32(m.StartY))
	m.SetHeaderI32(7, int32(m.StartZ))
	m.SetHeaderI32(8, int32(m.SamplingX))
	m.SetHeaderI32(9, int32(m.SamplingY))
	m.SetHeaderI32(10, int32(m.SamplingZ))
	if g.Cell != nil {
		m.SetHeaderFloat(11, float32(g.Cell.A))
		m.SetHeaderFloat(12, float32(g.Cell.B))
		m.SetHeaderFloat(13, float32(g.Cell.C))
		m.SetHeaderFloat(14, float32(g.Cell.Alpha))
		m.SetHeaderFloat(15, float32(g.Cell.Beta))
		m.SetHeaderFloat(16, float32(g.Cell.Gamma))
	}
	m.SetHeaderI32(17, 1)
	m.SetHeaderI32(18, 2)
	m.SetHeaderI32(19, 3)
	min, max, mean, rms := g.stats()
	m.SetHeaderFloat(20, min)
	m.SetHeaderFloat(21, max)
	m.SetHeaderFloat(22, mean)
	m.SetHeaderI32(23, int32(g.SpaceGroup))
	m.SetHeaderFloat(55, rms)
}

func (g *Grid) stats() (min, max, mean, rms float32) {
	if len(g.Data) == 0 {
		return
	}
	min, max = g.Data[0], g.Data[0]
	var sum, sum2 float64
	for _, v := range g.Data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += float64(v)
		sum2 += float64(v) * float64(v)
	}
	n := float64(len(g.Data))
	m := sum / n
	mean = float32(m)
	rms = float32(math.Sqrt(sum2/n - m*m))
	return
}

// Sigma returns the standard deviation of the grid values, used for
// sigma-scaled contour levels.
func (m *Map) Sigma() float64 {
	_, _, _, rms := m.Grid.stats()
	return float64(rms)
}

// SetExtent restricts the map to the given fractional box, keeping the
// original cell and sampling so the fragment stays registered with the
// parent coordinate frame. Indexes wrap periodically.
func (m *Map) SetExtent(box pdb.FractionalBox) {
	var start, shape [3]int
	n := [3]int{m.SamplingX, m.SamplingY, m.SamplingZ}
	for i := 0; i < 3; i++ {
		lo := int(math.Floor(box.Min[i] * float64(n[i])))
		hi := int(math.Ceil(box.Max[i] * float64(n[i])))
		start[i] = lo
		shape[i] = hi - lo + 1
	}
	m.Grid = m.Grid.Subarray(start, shape)
	m.StartX, m.StartY, m.StartZ = start[0], start[1], start[2]
	m.UpdateHeader()
}

// WriteTo serializes the map: header, no symmetry records, float32 data.
func (m *Map) WriteTo(w io.Writer) error {
	m.SetHeaderI32(24, 0) //no symmetry records
	if _, err := w.Write(m.hdr); err != nil {
		return Error{err.Error(), "", []string{"WriteTo"}, true}
	}
	buf := make([]byte, 4*len(m.Grid.Data))
	for i, v := range m.Grid.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	if _, err := w.Write(buf); err != nil {
		return Error{err.Error(), "", []string{"WriteTo"}, true}
	}
	return nil
}

// WriteFile writes the map to a file, overwriting it if present.
func (m *Map) WriteFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return Error{UnableToOpen + ": " + err.Error(), name, []string{"WriteFile"}, true}
	}
	defer f.Close()
	return m.WriteTo(f)
}

// Read parses a CCP4/MRC map. Plain files are memory-mapped and the
// data section copied out before unmapping; gzipped files (.gz) are
// decompressed in a stream.
func Read(name string) (*Map, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		f, err := os.Open(name)
		if err != nil {
			return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"Read"}, true}
		}
		defer f.Close()
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, Error{WrongFormat + ": " + err.Error(), name, []string{"Read"}, true}
		}
		defer zr.Close()
		raw, err := io.ReadAll(zr)
		if err != nil {
			return nil, Error{err.Error(), name, []string{"Read"}, true}
		}
		return parse(raw, name)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"Read"}, true}
	}
	defer f.Close()
	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"Read"}, true}
	}
	defer mapped.Unmap()
	return parse(mapped, name)
}

// ReadFrom parses a map from an in-memory byte slice or stream.
func ReadFrom(r io.Reader, name string) (*Map, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"ReadFrom"}, true}
	}
	return parse(raw, name)
}

func parse(raw []byte, name string) (*Map, error) {
	if len(raw) < headerSize {
		return nil, Error{WrongFormat + ": file shorter than the header", name, []string{"parse"}, true}
	}
	if !bytes.Equal(raw[(53-1)*4:(53-1)*4+4], []byte("MAP ")) {
		return nil, Error{UnsupportedFormat, name, []string{"parse"}, true}
	}
	m := &Map{hdr: make([]byte, headerSize)}
	copy(m.hdr, raw[:headerSize])
	if m.HeaderI32(4) != 2 {
		return nil, Error{UnsupportedFormat + ": only mode 2 maps are handled", name, []string{"parse"}, true}
	}
	if m.HeaderI32(17) != 1 || m.HeaderI32(18) != 2 || m.HeaderI32(19) != 3 {
		return nil, Error{UnsupportedFormat + ": only x/y/z axis order is handled", name, []string{"parse"}, true}
	}
	nx, ny, nz := int(m.HeaderI32(1)), int(m.HeaderI32(2)), int(m.HeaderI32(3))
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, Error{WrongFormat + ": non-positive grid size", name, []string{"parse"}, true}
	}
	m.StartX, m.StartY, m.StartZ = int(m.HeaderI32(5)), int(m.HeaderI32(6)), int(m.HeaderI32(7))
	m.SamplingX, m.SamplingY, m.SamplingZ = int(m.HeaderI32(8)), int(m.HeaderI32(9)), int(m.HeaderI32(10))
	cell := pdb.NewUnitCell(
		float64(m.HeaderFloat(11)), float64(m.HeaderFloat(12)), float64(m.HeaderFloat(13)),
		float64(m.HeaderFloat(14)), float64(m.HeaderFloat(15)), float64(m.HeaderFloat(16)))
	nsymbt := int(m.HeaderI32(24))
	dataStart := headerSize + nsymbt
	want := nx * ny * nz
	if len(raw) < dataStart+4*want {
		return nil, Error{WrongFormat + ": truncated data section", name, []string{"parse"}, true}
	}
	g := &Grid{
		Data: make([]float32, want),
		Nx:   nx, Ny: ny, Nz: nz,
		Cell:       cell,
		SpaceGroup: int(m.HeaderI32(23)),
	}
	for i := range g.Data {
		g.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[dataStart+i*4:]))
	}
	m.Grid = g
	return m, nil
}

//Errors

// Error is the ccp4 implementation of the ddtrek decorate-able error.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.filename == "" {
		return "ccp4: " + err.message
	}
	return "ccp4 map " + err.filename + ": " + err.message
}

func (err Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err Error) FileName() string { return err.filename }

func (err Error) Critical() bool { return err.critical }

const (
	UnableToOpen      = "Unable to open file"
	WrongFormat       = "Wrong format"
	UnsupportedFormat = "Unsupported map format"
)
