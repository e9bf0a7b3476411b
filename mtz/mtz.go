/*
 * mtz.go, part of ddtrek.
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

//Package mtz reads CCP4 MTZ reflection files and synthesizes real-space
//density from amplitude/phase column pairs. Only the MTZ fields that
//ddtrek consumes are parsed: cell, space group number, column labels and
//the reflection table itself.
package mtz

import (
	"encoding/binary"
	"io"
	"math"
	"math/cmplx"
	"os"
	"strconv"
	"strings"

	"github.com/BiocrystLab/DDtrek/ccp4"
	"github.com/BiocrystLab/DDtrek/pdb"
	gzip "github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Column describes one column of the reflection table.
type Column struct {
	Label string
	Type  string //one-letter MTZ column type: H, F, P, Q...
}

// Mtz is a reflection file: the unit cell, the column layout, and the
// reflection table in row-major order (one row per reflection).
type Mtz struct {
	Cell       *pdb.UnitCell
	SpaceGroup int
	Columns    []Column
	NRefl      int
	Data       []float32
	filename   string
}

// ColumnIndex returns the index of the column with the given label, or
// -1 if no such column exists.
func (m *Mtz) ColumnIndex(label string) int {
	for i, c := range m.Columns {
		if c.Label == label {
			return i
		}
	}
	return -1
}

// HasColumn reports whether a column with the given label exists.
func (m *Mtz) HasColumn(label string) bool {
	return m.ColumnIndex(label) >= 0
}

func (m *Mtz) at(refl, col int) float64 {
	return float64(m.Data[refl*len(m.Columns)+col])
}

// Read parses an MTZ file; a .gz suffix is decompressed first.
func Read(name string) (*Mtz, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"Read"}, true}
	}
	defer f.Close()
	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, Error{WrongFormat + ": " + err.Error(), name, []string{"Read"}, true}
		}
		defer zr.Close()
		r = zr
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, Error{err.Error(), name, []string{"Read"}, true}
	}
	return parse(raw, name)
}

//Reflection data starts at word 21 of the file; words are 4 bytes and
//1-based, per the CCP4 MTZ specification.
const dataStartWord = 21

func parse(raw []byte, name string) (*Mtz, error) {
	if len(raw) < 80 || string(raw[0:4]) != "MTZ " {
		return nil, Error{UnsupportedFormat, name, []string{"parse"}, true}
	}
	//word 3 carries the machine stamp; only IEEE little-endian files
	//are handled. An unset stamp is taken as native little-endian,
	//which is what old writers produce on the platforms we run on.
	if stamp := raw[8]; stamp != 0 && stamp>>4 != 4 {
		return nil, Error{UnsupportedFormat + ": non-IEEE-little-endian machine stamp", name, []string{"parse"}, true}
	}
	headerWord := int(int32(binary.LittleEndian.Uint32(raw[4:8])))
	headerStart := (headerWord - 1) * 4
	if headerStart <= 0 || headerStart > len(raw) {
		return nil, Error{WrongFormat + ": bad header position", name, []string{"parse"}, true}
	}
	m := &Mtz{filename: name, SpaceGroup: 1}
	var ncol, nrefl int
	for pos := headerStart; pos+80 <= len(raw); pos += 80 {
		rec := strings.TrimRight(string(raw[pos:pos+80]), "\x00 ")
		fields := strings.Fields(rec)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "END":
			pos = len(raw) //done
		case "NCOL":
			if len(fields) >= 3 {
				ncol, _ = strconv.Atoi(fields[1])
				nrefl, _ = strconv.Atoi(fields[2])
			}
		case "CELL":
			if len(fields) >= 7 {
				p := make([]float64, 6)
				for i := 0; i < 6; i++ {
					p[i], _ = strconv.ParseFloat(fields[i+1], 64)
				}
				m.Cell = pdb.NewUnitCell(p[0], p[1], p[2], p[3], p[4], p[5])
			}
		case "SYMINF":
			if len(fields) >= 5 {
				if sg, err := strconv.Atoi(fields[4]); err == nil {
					m.SpaceGroup = sg
				}
			}
		case "COLUMN":
			if len(fields) >= 3 {
				m.Columns = append(m.Columns, Column{Label: fields[1], Type: fields[2]})
			}
		}
	}
	if m.Cell == nil {
		return nil, Error{WrongFormat + ": no CELL record", name, []string{"parse"}, true}
	}
	if ncol == 0 || ncol != len(m.Columns) {
		return nil, Error{WrongFormat + ": inconsistent column count", name, []string{"parse"}, true}
	}
	dataStart := (dataStartWord - 1) * 4
	want := ncol * nrefl
	if dataStart+4*want > headerStart {
		return nil, Error{WrongFormat + ": truncated reflection table", name, []string{"parse"}, true}
	}
	m.NRefl = nrefl
	m.Data = make([]float32, want)
	for i := range m.Data {
		m.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[dataStart+i*4:]))
	}
	return m, nil
}

// Dmin returns the high-resolution limit (A) of the reflection table.
func (m *Mtz) Dmin() (float64, error) {
	hi, ki, li := m.ColumnIndex("H"), m.ColumnIndex("K"), m.ColumnIndex("L")
	if hi < 0 || ki < 0 || li < 0 {
		return 0, Error{WrongFormat + ": no H K L columns", m.filename, []string{"Dmin"}, true}
	}
	dmin := math.Inf(1)
	for r := 0; r < m.NRefl; r++ {
		d := m.Cell.D(int(m.at(r, hi)), int(m.at(r, ki)), int(m.at(r, li)))
		if d < dmin {
			dmin = d
		}
	}
	return dmin, nil
}

// TransformFPhiToMap computes a real-space density grid from the given
// amplitude and phase (degrees) columns by inverse Fourier synthesis:
//
//	rho(x) = (1/V) sum_h F_h exp(-2 pi i h.x)
//
// The grid is sampled at about dmin/sampleRate along each axis. Missing
// columns yield a MissingColumn error so the caller can try a fallback
// label pair.
func (m *Mtz) TransformFPhiToMap(fLabel, phiLabel string, sampleRate float64) (*ccp4.Map, error) {
	hi, ki, li := m.ColumnIndex("H"), m.ColumnIndex("K"), m.ColumnIndex("L")
	if hi < 0 || ki < 0 || li < 0 {
		return nil, Error{WrongFormat + ": no H K L columns", m.filename, []string{"TransformFPhiToMap"}, true}
	}
	fi, pi := m.ColumnIndex(fLabel), m.ColumnIndex(phiLabel)
	if fi < 0 || pi < 0 {
		return nil, Error{MissingColumn + ": " + fLabel + "/" + phiLabel, m.filename, []string{"TransformFPhiToMap"}, false}
	}
	if m.NRefl == 0 {
		return nil, Error{WrongFormat + ": empty reflection table", m.filename, []string{"TransformFPhiToMap"}, true}
	}
	dmin, err := m.Dmin()
	if err != nil {
		return nil, err
	}
	nx := gridSize(m.Cell.A, dmin, sampleRate)
	ny := gridSize(m.Cell.B, dmin, sampleRate)
	nz := gridSize(m.Cell.C, dmin, sampleRate)

	work := make([]complex128, nx*ny*nz)
	idx := func(h, k, l int) int {
		return (mod(l, nz)*ny+mod(k, ny))*nx + mod(h, nx)
	}
	for r := 0; r < m.NRefl; r++ {
		h := int(m.at(r, hi))
		k := int(m.at(r, ki))
		l := int(m.at(r, li))
		amp := m.at(r, fi)
		if math.IsNaN(amp) {
			continue //missing observation
		}
		phase := m.at(r, pi) * math.Pi / 180
		c := cmplx.Rect(amp, phase)
		//place F at -h and its Friedel mate at +h so the synthesis
		//below, which uses the e^{+2 pi i} transform, computes the
		//conventional e^{-2 pi i} sum and comes out real.
		work[idx(-h, -k, -l)] = c
		work[idx(h, k, l)] = cmplx.Conj(c)
	}
	invFFT3(work, nx, ny, nz)

	g := &ccp4.Grid{
		Data: make([]float32, nx*ny*nz),
		Nx:   nx, Ny: ny, Nz: nz,
		Cell:       m.Cell,
		SpaceGroup: m.SpaceGroup,
	}
	scale := 1 / m.Cell.Volume()
	for i, v := range work {
		g.Data[i] = float32(real(v) * scale)
	}
	return ccp4.NewMap(g), nil
}

//gridSize picks the number of sampling intervals for one cell axis:
//at least sampleRate points per dmin, rounded up to the next even
//number, which keeps the FFT sizes friendly.
func gridSize(length, dmin, sampleRate float64) int {
	n := int(math.Ceil(length * sampleRate / dmin))
	if n < 2 {
		n = 2
	}
	if n%2 != 0 {
		n++
	}
	return n
}

//invFFT3 applies the unnormalized inverse transform in place along the
//three axes of a nx*ny*nz block stored x-fastest, composing gonum's 1D
//complex transforms.
func invFFT3(a []complex128, nx, ny, nz int) {
	fftX := fourier.NewCmplxFFT(nx)
	row := make([]complex128, nx)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			off := (z*ny + y) * nx
			copy(row, a[off:off+nx])
			fftX.Sequence(a[off:off+nx], row)
		}
	}
	fftY := fourier.NewCmplxFFT(ny)
	col := make([]complex128, ny)
	out := make([]complex128, ny)
	for z := 0; z < nz; z++ {
		for x := 0; x < nx; x++ {
			for y := 0; y < ny; y++ {
				col[y] = a[(z*ny+y)*nx+x]
			}
			fftY.Sequence(out, col)
			for y := 0; y < ny; y++ {
				a[(z*ny+y)*nx+x] = out[y]
			}
		}
	}
	fftZ := fourier.NewCmplxFFT(nz)
	colz := make([]complex128, nz)
	outz := make([]complex128, nz)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			for z := 0; z < nz; z++ {
				colz[z] = a[(z*ny+y)*nx+x]
			}
			fftZ.Sequence(outz, colz)
			for z := 0; z < nz; z++ {
				a[(z*ny+y)*nx+x] = outz[z]
			}
		}
	}
}

func mod(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

//Errors

// Error is the mtz implementation of the ddtrek decorate-able error.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return "mtz file " + err.filename + ": " + err.message
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
	UnsupportedFormat = "Unsupported reflection file format"
	MissingColumn     = "Missing amplitude/phase column"
)
