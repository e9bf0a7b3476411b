/*
 * select.go, part of ddtrek.
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

package pdb

import (
	"math"

	v3 "github.com/BiocrystLab/DDtrek/v3"
)

// ByChainResidue returns the indexes of the atoms belonging to the
// residue identified by chain and residue number. An empty result means
// the selector matched nothing; that is for the caller to judge.
func (M *Molecule) ByChainResidue(chain string, resi int) []int {
	ret := make([]int, 0, 32)
	for i, at := range M.Atoms {
		if at.Chain == chain && at.MolID == resi {
			ret = append(ret, i)
		}
	}
	return ret
}

// ByName returns the indexes of the atoms with the given PDB name
// (e.g. "CA"), restricted to the chains in chains. A nil chains slice
// matches any chain.
func (M *Molecule) ByName(name string, chains []string) []int {
	ret := make([]int, 0, M.Len()/4)
	for i, at := range M.Atoms {
		if at.Name != name {
			continue
		}
		if chains == nil || isInString(chains, at.Chain) {
			ret = append(ret, i)
		}
	}
	return ret
}

// Within returns the indexes of the atoms within cutoff (Angstrom) of
// any of the atoms indexed by center.
func (M *Molecule) Within(cutoff float64, center []int) []int {
	ret := make([]int, 0, len(center)*4)
	c2 := cutoff * cutoff
	for i := 0; i < M.Len(); i++ {
		for _, j := range center {
			if dist2(M.Coords, i, j) <= c2 {
				ret = append(ret, i)
				break
			}
		}
	}
	return ret
}

// SomeAtoms returns a new Molecule with copies of the atoms indexed by
// list, keeping the cell.
func (M *Molecule) SomeAtoms(list []int) *Molecule {
	atoms := make([]*Atom, 0, len(list))
	coords := make([]float64, 0, len(list)*3)
	for _, i := range list {
		a := *M.Atoms[i]
		atoms = append(atoms, &a)
		coords = append(coords, M.Coords.At(i, 0), M.Coords.At(i, 1), M.Coords.At(i, 2))
	}
	ret := &Molecule{Atoms: atoms, Cell: M.Cell}
	if len(atoms) > 0 {
		ret.Coords, _ = v3.NewMatrix(coords)
	}
	return ret
}

// Box is an axis-aligned Cartesian bounding box.
type Box struct {
	Min, Max [3]float64
}

// Size returns the extent of the box along each axis.
func (b Box) Size() [3]float64 {
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// FractionalBox is an axis-aligned box in fractional coordinates.
type FractionalBox struct {
	Min, Max [3]float64
}

// CalculateBox returns the Cartesian bounding box of all atoms,
// expanded by margin (Angstrom) on every side.
func (M *Molecule) CalculateBox(margin float64) Box {
	b := Box{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for i := 0; i < M.Len(); i++ {
		for j := 0; j < 3; j++ {
			v := M.Coords.At(i, j)
			if v < b.Min[j] {
				b.Min[j] = v
			}
			if v > b.Max[j] {
				b.Max[j] = v
			}
		}
	}
	for j := 0; j < 3; j++ {
		b.Min[j] -= margin
		b.Max[j] += margin
	}
	return b
}

// CalculateFractionalBox returns the fractional bounding box of all
// atoms, expanded by margin (Angstrom, applied along each cell axis).
// The molecule must carry a unit cell.
func (M *Molecule) CalculateFractionalBox(margin float64) (FractionalBox, error) {
	if M.Cell == nil {
		return FractionalBox{}, Error{NoUnitCell, "", []string{"CalculateFractionalBox"}, true}
	}
	b := FractionalBox{
		Min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		Max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
	for i := 0; i < M.Len(); i++ {
		fx, fy, fz := M.Cell.Fractionalize(M.Coords.At(i, 0), M.Coords.At(i, 1), M.Coords.At(i, 2))
		f := [3]float64{fx, fy, fz}
		for j := 0; j < 3; j++ {
			if f[j] < b.Min[j] {
				b.Min[j] = f[j]
			}
			if f[j] > b.Max[j] {
				b.Max[j] = f[j]
			}
		}
	}
	fm := [3]float64{margin / M.Cell.A, margin / M.Cell.B, margin / M.Cell.C}
	for j := 0; j < 3; j++ {
		b.Min[j] -= fm[j]
		b.Max[j] += fm[j]
	}
	return b, nil
}

func dist2(c *v3.Matrix, i, j int) float64 {
	dx := c.At(i, 0) - c.At(j, 0)
	dy := c.At(i, 1) - c.At(j, 1)
	dz := c.At(i, 2) - c.At(j, 2)
	return dx*dx + dy*dy + dz*dz
}

func isInString(container []string, test string) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}

//Errors

// Error is the pdb implementation of the ddtrek decorate-able error.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	if err.filename == "" {
		return err.message
	}
	return "pdb file " + err.filename + ": " + err.message
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
	NoUnitCell = "No unit cell: the file had no usable CRYST1 record"
	NoAtoms    = "No atoms read from file"
)
