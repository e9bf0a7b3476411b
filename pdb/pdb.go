/*
 * pdb.go, part of ddtrek.
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

//Package pdb provides a compact molecule model and fixed-column PDB
//coordinate I/O. Only the fields that ddtrek needs are read: this is
//not a general-purpose PDB library.
package pdb

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/BiocrystLab/DDtrek/v3"
)

// Atom contains the per-atom data read from a PDB file, except for the
// coordinates, which are kept in a separate matrix.
type Atom struct {
	ID        int
	Name      string
	MolName   string //residue name
	MolID     int    //residue number
	Chain     string
	Occupancy float64
	Bfactor   float64
	Symbol    string
	Het       bool //was this a HETATM record?
}

// Molecule is a single-frame structure: atoms plus their coordinates,
// plus the unit cell from the CRYST1 record, if one was present.
type Molecule struct {
	Atoms  []*Atom
	Coords *v3.Matrix
	Cell   *UnitCell
}

// Len returns the number of atoms in the molecule.
func (M *Molecule) Len() int {
	return len(M.Atoms)
}

// Atom returns the ith atom. Panics if out of range, as the caller
// asking for a non-existent atom means the program is wrong.
func (M *Molecule) Atom(i int) *Atom {
	if i >= M.Len() {
		panic("pdb: Requested Atom out of bounds")
	}
	return M.Atoms[i]
}

//The aminoacidic residues, for polymer classification.
var aminoAcids = map[string]bool{
	"ALA": true, "ARG": true, "ASN": true, "ASP": true, "CYS": true,
	"GLN": true, "GLU": true, "GLY": true, "HIS": true, "ILE": true,
	"LEU": true, "LYS": true, "MET": true, "PHE": true, "PRO": true,
	"SER": true, "THR": true, "TRP": true, "TYR": true, "VAL": true,
	"SEC": true, "MSE": true,
}

// IsPolymer reports whether the atom belongs to a polymer
// (aminoacidic) residue.
func (A *Atom) IsPolymer() bool {
	return aminoAcids[A.MolName]
}

// IsWater reports whether the atom belongs to a water molecule.
func (A *Atom) IsWater() bool {
	return A.MolName == "HOH" || A.MolName == "WAT"
}

//Parses a valid ATOM or HETATM line, returning the Atom and its
//coordinates separately. Errors are accumulated and checked at the end
//of the line, as there is no point in reporting more than one.
func readPDBLine(line string) (*Atom, []float64, error) {
	if len(line) < 66 {
		return nil, nil, fmt.Errorf("pdb: Line too short: %q", line)
	}
	err := make([]error, 6)
	coords := make([]float64, 3)
	atom := new(Atom)
	atom.Het = strings.HasPrefix(line, "HETATM")
	atom.ID, err[0] = strconv.Atoi(strings.TrimSpace(line[6:11]))
	atom.Name = strings.TrimSpace(line[12:16])
	atom.MolName = strings.TrimSpace(line[17:20])
	atom.Chain = strings.TrimSpace(line[21:22])
	atom.MolID, err[1] = strconv.Atoi(strings.TrimSpace(line[22:26]))
	coords[0], err[2] = strconv.ParseFloat(strings.TrimSpace(line[30:38]), 64)
	coords[1], err[3] = strconv.ParseFloat(strings.TrimSpace(line[38:46]), 64)
	coords[2], err[4] = strconv.ParseFloat(strings.TrimSpace(line[46:54]), 64)
	atom.Occupancy, err[5] = strconv.ParseFloat(strings.TrimSpace(line[54:60]), 64)
	atom.Bfactor, _ = strconv.ParseFloat(strings.TrimSpace(line[60:66]), 64)
	if len(line) >= 78 {
		atom.Symbol = strings.TrimSpace(line[76:78])
	}
	for i := range err {
		if err[i] != nil {
			return nil, nil, err[i]
		}
	}
	return atom, coords, nil
}

//Parses a CRYST1 record into a unit cell.
func readCryst1(line string) (*UnitCell, error) {
	if len(line) < 54 {
		return nil, fmt.Errorf("pdb: CRYST1 record too short: %q", line)
	}
	f := make([]float64, 6)
	cols := [][2]int{{6, 15}, {15, 24}, {24, 33}, {33, 40}, {40, 47}, {47, 54}}
	for i, c := range cols {
		var err error
		f[i], err = strconv.ParseFloat(strings.TrimSpace(line[c[0]:c[1]]), 64)
		if err != nil {
			return nil, err
		}
	}
	return NewUnitCell(f[0], f[1], f[2], f[3], f[4], f[5]), nil
}

// Read reads the atomic entries of a PDB from r. Only the first model
// of a multi-model file is kept.
func Read(r io.Reader) (*Molecule, error) {
	buf := bufio.NewReader(r)
	atoms := make([]*Atom, 0)
	coords := make([]float64, 0)
	var cell *UnitCell
	inFirstModel := true
	for {
		line, err := buf.ReadString('\n')
		if len(line) == 0 && err != nil {
			break
		}
		switch {
		case strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM"):
			if !inFirstModel {
				continue
			}
			at, c, err2 := readPDBLine(line)
			if err2 != nil {
				return nil, err2
			}
			atoms = append(atoms, at)
			coords = append(coords, c...)
		case strings.HasPrefix(line, "CRYST1"):
			cell, _ = readCryst1(line) //a broken CRYST1 just leaves the cell unset
		case strings.HasPrefix(line, "ENDMDL"):
			inFirstModel = false
		}
		if err != nil {
			break
		}
	}
	if len(atoms) == 0 {
		return &Molecule{Atoms: atoms, Cell: cell}, nil
	}
	m, err := v3.NewMatrix(coords)
	if err != nil {
		return nil, err
	}
	return &Molecule{Atoms: atoms, Coords: m, Cell: cell}, nil
}

// ReadFile reads a PDB file from disk.
func ReadFile(name string) (*Molecule, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Write writes mol as a single-model PDB to w.
func Write(w io.Writer, mol *Molecule) error {
	if mol.Cell != nil {
		c := mol.Cell
		fmt.Fprintf(w, "CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f P 1           1\n",
			c.A, c.B, c.C, c.Alpha, c.Beta, c.Gamma)
	}
	for i, at := range mol.Atoms {
		first := "ATOM"
		if at.Het {
			first = "HETATM"
		}
		var err error
		if len(at.Name) < 4 {
			_, err = fmt.Fprintf(w, "%-6s%5d  %-3s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
				first, at.ID, at.Name, at.MolName, at.Chain, at.MolID,
				mol.Coords.At(i, 0), mol.Coords.At(i, 1), mol.Coords.At(i, 2),
				at.Occupancy, at.Bfactor, at.Symbol)
		} else {
			_, err = fmt.Fprintf(w, "%-6s%5d %4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
				first, at.ID, at.Name, at.MolName, at.Chain, at.MolID,
				mol.Coords.At(i, 0), mol.Coords.At(i, 1), mol.Coords.At(i, 2),
				at.Occupancy, at.Bfactor, at.Symbol)
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "END\n")
	return err
}

// WriteFile writes mol to a file, overwriting it if it exists.
func WriteFile(name string, mol *Molecule) error {
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	defer out.Close()
	return Write(out, mol)
}
