/*
 * pdb_test.go, part of ddtrek.
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
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

const smallPDB = `CRYST1   40.000   50.000   60.000  90.00  90.00  90.00 P 1           1
ATOM      1  N   MET A   1      10.000  10.000  10.000  1.00 20.00           N
ATOM      2  CA  MET A   1      11.400  10.000  10.000  1.00 20.00           C
ATOM      3  C   MET A   1      12.000  11.300  10.500  1.00 20.00           C
ATOM      4  CA  GLY A   2      14.000  12.000  11.000  1.00 21.50           C
HETATM    5  C1  LIG A 100      13.000  11.000  12.000  1.00 30.00           C
HETATM    6  C2  LIG A 100      13.800  11.500  12.700  1.00 30.00           C
HETATM    7  O   HOH A 201      16.000  13.000  12.000  1.00 40.00           O
END
`

func TestRead(Te *testing.T) {
	mol, err := Read(strings.NewReader(smallPDB))
	if err != nil {
		Te.Fatal(err)
	}
	if mol.Len() != 7 {
		Te.Fatalf("expected 7 atoms, got %d", mol.Len())
	}
	if mol.Cell == nil || mol.Cell.A != 40 || mol.Cell.Gamma != 90 {
		Te.Errorf("cell not read correctly: %+v", mol.Cell)
	}
	ca := mol.Atom(1)
	if ca.Name != "CA" || ca.MolName != "MET" || ca.Chain != "A" || ca.MolID != 1 {
		Te.Errorf("wrong second atom: %+v", ca)
	}
	if !ca.IsPolymer() || ca.IsWater() {
		Te.Error("MET CA misclassified")
	}
	lig := mol.Atom(4)
	if !lig.Het || lig.IsPolymer() {
		Te.Errorf("LIG C1 misclassified: %+v", lig)
	}
	if !mol.Atom(6).IsWater() {
		Te.Error("HOH misclassified")
	}
	if mol.Coords.At(4, 2) != 12.0 {
		Te.Errorf("wrong ligand z coordinate: %v", mol.Coords.At(4, 2))
	}
}

func TestSelections(Te *testing.T) {
	mol, err := Read(strings.NewReader(smallPDB))
	if err != nil {
		Te.Fatal(err)
	}
	lig := mol.ByChainResidue("A", 100)
	if len(lig) != 2 {
		Te.Fatalf("expected 2 ligand atoms, got %d", len(lig))
	}
	cas := mol.ByName("CA", nil)
	if len(cas) != 2 {
		Te.Errorf("expected 2 CA atoms, got %d", len(cas))
	}
	near := mol.Within(2.0, lig)
	fmt.Println("within 2 A of the ligand:", near)
	//the ligand itself plus the MET C and GLY CA atoms
	if len(near) != 4 {
		Te.Errorf("expected 4 atoms within 2 A, got %d", len(near))
	}
	sub := mol.SomeAtoms(lig)
	if sub.Len() != 2 || sub.Atoms[0].Name != "C1" || sub.Cell == nil {
		Te.Errorf("SomeAtoms wrong: %+v", sub)
	}
}

func TestBoxes(Te *testing.T) {
	mol, err := Read(strings.NewReader(smallPDB))
	if err != nil {
		Te.Fatal(err)
	}
	lig := mol.SomeAtoms(mol.ByChainResidue("A", 100))
	box := lig.CalculateBox(3)
	if box.Min[0] != 10 || box.Max[0] != 16.8 {
		Te.Errorf("wrong x extent: %v %v", box.Min[0], box.Max[0])
	}
	size := box.Size()
	if math.Abs(size[1]-6.5) > 1e-9 {
		Te.Errorf("wrong y size: %v", size[1])
	}
	fbox, err := lig.CalculateFractionalBox(3)
	if err != nil {
		Te.Fatal(err)
	}
	//orthogonal 40x50x60 cell: fractional = cartesian/axis
	if math.Abs(fbox.Min[0]-10.0/40) > 1e-9 || math.Abs(fbox.Max[2]-15.7/60) > 1e-9 {
		Te.Errorf("wrong fractional box: %+v", fbox)
	}
	lig.Cell = nil
	if _, err := lig.CalculateFractionalBox(3); err == nil {
		Te.Error("expected an error for a fractional box with no cell")
	}
}

func TestWriteRoundTrip(Te *testing.T) {
	mol, err := Read(strings.NewReader(smallPDB))
	if err != nil {
		Te.Fatal(err)
	}
	name := filepath.Join(Te.TempDir(), "roundtrip.pdb")
	if err := WriteFile(name, mol); err != nil {
		Te.Fatal(err)
	}
	back, err := ReadFile(name)
	if err != nil {
		Te.Fatal(err)
	}
	if back.Len() != mol.Len() {
		Te.Fatalf("atom count changed on round trip: %d vs %d", back.Len(), mol.Len())
	}
	for i := 0; i < mol.Len(); i++ {
		a, b := mol.Atom(i), back.Atom(i)
		if a.Name != b.Name || a.MolName != b.MolName || a.Chain != b.Chain || a.MolID != b.MolID || a.Het != b.Het {
			Te.Errorf("atom %d changed: %+v vs %+v", i, a, b)
		}
		for j := 0; j < 3; j++ {
			if math.Abs(mol.Coords.At(i, j)-back.Coords.At(i, j)) > 1e-3 {
				Te.Errorf("coordinate %d,%d changed", i, j)
			}
		}
	}
	if back.Cell == nil || math.Abs(back.Cell.B-50) > 1e-6 {
		Te.Error("cell lost on round trip")
	}
}

func TestCell(Te *testing.T) {
	u := NewUnitCell(40, 50, 60, 90, 90, 90)
	if math.Abs(u.Volume()-120000) > 1e-6 {
		Te.Errorf("wrong volume: %v", u.Volume())
	}
	fx, fy, fz := u.Fractionalize(20, 25, 30)
	if math.Abs(fx-0.5) > 1e-9 || math.Abs(fy-0.5) > 1e-9 || math.Abs(fz-0.5) > 1e-9 {
		Te.Errorf("wrong fractionalization: %v %v %v", fx, fy, fz)
	}
	x, y, z := u.Orthogonalize(fx, fy, fz)
	if math.Abs(x-20) > 1e-9 || math.Abs(y-25) > 1e-9 || math.Abs(z-30) > 1e-9 {
		Te.Errorf("orthogonalize does not invert fractionalize: %v %v %v", x, y, z)
	}
	//d-spacings of an orthorhombic cell are analytic
	if d := u.D(1, 0, 0); math.Abs(d-40) > 1e-9 {
		Te.Errorf("wrong d(100): %v", d)
	}
	if d := u.D(0, 2, 0); math.Abs(d-25) > 1e-9 {
		Te.Errorf("wrong d(020): %v", d)
	}
	want := 1 / math.Sqrt(1.0/(40*40)+1.0/(50*50)+1.0/(60*60))
	if d := u.D(1, 1, 1); math.Abs(d-want) > 1e-9 {
		Te.Errorf("wrong d(111): %v, want %v", d, want)
	}
	//a triclinic cell must still round-trip coordinates
	tri := NewUnitCell(40, 50, 60, 80, 95, 105)
	fx, fy, fz = tri.Fractionalize(12, -3, 8)
	x, y, z = tri.Orthogonalize(fx, fy, fz)
	if math.Abs(x-12) > 1e-9 || math.Abs(y+3) > 1e-9 || math.Abs(z-8) > 1e-9 {
		Te.Errorf("triclinic round trip failed: %v %v %v", x, y, z)
	}
}
