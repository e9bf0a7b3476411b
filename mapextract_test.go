/*
 * mapextract_test.go, part of ddtrek.
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

package ddtrek

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BiocrystLab/DDtrek/ccp4"
)

//a few CA atoms around a two-atom ligand, in the same 32x40x48 cell
//the test maps use
const smallStructPDB = `CRYST1   32.000   40.000   48.000  90.00  90.00  90.00 P 1
ATOM      1  CA  ALA A   1      10.000  10.000  10.000  1.00 20.00           C
ATOM      2  CA  ALA A   2      13.000  10.000  10.000  1.00 20.00           C
ATOM      3  CA  ALA A   3      10.000  14.000  10.000  1.00 20.00           C
ATOM      4  CA  ALA A   4      10.000  10.000  15.000  1.00 20.00           C
HETATM    5  C1  LIG A 100      12.000  12.000  12.000  1.00 30.00           C
HETATM    6  C2  LIG A 100      13.000  12.500  12.500  1.00 30.00           C
END
`

func writeStructPDB(Te *testing.T, name string) {
	if err := os.WriteFile(name, []byte(smallStructPDB), 0644); err != nil {
		Te.Fatal(err)
	}
}

func TestMapExtractLocal(Te *testing.T) {
	dir := Te.TempDir()
	mapFile := filepath.Join(dir, "m1.map")
	structFile := filepath.Join(dir, "model.pdb")
	out := filepath.Join(dir, "frag.ccp4")
	writeParentMap(Te, mapFile)
	writeStructPDB(Te, structFile)
	if err := MapExtractLocal(mapFile, structFile, "A", 100, 0, out); err != nil {
		Te.Fatal(err)
	}
	frag, err := ccp4.Read(out)
	if err != nil {
		Te.Fatal(err)
	}
	parent, err := ccp4.Read(mapFile)
	if err != nil {
		Te.Fatal(err)
	}
	if frag.Grid.SpaceGroup != 1 {
		Te.Errorf("fragment space group: %d", frag.Grid.SpaceGroup)
	}
	//a fragment keeps the parent's full-cell sampling
	if frag.SamplingX != parent.Grid.Nx || frag.SamplingY != parent.Grid.Ny || frag.SamplingZ != parent.Grid.Nz {
		Te.Errorf("sampling not preserved: %d %d %d", frag.SamplingX, frag.SamplingY, frag.SamplingZ)
	}
	//the fragment origin carries the parent's value at its offset
	if got, want := frag.Grid.At(0, 0, 0), parent.Grid.At(frag.StartX, frag.StartY, frag.StartZ); got != want {
		Te.Errorf("origin value: got %v, want %v", got, want)
	}
	if frag.Grid.Nx >= parent.Grid.Nx {
		Te.Error("fragment as large as the whole map")
	}
}

func TestMapExtractLocalNoLigand(Te *testing.T) {
	dir := Te.TempDir()
	mapFile := filepath.Join(dir, "m1.map")
	structFile := filepath.Join(dir, "model.pdb")
	writeParentMap(Te, mapFile)
	writeStructPDB(Te, structFile)
	err := MapExtractLocal(mapFile, structFile, "Z", 100, 0, filepath.Join(dir, "frag.ccp4"))
	if err == nil {
		Te.Fatal("expected an error for a chain with no ligand")
	}
}
