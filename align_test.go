/*
 * align_test.go, part of ddtrek.
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
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BiocrystLab/DDtrek/pdb"
)

//smallStructPDB moved by +5 along x
const shiftedStructPDB = `CRYST1   32.000   40.000   48.000  90.00  90.00  90.00 P 1
ATOM      1  CA  ALA A   1      15.000  10.000  10.000  1.00 20.00           C
ATOM      2  CA  ALA A   2      18.000  10.000  10.000  1.00 20.00           C
ATOM      3  CA  ALA A   3      15.000  14.000  10.000  1.00 20.00           C
ATOM      4  CA  ALA A   4      15.000  10.000  15.000  1.00 20.00           C
HETATM    5  C1  LIG A 100      17.000  12.000  12.000  1.00 30.00           C
HETATM    6  C2  LIG A 100      18.000  12.500  12.500  1.00 30.00           C
END
`

func TestAlignFile(Te *testing.T) {
	dir := Te.TempDir()
	targetFile := filepath.Join(dir, "target.pdb")
	mobileFile := filepath.Join(dir, "mobile.pdb")
	out := filepath.Join(dir, "aligned.pdb")
	writeStructPDB(Te, targetFile)
	if err := os.WriteFile(mobileFile, []byte(shiftedStructPDB), 0644); err != nil {
		Te.Fatal(err)
	}
	rmsd, err := AlignFile(mobileFile, targetFile, out)
	if err != nil {
		Te.Fatal(err)
	}
	//a pure translation superposes exactly
	if rmsd > 1e-6 {
		Te.Errorf("rmsd after superposing a translated copy: %v", rmsd)
	}
	moved, err := pdb.ReadFile(out)
	if err != nil {
		Te.Fatal(err)
	}
	target, err := pdb.ReadFile(targetFile)
	if err != nil {
		Te.Fatal(err)
	}
	//the ligand rides along with the CA trace
	for i := 0; i < target.Len(); i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(moved.Coords.At(i, j)-target.Coords.At(i, j)) > 1e-3 {
				Te.Errorf("atom %d off after alignment: %v vs %v", i, moved.Coords.At(i, j), target.Coords.At(i, j))
			}
		}
	}
}

func TestAlignFileMismatchedTraces(Te *testing.T) {
	dir := Te.TempDir()
	targetFile := filepath.Join(dir, "target.pdb")
	mobileFile := filepath.Join(dir, "mobile.pdb")
	writeStructPDB(Te, mobileFile)
	//drop one CA from the target
	lines := strings.Split(smallStructPDB, "\n")
	short := strings.Join(append(lines[:4:4], lines[5:]...), "\n")
	if err := os.WriteFile(targetFile, []byte(short), 0644); err != nil {
		Te.Fatal(err)
	}
	_, err := AlignFile(mobileFile, targetFile, filepath.Join(dir, "out.pdb"))
	if err == nil {
		Te.Fatal("expected an error for CA traces of different length")
	}
}
