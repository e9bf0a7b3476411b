/*
 * align.go, part of ddtrek.
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
	"fmt"

	"github.com/BiocrystLab/DDtrek/pdb"
	v3 "github.com/BiocrystLab/DDtrek/v3"
)

// AlignFile superimposes the structure at mobilePath onto the one at
// targetPath over their CA traces, writes the moved copy to outPath and
// returns the CA RMSD after superposition. The traces must have the
// same number of atoms: this is for structures of the same protein in
// different frames (other crystal forms, other sessions), not a
// sequence-aware alignment.
func AlignFile(mobilePath, targetPath, outPath string) (float64, error) {
	mobile, err := pdb.ReadFile(mobilePath)
	if err != nil {
		return 0, errDecorate(err, "AlignFile")
	}
	target, err := pdb.ReadFile(targetPath)
	if err != nil {
		return 0, errDecorate(err, "AlignFile")
	}
	mlst := mobile.ByName("CA", nil)
	tlst := target.ByName("CA", nil)
	if len(mlst) == 0 || len(tlst) == 0 {
		return 0, CError{"no CA atoms to align on", mobilePath, []string{"AlignFile"}, false}
	}
	if len(mlst) != len(tlst) {
		return 0, CError{fmt.Sprintf("CA traces differ in length: %d vs %d", len(mlst), len(tlst)), mobilePath, []string{"AlignFile"}, false}
	}
	moved, _, err := v3.Super(mobile.Coords, target.Coords, mlst, tlst)
	if err != nil {
		return 0, errDecorate(err, "AlignFile")
	}
	mobile.Coords = moved
	mca := v3.Zeros(len(mlst))
	mca.SomeVecs(mobile.Coords, mlst)
	tca := v3.Zeros(len(tlst))
	tca.SomeVecs(target.Coords, tlst)
	rmsd, err := v3.RMSD(mca, tca)
	if err != nil {
		return 0, errDecorate(err, "AlignFile")
	}
	if err := pdb.WriteFile(outPath, mobile); err != nil {
		return 0, errDecorate(err, "AlignFile")
	}
	return rmsd, nil
}
