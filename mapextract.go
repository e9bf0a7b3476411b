/*
 * mapextract.go, part of ddtrek.
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
	"os"
	"strings"

	"github.com/BiocrystLab/DDtrek/fragment"
	"github.com/BiocrystLab/DDtrek/pdb"
	"github.com/BiocrystLab/DDtrek/pymol"
)

// MapExtract is the standalone extraction path, independent of any job
// file: it takes the current session selection sele plus everything
// within selRadius of it (9 A when selRadius is zero), extracts the
// density around those atoms from mapPath, loads the fragment as
// "extracted_map" and, when savedmap is non-empty, keeps a copy there.
// Scratch files go to the system temporary directory.
func MapExtract(ses pymol.Session, mapPath, sele, savedmap string, selRadius float64) error {
	if selRadius == 0 {
		selRadius = 9
	}
	kind, ok := mapKind(mapPath)
	if !ok {
		return CError{UnsupportedFormat, mapPath, []string{"MapExtract"}, false}
	}
	//resolve the caller's paths before moving to the scratch directory
	mapPath = absPath(mapPath)
	if savedmap != "" {
		savedmap = absPath(savedmap)
	}
	if err := os.Chdir(os.TempDir()); err != nil {
		return CError{DirectoryNotWritable, os.TempDir(), []string{"MapExtract"}, true}
	}
	defer os.Remove(scratchLigand)
	defer os.Remove(scratchMap)
	if err := ses.Save(absPath(scratchLigand), fmt.Sprintf("%s or %s around %g", sele, sele, selRadius)); err != nil {
		return errDecorate(err, "MapExtract")
	}
	fo := fragment.DefaultOptions()
	fo.Omit = strings.Contains(mapPath, "polder")
	if err := fragment.ExtractToFile(mapPath, kind, scratchLigand, scratchMap, savedmap, fo); err != nil {
		return errDecorate(err, "MapExtract")
	}
	if err := ses.Load(absPath(scratchMap), "extracted_map"); err != nil {
		return errDecorate(err, "MapExtract")
	}
	return nil
}

// MapExtractLocal extracts density without a PyMOL session: the region
// of interest is the residue resi of the given chain in structPath,
// plus everything within selRadius of it (9 A when selRadius is zero).
// The fragment is written to out.
func MapExtractLocal(mapPath, structPath, chain string, resi int, selRadius float64, out string) error {
	if selRadius == 0 {
		selRadius = 9
	}
	kind, ok := mapKind(mapPath)
	if !ok {
		return CError{UnsupportedFormat, mapPath, []string{"MapExtractLocal"}, false}
	}
	mol, err := pdb.ReadFile(structPath)
	if err != nil {
		return errDecorate(err, "MapExtractLocal")
	}
	ligand := mol.ByChainResidue(chain, resi)
	if len(ligand) == 0 {
		return CError{NoLigandAtoms, structPath, []string{"MapExtractLocal"}, false}
	}
	region := mol.SomeAtoms(mol.Within(selRadius, ligand))
	fo := fragment.DefaultOptions()
	fo.Omit = strings.Contains(mapPath, "polder")
	m, err := fragment.Extract(mapPath, kind, region, fo)
	if err != nil {
		return errDecorate(err, "MapExtractLocal")
	}
	return m.WriteFile(out)
}
