/*
 * fragment.go, part of ddtrek.
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

//Package fragment extracts spatially confined density fragments around
//a set of ligand atoms, from either a reciprocal-space (MTZ) source or
//a real-space (CCP4/MRC) one. The fragment keeps the parent cell and
//full-cell sampling in its header, so it stays registered with the
//parent coordinate frame, and its space group is forced to P1 since it
//is no longer a full asymmetric unit.
package fragment

import (
	"log"
	"math"
	"os"

	"github.com/BiocrystLab/DDtrek/ccp4"
	"github.com/BiocrystLab/DDtrek/mtz"
	"github.com/BiocrystLab/DDtrek/pdb"
)

// Kind tells the extractor how a map source is to be interpreted. It
// is resolved once, from the filename, when the job line is parsed.
type Kind int

const (
	//StructureFactor is a reciprocal-space source (MTZ): density is
	//synthesized from an amplitude/phase column pair.
	StructureFactor Kind = iota
	//RealSpaceGrid is a source already in real space (CCP4/MRC,
	//typically cryo-EM).
	RealSpaceGrid
)

func (k Kind) String() string {
	if k == StructureFactor {
		return "structure-factor"
	}
	return "real-space grid"
}

//Amplitude/phase column label pairs. Which pair is used is policy, not
//user input: omit maps get the omit pair, everything else tries the
//Phenix/Buster labels and falls back to the Refmac ones.
var (
	phenixPair = [2]string{"2FOFCWT", "PH2FOFCWT"}
	refmacPair = [2]string{"FWT", "PHWT"}
	omitPair   = [2]string{"mFo-DFc_omit", "PHImFo-DFc_omit"}
)

// Options control an extraction.
type Options struct {
	Margin     float64 //Angstrom around the ligand box
	SampleRate float64 //grid oversampling for density synthesis
	Omit       bool    //the source is an omit-type map
}

// DefaultOptions returns the options used inside the job pipeline:
// 3 A margin and triple oversampling.
func DefaultOptions() *Options {
	return &Options{Margin: 3, SampleRate: 3}
}

// Extract computes the density fragment around the given ligand atoms.
// The returned map carries the parent cell and sampling and a P1 space
// group; writing it to disk and loading it next to the parent
// structure renders it on top of the ligand.
func Extract(mapPath string, kind Kind, ligand *pdb.Molecule, o *Options) (*ccp4.Map, error) {
	if o == nil {
		o = DefaultOptions()
	}
	if ligand == nil || ligand.Len() == 0 {
		return nil, Error{NoLigandAtoms, mapPath, []string{"Extract"}, false}
	}
	switch kind {
	case StructureFactor:
		return extractSF(mapPath, ligand, o)
	default:
		return extractRealSpace(mapPath, ligand, o)
	}
}

func extractSF(mapPath string, ligand *pdb.Molecule, o *Options) (*ccp4.Map, error) {
	source, err := mtz.Read(mapPath)
	if err != nil {
		return nil, err
	}
	var m *ccp4.Map
	if o.Omit {
		m, err = source.TransformFPhiToMap(omitPair[0], omitPair[1], o.SampleRate)
	} else {
		m, err = source.TransformFPhiToMap(phenixPair[0], phenixPair[1], o.SampleRate)
		if err != nil && !critical(err) {
			log.Printf("fragment: %s/%s not in %s, falling back to the Refmac labels", phenixPair[0], phenixPair[1], mapPath)
			m, err = source.TransformFPhiToMap(refmacPair[0], refmacPair[1], o.SampleRate)
		}
	}
	if err != nil {
		return nil, err
	}
	//The scratch ligand file carries no CRYST1, so the box is taken
	//in the cell of the map itself.
	if ligand.Cell == nil {
		ligand.Cell = source.Cell
	}
	box, err := ligand.CalculateFractionalBox(o.Margin)
	if err != nil {
		return nil, err
	}
	m.Grid.SpaceGroup = 1 //the fragment is not a full asymmetric unit
	m.SetExtent(box)
	return m, nil
}

func extractRealSpace(mapPath string, ligand *pdb.Molecule, o *Options) (*ccp4.Map, error) {
	parent, err := ccp4.Read(mapPath)
	if err != nil {
		return nil, err
	}
	box := ligand.CalculateBox(o.Margin)
	size := box.Size()
	spacing := parent.Spacing()
	var start, shape [3]int
	for i := 0; i < 3; i++ {
		//flooring can clip up to one grid step of the margin at some
		//alignments; that error is bounded and accepted
		start[i] = int(math.Floor(box.Min[i] / spacing[i]))
		shape[i] = int(size[i] / spacing[i])
		if shape[i] < 1 {
			shape[i] = 1
		}
	}
	if debug() {
		log.Printf("fragment: start point %v, box grid size %v", start, shape)
	}
	frag := parent.Grid.Subarray(start, shape)
	frag.SpaceGroup = 1
	m := ccp4.NewMap(frag)
	//the fragment keeps the parent's full-cell sampling and cell, only
	//origin and extent differ
	m.StartX, m.StartY, m.StartZ = start[0], start[1], start[2]
	m.SamplingX, m.SamplingY, m.SamplingZ = parent.SamplingX, parent.SamplingY, parent.SamplingZ
	m.UpdateHeader()
	return m, nil
}

// ExtractToFile extracts a fragment and writes it to out. If savedmap
// is non-empty a second copy is written there, for keeping a fragment
// beyond the scratch lifetime of a job run.
func ExtractToFile(mapPath string, kind Kind, ligandPath, out, savedmap string, o *Options) error {
	ligand, err := pdb.ReadFile(ligandPath)
	if err != nil {
		return Error{NoLigandAtoms + ": " + err.Error(), ligandPath, []string{"ExtractToFile"}, false}
	}
	m, err := Extract(mapPath, kind, ligand, o)
	if err != nil {
		return err
	}
	if err := m.WriteFile(out); err != nil {
		return err
	}
	if savedmap != "" {
		log.Printf("Saving %s", savedmap)
		if err := m.WriteFile(savedmap); err != nil {
			return err
		}
	}
	return nil
}

type criticaler interface {
	Critical() bool
}

func critical(err error) bool {
	if c, ok := err.(criticaler); ok {
		return c.Critical()
	}
	return true
}

func debug() bool {
	return os.Getenv("DEBUG_DD") != ""
}

//Errors

// Error is the fragment implementation of the ddtrek decorate-able
// error.
type Error struct {
	message  string
	filename string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return "fragment from " + err.filename + ": " + err.message
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
	NoLigandAtoms = "Ligand atom file absent or empty"
)
