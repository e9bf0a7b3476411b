/*
 * runner.go, part of ddtrek.
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
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/BiocrystLab/DDtrek/densplot"
	"github.com/BiocrystLab/DDtrek/fragment"
	"github.com/BiocrystLab/DDtrek/pdb"
	"github.com/BiocrystLab/DDtrek/pymol"
)

//scratch filenames, overwritten per map-bearing record and removed
//after each use
const (
	scratchLigand = "ligand.pdb"
	scratchMap    = "masked.ccp4"
)

// Options tune a job run. The zero value is not useful; start from
// DefaultOptions.
type Options struct {
	//truncation radius around the ligand, also the symexp cutoff
	CoordCutoff float64
	//margin around the ligand box for map fragments
	Margin float64
	//seed for the entry color choice; 0 seeds from the clock
	Seed int64
	//write a density histogram per extracted fragment
	PlotDensity bool
	//overrides the palette built from the session's colors; used by
	//tests for determinism
	Palette *pymol.Palette
}

// DefaultOptions returns the cutoffs the original protocol uses:
// 7 A coordinate cutoff and 3 A map margin.
func DefaultOptions() *Options {
	return &Options{CoordCutoff: 7, Margin: 3}
}

// Run executes one job file against a session. The working directory
// changes to the job file's directory, so relative paths in the file
// resolve from there; that directory must be writable, which is the
// only precondition that aborts the whole job. Every per-record
// failure is logged and the loop proceeds to the next line. Cancelling
// ctx stops the run between records.
func Run(ctx context.Context, jobPath string, ses pymol.Session, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	abspath, err := filepath.Abs(jobPath)
	if err != nil {
		return err
	}
	dname := filepath.Dir(abspath)
	if err := os.Chdir(dname); err != nil {
		return CError{DirectoryNotWritable, dname, []string{"Run"}, true}
	}
	if err := assertWritable(dname); err != nil {
		return err
	}
	f, err := os.Open(abspath)
	if err != nil {
		return CError{"Unable to open job file: " + err.Error(), abspath, []string{"Run"}, true}
	}
	defer f.Close()
	preloaded, err := ses.ObjectList()
	if err != nil {
		return errDecorate(err, "Run")
	}
	st := NewRunState(preloaded)
	palette := opts.Palette
	if palette == nil {
		colors, err := ses.ColorList()
		if err != nil {
			colors = nil //fall back to the built-in set
		}
		palette = pymol.NewPalette(colors, opts.Seed)
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		v, err := ParseLine(scanner.Text(), st)
		if err != nil {
			log.Printf("%v. Skipping...", err)
			continue
		}
		switch d := v.(type) {
		case nil:
			continue
		case *GroupDirective:
			st.Group = d.Name
		case *ReferenceDirective:
			if err := makeReference(ses, d.Path, d.Chain); err != nil {
				log.Printf("reference from %s failed: %v. Skipping...", d.Path, err)
				continue
			}
			st.HaveReference = true
		case *StructureRecord:
			if err := processRecord(ses, st, d, opts, palette); err != nil {
				log.Printf("entry %s failed: %v. Skipping...", d.EntryName, err)
				continue
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return finish(ses)
}

//absPath resolves p against our working directory. Every path handed
//to the RPC server must be absolute: the server resolves relative
//paths in its own working directory, not in ours.
func absPath(p string) string {
	a, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return a
}

func assertWritable(dname string) error {
	probe, err := os.CreateTemp(dname, ".ddtrek*")
	if err != nil {
		return CError{DirectoryNotWritable, dname, []string{"assertWritable"}, true}
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// makeReference loads the structure at path and carves a single
// polymer chain out of it into the "reference" object. An empty chain
// means the first polymer chain the session reports.
func makeReference(ses pymol.Session, path, chain string) error {
	if err := ses.Load(absPath(path), "tmp_reference"); err != nil {
		return errDecorate(err, "makeReference")
	}
	if chain == "" {
		chains, err := ses.Chains("tmp_reference and polymer")
		if err != nil {
			return errDecorate(err, "makeReference")
		}
		if len(chains) == 0 {
			return CError{"no polymer chains in reference", path, []string{"makeReference"}, false}
		}
		chain = chains[0]
	}
	if err := ses.Create("reference", fmt.Sprintf("tmp_reference and polymer and chain %s", chain)); err != nil {
		return errDecorate(err, "makeReference")
	}
	return ses.Delete("tmp_reference")
}

// processRecord runs the whole per-entry pipeline: load, symmetry
// expansion, pocket carving, superposition onto the reference, final
// trim, styling, grouping, and optionally the map fragment and mesh.
func processRecord(ses pymol.Session, st *RunState, rec *StructureRecord, opts *Options, palette *pymol.Palette) error {
	if err := ses.Load(absPath(rec.StructurePath), "current_entry"); err != nil {
		return errDecorate(err, "processRecord")
	}
	//a failed record must not leak into the next one: the scratch
	//objects and the half-built entry go away before the error
	//propagates. Deleting a name that is already gone is a no-op.
	done := false
	defer func() {
		if done {
			return
		}
		ses.Delete("current_entry")
		ses.Delete("symmetry*")
		ses.Delete(rec.EntryName)
		os.Remove(scratchLigand)
	}()
	cutoff := opts.CoordCutoff
	ligandSel := fmt.Sprintf("(current_entry and chain %s and resi %s)", rec.LigandChain, rec.LigandResidue)
	if rec.MapPath != "" {
		if err := ses.Save(absPath(scratchLigand), ligandSel); err != nil {
			return errDecorate(err, "processRecord")
		}
		if debug() {
			log.Printf("Extracting ligand: %s", ligandSel)
		}
	}
	//symmetry mates of the pocket; chains crossing a crystallographic
	//interface matter there. Copies are trimmed to 6 A right away to
	//keep the object count and later alignment cheap.
	if err := ses.SymExp("symmetry", "current_entry", ligandSel, cutoff); err != nil {
		return errDecorate(err, "processRecord")
	}
	if err := ses.Remove(fmt.Sprintf("symmetry* beyond 6 of %s", ligandSel)); err != nil {
		return errDecorate(err, "processRecord")
	}
	//the ligand, every polymer chain reaching into the cutoff, the
	//waters in it, and the retained symmetry atoms
	tmpSel := fmt.Sprintf("current_entry and (%s or ((bychain %s around %g) and polymer) or (%s around %g and resn HOH))",
		ligandSel, ligandSel, cutoff, ligandSel, cutoff)
	extractedSel := fmt.Sprintf("(%s) or symmetry*", tmpSel)
	if debug() {
		log.Printf("selection:%s", extractedSel)
	}
	if err := ses.Create(rec.EntryName, extractedSel); err != nil {
		return errDecorate(err, "processRecord")
	}
	//lazy reference bootstrap from the first entry that gets this far
	if !st.HaveReference {
		if err := bootstrapReference(ses); err != nil {
			return errDecorate(err, "processRecord")
		}
		st.HaveReference = true
	}
	alignSel := fmt.Sprintf("%s and polymer and name CA", rec.EntryName)
	if rec.AlignChain != "" {
		alignSel = fmt.Sprintf("%s and polymer and chain %s and name CA", rec.EntryName, rec.AlignChain)
	}
	if debug() {
		log.Printf("Alignment selection:%s", alignSel)
	}
	if err := ses.Super(alignSel, "reference and name CA"); err != nil {
		return errDecorate(err, "processRecord")
	}
	ses.Delete("current_entry")
	ses.Delete("symmetry*")
	//final pocket view, tighter than the symexp stage
	pocketSel := fmt.Sprintf("(byres(%s within %g of (%s and chain %s and resi %s)))",
		rec.EntryName, cutoff, rec.EntryName, rec.LigandChain, rec.LigandResidue)
	if err := ses.Remove(fmt.Sprintf("%s and not %s", rec.EntryName, pocketSel)); err != nil {
		return errDecorate(err, "processRecord")
	}
	color := palette.Pick()
	log.Printf("Structure %s is colored by %s", rec.EntryName, color)
	ses.Color(color, rec.EntryName+" and elem C")
	ses.Hide("everything", rec.EntryName)
	ses.Show("lines", rec.EntryName+" and polymer")
	//likely the ligand is the only hetatm so a generous selection is fine
	ses.Show("sticks", rec.EntryName+" and hetatm")
	ses.Show("nb_spheres", rec.EntryName+" and resn hoh")
	if err := ses.GroupAdd(st.Group, rec.EntryName); err != nil {
		return errDecorate(err, "processRecord")
	}
	st.AddName(rec.EntryName)
	done = true
	if rec.MapPath == "" {
		return nil
	}
	if err := makeMapObjects(ses, st, rec, opts, color); err != nil {
		//the coordinate object stays; only the map is lost
		log.Printf("map for entry %s failed: %v. Skipping map generation...", rec.EntryName, err)
	}
	return nil
}

// bootstrapReference creates the reference from the first polymer
// chain of the currently loaded entry, when no #REF directive supplied
// one earlier.
func bootstrapReference(ses pymol.Session) error {
	objects, err := ses.ObjectList()
	if err != nil {
		return errDecorate(err, "bootstrapReference")
	}
	for _, o := range objects {
		if o == "reference" {
			return nil
		}
	}
	chains, err := ses.Chains("current_entry and polymer")
	if err != nil {
		return errDecorate(err, "bootstrapReference")
	}
	if len(chains) == 0 {
		return CError{"no polymer chains to bootstrap a reference from", "", []string{"bootstrapReference"}, false}
	}
	return ses.Create("reference", fmt.Sprintf("current_entry and polymer and chain %s", chains[0]))
}

// makeMapObjects extracts the density fragment for a record, loads it
// as entry_map, aligns it with the entry's frame, and contours the
// entry_mesh at the policy level for the map type.
func makeMapObjects(ses pymol.Session, st *RunState, rec *StructureRecord, opts *Options, color string) error {
	defer os.Remove(scratchLigand)
	defer os.Remove(scratchMap)
	ligand, err := pdb.ReadFile(scratchLigand)
	if err != nil || ligand.Len() == 0 {
		return CError{NoLigandAtoms, scratchLigand, []string{"makeMapObjects"}, false}
	}
	fo := &fragment.Options{Margin: opts.Margin, SampleRate: 3, Omit: rec.Omit}
	m, err := fragment.Extract(rec.MapPath, rec.MapKind, ligand, fo)
	if err != nil {
		return errDecorate(err, "makeMapObjects")
	}
	if err := m.WriteFile(scratchMap); err != nil {
		return errDecorate(err, "makeMapObjects")
	}
	level := contourLevel(rec.Omit)
	if opts.PlotDensity {
		if err := densplot.Histogram(m, level*m.Sigma(), rec.EntryName, rec.EntryName+"_density"); err != nil {
			log.Printf("density plot for %s failed: %v", rec.EntryName, err)
		}
	}
	mapName := rec.EntryName + "_map"
	meshName := rec.EntryName + "_mesh"
	if err := ses.Load(absPath(scratchMap), mapName); err != nil {
		return errDecorate(err, "makeMapObjects")
	}
	//the fragment is in the parent structure's frame; give it the
	//entry's post-superposition transform
	if err := ses.MatrixCopy(rec.EntryName, mapName); err != nil {
		return errDecorate(err, "makeMapObjects")
	}
	ligandSel := fmt.Sprintf("%s and chain %s and resi %s", rec.EntryName, rec.LigandChain, rec.LigandResidue)
	if debug() {
		log.Printf("Map generation name:%s", ligandSel)
	}
	if err := ses.Isomesh(meshName, mapName, level, ligandSel, 1.8); err != nil {
		return errDecorate(err, "makeMapObjects")
	}
	ses.Color(color, meshName)
	return ses.GroupAdd(st.Group, meshName)
}

// contourLevel is the iso-level policy: omit maps at 3 sigma, 2Fo-Fc
// type maps at 1 sigma.
func contourLevel(omit bool) float64 {
	if omit {
		return 3
	}
	return 1
}

// finish collects the map objects into their own disabled group and
// renders the reference as a transparent surface.
func finish(ses pymol.Session) error {
	ses.GroupAdd("map_objects", "*map")
	ses.Show("surface", "reference")
	ses.Color("gray60", "reference")
	ses.Set("transparency", "0.5", "")
	ses.Refresh()
	ses.Disable("map_objects")
	return ses.Zoom("all")
}

func debug() bool {
	return os.Getenv("DEBUG_DD") != ""
}
