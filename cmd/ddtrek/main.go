/*
 * main.go, part of ddtrek.
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

// ddtrek builds a PyMOL session from a job file: a reference structure,
// aligned binding-pocket extracts, and optional density-map meshes for
// their ligands. It drives a PyMOL started with the -R flag.
//
// Usage:
//
//	ddtrek [flags] jobfile
//	ddtrek -map file.mtz -sele "chain A and resi 100" [-save out.ccp4]
//	ddtrek -map file.mtz -pdb model.pdb -chain A -resi 100 -save out.ccp4
//	ddtrek -align mobile.pdb -target ref.pdb [-out aligned.pdb]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	ddtrek "github.com/BiocrystLab/DDtrek"
	"github.com/BiocrystLab/DDtrek/pymol"
)

func main() {
	var (
		cutoff  = flag.Float64("cutoff", 7, "truncation radius around the ligand, in Angstrom")
		margin  = flag.Float64("margin", 3, "margin around the ligand box for map fragments, in Angstrom")
		addr    = flag.String("addr", pymol.DefaultAddr, "address of the PyMOL RPC server (pymol -R)")
		seed    = flag.Int64("seed", 0, "seed for entry colors, 0 seeds from the clock")
		plot    = flag.Bool("plot", false, "write a density histogram per extracted map fragment")
		mapPath = flag.String("map", "", "standalone mode: extract density from this map around -sele or -pdb/-chain/-resi")
		sele    = flag.String("sele", "", "standalone mode: PyMOL selection to extract density around")
		save    = flag.String("save", "", "standalone mode: keep the extracted fragment in this file")
		pdbPath = flag.String("pdb", "", "standalone mode without PyMOL: take the ligand from this structure")
		chain   = flag.String("chain", "", "ligand chain for -pdb extraction")
		resi    = flag.Int("resi", 0, "ligand residue number for -pdb extraction")
		align   = flag.String("align", "", "superpose this structure onto -target and exit; no PyMOL needed")
		targ    = flag.String("target", "", "reference structure for -align")
		out     = flag.String("out", "aligned.pdb", "output file for -align")
	)
	flag.Usage = usage
	flag.Parse()
	log.SetFlags(0)
	if *align != "" {
		if *targ == "" {
			log.Fatal("-align needs a -target structure")
		}
		rmsd, err := ddtrek.AlignFile(*align, *targ, *out)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("CA RMSD after superposition: %.3f A, moved structure in %s", rmsd, *out)
		return
	}
	if *mapPath != "" && *pdbPath != "" {
		if *chain == "" || *resi == 0 || *save == "" {
			log.Fatal("-pdb extraction needs -chain, -resi and -save")
		}
		if err := ddtrek.MapExtractLocal(*mapPath, *pdbPath, *chain, *resi, 0, *save); err != nil {
			log.Fatal(err)
		}
		return
	}
	ses := pymol.NewRPCSession(*addr)
	if err := ses.Ping(); err != nil {
		log.Fatalf("no PyMOL at %s: %v", *addr, err)
	}
	if *mapPath != "" || *sele != "" {
		if *mapPath == "" || *sele == "" {
			log.Fatal("standalone extraction needs both -map and -sele")
		}
		if err := ddtrek.MapExtract(ses, *mapPath, *sele, *save, 0); err != nil {
			log.Fatal(err)
		}
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	opts := &ddtrek.Options{
		CoordCutoff: *cutoff,
		Margin:      *margin,
		Seed:        *seed,
		PlotDensity: *plot,
	}
	if err := ddtrek.Run(ctx, flag.Arg(0), ses, opts); err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: ddtrek [flags] jobfile\n")
	fmt.Fprintf(os.Stderr, "       ddtrek -map file.mtz -sele selection [-save out.ccp4]\n")
	fmt.Fprintf(os.Stderr, "       ddtrek -map file.mtz -pdb model.pdb -chain A -resi 100 -save out.ccp4\n")
	fmt.Fprintf(os.Stderr, "       ddtrek -align mobile.pdb -target ref.pdb [-out aligned.pdb]\n")
	flag.PrintDefaults()
}
