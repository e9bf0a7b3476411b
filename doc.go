/*
 * doc.go, part of ddtrek.
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

/*Package ddtrek builds PyMOL sessions for ligand-binding studies: a
reference structure, binding-pocket extracts of many related structures
aligned onto it, and optional electron-density meshes for their
ligands.


	**Capabilities**

    Parses plain-text job files: one structure per line, with optional
	map file and alignment-chain overrides, plus grouping and
	reference directives.

    Drives a running PyMOL (started with -R) over its XML-RPC server:
	loading, symmetry expansion, pocket carving, superposition,
	styling and grouping.

    Extracts spatially confined density fragments around a ligand,
	either by Fourier synthesis from MTZ map coefficients or by
	sub-array copy from a real-space CCP4/MRC grid.

    Never aborts a whole job on one bad record: malformed lines,
	duplicate entries and failed extractions are logged and skipped.

The job file format and the per-entry protocol (7 A pocket cutoff,
6 A symmetry trim, 3 A map margin, 1 or 3 sigma contour levels) are
described in the DDtrek publication (2024).

Setting the DEBUG_DD environment variable to any non-empty value makes
the runner print the selections it builds.
*/
package ddtrek
