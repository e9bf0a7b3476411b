/*
 * input.go, part of ddtrek.
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
	"strings"

	"github.com/BiocrystLab/DDtrek/fragment"
)

// A GroupDirective sets the active group label for subsequent entries.
type GroupDirective struct {
	Name string
}

// A ReferenceDirective names the reference structure and, optionally,
// which of its chains serves as the alignment template. An empty Chain
// means the first polymer chain found.
type ReferenceDirective struct {
	Path  string
	Chain string
}

// A StructureRecord is one resolved data line of a job file.
type StructureRecord struct {
	StructurePath string
	MapPath       string //empty when the record carries no map
	MapKind       fragment.Kind
	Omit          bool //the map is omit-type, contoured higher
	LigandChain   string
	LigandResidue string
	EntryName     string
	AlignChain    string //empty means align on all polymer CA atoms
}

// RunState is the job-scoped mutable state the parser and runner share:
// the active group, the names already claimed in the session, and
// whether a reference frame exists yet.
type RunState struct {
	Group         string
	Names         []string
	HaveReference bool
}

// NewRunState starts a run over a session already holding the given
// object names. The group defaults to "default" so entries before any
// group directive still land somewhere.
func NewRunState(preloaded []string) *RunState {
	st := &RunState{Group: "default", Names: preloaded}
	for _, n := range preloaded {
		if n == "reference" {
			st.HaveReference = true
		}
	}
	return st
}

// KnownName reports whether name collides with an already-claimed one.
// The test is substring containment, not equality: a new name is
// rejected if any claimed name contains it.
func (st *RunState) KnownName(name string) bool {
	for _, n := range st.Names {
		if strings.Contains(n, name) {
			return true
		}
	}
	return false
}

// AddName claims a name for the rest of the run.
func (st *RunState) AddName(name string) {
	st.Names = append(st.Names, name)
}

//The legal token shapes of a data line. Fields are assigned from the
//END of the token list, so the shape is fully determined by the token
//count and whether the second token is a map path.
var lineShapes = []struct {
	tokens   int
	hasMap   bool
	hasAlign bool
}{
	{4, false, false},
	{5, false, true},
	{5, true, false},
	{6, true, true},
}

//Map path suffixes and the extraction kind each one implies. Matching
//is on the filename suffix only, never on content.
var mapSuffixes = []struct {
	suffix string
	kind   fragment.Kind
}{
	{"mtz", fragment.StructureFactor},
	{"mtz.gz", fragment.StructureFactor},
	{"ccp4", fragment.RealSpaceGrid},
	{"map", fragment.RealSpaceGrid},
	{"ccp4.gz", fragment.RealSpaceGrid},
	{"map.gz", fragment.RealSpaceGrid},
}

func mapKind(token string) (fragment.Kind, bool) {
	low := strings.ToLower(token)
	for _, s := range mapSuffixes {
		if strings.HasSuffix(low, s.suffix) {
			return s.kind, true
		}
	}
	return 0, false
}

// ParseLine classifies one job-file line. It returns one of
// *GroupDirective, *ReferenceDirective or *StructureRecord, or
// (nil, nil) for lines to silently skip (comments, blanks, duplicate
// entries, redundant reference directives). Malformed lines return a
// non-critical error; the caller logs it and moves on.
func ParseLine(line string, st *RunState) (interface{}, error) {
	line = strings.TrimRight(line, " \t\r\n")
	if strings.HasPrefix(line, "#G") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, CError{MalformedRecord, "#G without a group name", []string{"ParseLine"}, false}
		}
		return &GroupDirective{Name: fields[1]}, nil
	}
	if strings.HasPrefix(line, "#REF") {
		if st.HaveReference {
			return nil, nil //first reference wins
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, CError{MalformedRecord, "#REF without a path", []string{"ParseLine"}, false}
		}
		d := &ReferenceDirective{Path: fields[1]}
		if len(fields) >= 3 {
			d.Chain = fields[2]
		}
		return d, nil
	}
	if line == "" || strings.HasPrefix(line, "# ") {
		return nil, nil
	}
	fields := strings.Fields(line)
	if len(fields) < 4 || !strings.HasSuffix(strings.ToLower(fields[0]), "pdb") {
		return nil, CError{MalformedRecord, line, []string{"ParseLine"}, false}
	}
	rec := &StructureRecord{StructurePath: fields[0]}
	var hasMap bool
	if len(fields) >= 2 {
		if kind, ok := mapKind(fields[1]); ok {
			hasMap = true
			rec.MapPath = fields[1]
			rec.MapKind = kind
			rec.Omit = strings.Contains(fields[1], "polder")
		}
	}
	var matched bool
	for _, shape := range lineShapes {
		if shape.tokens != len(fields) || shape.hasMap != hasMap {
			continue
		}
		//fields come off the end, so leading artifacts never shift them
		if shape.hasAlign {
			rec.AlignChain = fields[len(fields)-1]
			fields = fields[:len(fields)-1]
		}
		rec.EntryName = fields[len(fields)-1]
		rec.LigandResidue = fields[len(fields)-2]
		rec.LigandChain = fields[len(fields)-3]
		matched = true
		break
	}
	if !matched {
		return nil, CError{MalformedRecord, line, []string{"ParseLine"}, false}
	}
	if st.KnownName(rec.EntryName) {
		return nil, CError{DuplicateEntry, rec.EntryName, []string{"ParseLine"}, false}
	}
	return rec, nil
}
