/*
 * runner_test.go, part of ddtrek.
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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BiocrystLab/DDtrek/ccp4"
	"github.com/BiocrystLab/DDtrek/pdb"
	"github.com/BiocrystLab/DDtrek/pymol"
)

const fakeLigandPDB = `HETATM    1  C1  LIG A 100      10.000  12.000  15.000  1.00 30.00           C
HETATM    2  C2  LIG A 100      11.500  12.800  16.100  1.00 30.00           C
END
`

//fakeSession records every call instead of talking to PyMOL. Save
//actually writes a small ligand file so the map pipeline has real
//input to chew on.
type fakeSession struct {
	calls   []string
	objects []string
}

func (s *fakeSession) log(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSession) has(sub string) bool {
	for _, c := range s.calls {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

func (s *fakeSession) count(sub string) int {
	n := 0
	for _, c := range s.calls {
		if strings.Contains(c, sub) {
			n++
		}
	}
	return n
}

func (s *fakeSession) Load(path, name string) error {
	s.log("load %s %s", path, name)
	s.objects = append(s.objects, name)
	return nil
}

func (s *fakeSession) Save(path, sele string) error {
	s.log("save %s %s", path, sele)
	return os.WriteFile(path, []byte(fakeLigandPDB), 0644)
}

func (s *fakeSession) Create(name, sele string) error {
	s.log("create %s %s", name, sele)
	s.objects = append(s.objects, name)
	return nil
}

func (s *fakeSession) Delete(name string) error {
	s.log("delete %s", name)
	prefix := strings.TrimSuffix(name, "*")
	kept := s.objects[:0]
	for _, o := range s.objects {
		if !strings.HasPrefix(o, prefix) {
			kept = append(kept, o)
		}
	}
	s.objects = kept
	return nil
}

func (s *fakeSession) ObjectList() ([]string, error) {
	return append([]string(nil), s.objects...), nil
}

func (s *fakeSession) Chains(sele string) ([]string, error) {
	return []string{"A"}, nil
}

func (s *fakeSession) SymExp(prefix, object, sele string, cutoff float64) error {
	s.log("symexp %s %s %s %g", prefix, object, sele, cutoff)
	return nil
}

func (s *fakeSession) Remove(sele string) error {
	s.log("remove %s", sele)
	return nil
}

func (s *fakeSession) Super(mobile, target string) error {
	s.log("super %s %s", mobile, target)
	return nil
}

func (s *fakeSession) MatrixCopy(source, target string) error {
	s.log("matrix_copy %s %s", source, target)
	return nil
}

func (s *fakeSession) Color(color, sele string) error {
	s.log("color %s %s", color, sele)
	return nil
}

func (s *fakeSession) ColorList() ([]string, error) {
	return []string{"splitpea"}, nil
}

func (s *fakeSession) Show(repr, sele string) error {
	s.log("show %s %s", repr, sele)
	return nil
}

func (s *fakeSession) Hide(repr, sele string) error {
	s.log("hide %s %s", repr, sele)
	return nil
}

func (s *fakeSession) Isomesh(name, mapName string, level float64, sele string, carve float64) error {
	s.log("isomesh %s %s %g %s %g", name, mapName, level, sele, carve)
	s.objects = append(s.objects, name)
	return nil
}

func (s *fakeSession) Group(name, members string) error {
	s.log("group %s %s", name, members)
	return nil
}

func (s *fakeSession) GroupAdd(group, members string) error {
	s.log("group_add %s %s", group, members)
	return nil
}

func (s *fakeSession) Set(name, value, sele string) error {
	s.log("set %s %s %s", name, value, sele)
	return nil
}

func (s *fakeSession) Disable(name string) error {
	s.log("disable %s", name)
	return nil
}

func (s *fakeSession) Refresh() error {
	s.log("refresh")
	return nil
}

func (s *fakeSession) Zoom(sele string) error {
	s.log("zoom %s", sele)
	return nil
}

func writeParentMap(Te *testing.T, name string) {
	g := &ccp4.Grid{
		Data: make([]float32, 16*20*24),
		Nx:   16, Ny: 20, Nz: 24,
		Cell:       pdb.NewUnitCell(32, 40, 48, 90, 90, 90),
		SpaceGroup: 1,
	}
	for i := range g.Data {
		g.Data[i] = float32(i % 100)
	}
	if err := ccp4.NewMap(g).WriteFile(name); err != nil {
		Te.Fatal(err)
	}
}

func testOptions() *Options {
	o := DefaultOptions()
	o.Palette = pymol.NewPalette(nil, 42)
	return o
}

func TestRunEndToEnd(Te *testing.T) {
	dir := Te.TempDir()
	writeParentMap(Te, filepath.Join(dir, "m1.map"))
	job := strings.Join([]string{
		"# structures for the E1 series",
		"#REF ref.pdb",
		"#G grp",
		"struct1.pdb m1.map A 100 E1",
		"struct1.pdb A 100 E1", //duplicate of the one above
		"not a structure line at all",
		"",
	}, "\n")
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte(job), 0644); err != nil {
		Te.Fatal(err)
	}
	ses := &fakeSession{}
	if err := Run(context.Background(), jobPath, ses, testOptions()); err != nil {
		Te.Fatal(err)
	}
	//reference built from the directive, not bootstrapped
	if !ses.has(filepath.Join(dir, "ref.pdb")+" tmp_reference") || ses.count("create reference") != 1 {
		Te.Errorf("reference not built once from #REF:\n%s", strings.Join(ses.calls, "\n"))
	}
	//the server resolves paths in its own working directory, so every
	//path it sees must be absolute
	for _, c := range ses.calls {
		f := strings.Fields(c)
		if len(f) > 1 && (f[0] == "load" || f[0] == "save") && !filepath.IsAbs(f[1]) {
			Te.Errorf("relative path sent to the session: %q", c)
		}
	}
	//the duplicate line must not produce a second entry
	if n := ses.count("create E1 "); n != 1 {
		Te.Errorf("expected exactly one E1 creation, got %d", n)
	}
	if !ses.has("group_add grp E1") {
		Te.Error("entry not added to the active group")
	}
	//map objects: loaded, frame-aligned, contoured at 1 sigma
	if !ses.has(filepath.Join(dir, "masked.ccp4")+" E1_map") || !ses.has("matrix_copy E1 E1_map") {
		Te.Errorf("map fragment not loaded and aligned:\n%s", strings.Join(ses.calls, "\n"))
	}
	if !ses.has("isomesh E1_mesh E1_map 1 ") {
		Te.Error("mesh not contoured at 1 sigma")
	}
	if !ses.has("group_add grp E1_mesh") {
		Te.Error("mesh not grouped")
	}
	//end of job: map group collected and disabled, reference surfaced
	if !ses.has("group_add map_objects *map") || !ses.has("disable map_objects") {
		Te.Error("map_objects group not handled at the end")
	}
	if !ses.has("show surface reference") || !ses.has("color gray60 reference") {
		Te.Error("reference surface not styled")
	}
	if !ses.has("set transparency 0.5") || !ses.has("zoom all") {
		Te.Error("final view not set up")
	}
	//scratch files must be gone
	for _, scratch := range []string{"ligand.pdb", "masked.ccp4"} {
		if _, err := os.Stat(filepath.Join(dir, scratch)); !os.IsNotExist(err) {
			Te.Errorf("scratch file %s left behind", scratch)
		}
	}
}

func TestRunReferenceBootstrap(Te *testing.T) {
	dir := Te.TempDir()
	job := "struct1.pdb A 100 E1\nstruct2.pdb A 100 E2\n"
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte(job), 0644); err != nil {
		Te.Fatal(err)
	}
	ses := &fakeSession{}
	if err := Run(context.Background(), jobPath, ses, testOptions()); err != nil {
		Te.Fatal(err)
	}
	//no #REF: the reference comes from the first entry's first polymer
	//chain, and only once
	if n := ses.count("create reference current_entry and polymer and chain A"); n != 1 {
		Te.Errorf("expected exactly one bootstrapped reference, got %d:\n%s", n, strings.Join(ses.calls, "\n"))
	}
	if n := ses.count("create E"); n != 2 {
		Te.Errorf("expected two entries, got %d", n)
	}
	//both entries aligned against it
	if ses.count("super") != 2 || !ses.has("super E2 and polymer and name CA reference and name CA") {
		Te.Error("entries not superposed onto the reference")
	}
	//without a #G directive the entries land in the default group
	if !ses.has("group_add default E1") || !ses.has("group_add default E2") {
		Te.Errorf("entries not grouped under default:\n%s", strings.Join(ses.calls, "\n"))
	}
}

//flakySession fails a configurable number of superpositions, which is
//how a record with a broken alignment selection dies mid-pipeline.
type flakySession struct {
	fakeSession
	superFailures int
}

func (s *flakySession) Super(mobile, target string) error {
	if s.superFailures > 0 {
		s.superFailures--
		s.log("super %s %s", mobile, target)
		return fmt.Errorf("alignment failed")
	}
	return s.fakeSession.Super(mobile, target)
}

func TestRunFailedRecordCleanup(Te *testing.T) {
	dir := Te.TempDir()
	job := "struct1.pdb A 100 E1\nstruct2.pdb A 100 E2\n"
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte(job), 0644); err != nil {
		Te.Fatal(err)
	}
	ses := &flakySession{superFailures: 1}
	if err := Run(context.Background(), jobPath, ses, testOptions()); err != nil {
		Te.Fatal(err)
	}
	//the first record died at the superposition; its scratch objects
	//and half-built entry must be gone before the second record runs
	if !ses.has("delete E1") {
		Te.Errorf("failed entry not deleted:\n%s", strings.Join(ses.calls, "\n"))
	}
	if ses.has("group_add default E1") {
		Te.Error("failed entry was grouped")
	}
	if !ses.has("group_add default E2") {
		Te.Error("the record after the failure did not complete")
	}
	//nothing but the reference and the good entry survives
	for _, o := range ses.objects {
		if o != "reference" && o != "E2" {
			Te.Errorf("leaked object %q after a failed record", o)
		}
	}
	if len(ses.objects) != 2 {
		Te.Errorf("wrong object count after cleanup: %v", ses.objects)
	}
}

func TestRunAlignChain(Te *testing.T) {
	dir := Te.TempDir()
	job := "#REF ref.pdb B\nstruct1.pdb A 100 E1 D\n"
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte(job), 0644); err != nil {
		Te.Fatal(err)
	}
	ses := &fakeSession{}
	if err := Run(context.Background(), jobPath, ses, testOptions()); err != nil {
		Te.Fatal(err)
	}
	if !ses.has("create reference tmp_reference and polymer and chain B") {
		Te.Error("reference chain override ignored")
	}
	if !ses.has("super E1 and polymer and chain D and name CA reference and name CA") {
		Te.Errorf("align chain override ignored:\n%s", strings.Join(ses.calls, "\n"))
	}
}

func TestRunCancel(Te *testing.T) {
	dir := Te.TempDir()
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte("struct1.pdb A 100 E1\n"), 0644); err != nil {
		Te.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ses := &fakeSession{}
	if err := Run(ctx, jobPath, ses, testOptions()); err != context.Canceled {
		Te.Errorf("expected context.Canceled, got %v", err)
	}
	if len(ses.objects) != 0 {
		Te.Error("records processed after cancellation")
	}
}

func TestRunOmitContour(Te *testing.T) {
	dir := Te.TempDir()
	//a real-space map named polder is flagged omit and contoured at 3
	writeParentMap(Te, filepath.Join(dir, "m_polder.map"))
	jobPath := filepath.Join(dir, "job.inp")
	if err := os.WriteFile(jobPath, []byte("struct1.pdb m_polder.map A 100 E1\n"), 0644); err != nil {
		Te.Fatal(err)
	}
	ses := &fakeSession{}
	if err := Run(context.Background(), jobPath, ses, testOptions()); err != nil {
		Te.Fatal(err)
	}
	if !ses.has("isomesh E1_mesh E1_map 3 ") {
		Te.Errorf("omit map not contoured at 3 sigma:\n%s", strings.Join(ses.calls, "\n"))
	}
}
