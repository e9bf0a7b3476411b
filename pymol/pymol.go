/*
 * pymol.go, part of ddtrek.
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

//Package pymol talks to a running PyMOL instance. The Session interface
//covers the visualization capabilities the job runner needs; RPCSession
//implements it against PyMOL's built-in XML-RPC server (pymol -R).
package pymol

import (
	"math/rand"
	"time"
)

// Session is the set of visualization operations the runner drives.
// Selection arguments use PyMOL's selection-expression language; the
// runner owns the expressions, a Session only transports them.
type Session interface {
	//object lifecycle
	Load(path, name string) error
	Save(path, sele string) error
	Create(name, sele string) error
	Delete(name string) error
	ObjectList() ([]string, error)
	Chains(sele string) ([]string, error)
	//model editing
	SymExp(prefix, object, sele string, cutoff float64) error
	Remove(sele string) error
	Super(mobile, target string) error
	MatrixCopy(source, target string) error
	//appearance
	Color(color, sele string) error
	ColorList() ([]string, error)
	Show(repr, sele string) error
	Hide(repr, sele string) error
	Isomesh(name, mapName string, level float64, sele string, carve float64) error
	Group(name, members string) error
	GroupAdd(group, members string) error
	Set(name, value, sele string) error
	Disable(name string) error
	Refresh() error
	Zoom(sele string) error
}

//DefaultColors are the named PyMOL colors assigned to entry carbons
//when the server's own color list is not available. Grays and near-grays
//are left out so entries stand apart from the reference surface.
var DefaultColors = []string{
	"yellow", "salmon", "cyan", "magenta", "orange", "wheat",
	"palegreen", "lightblue", "lightpink", "paleyellow", "lightorange",
	"deepteal", "hotpink", "yelloworange", "marine", "olive", "smudge",
	"teal", "dirtyviolet", "deepsalmon", "aquamarine", "limon",
	"skyblue", "warmpink", "limegreen", "slate", "violet", "bluewhite",
}

// A Palette hands out colors for entry carbons. It is seedable so runs
// can be made reproducible.
type Palette struct {
	colors []string
	rng    *rand.Rand
}

// NewPalette builds a palette over the given color names, or over
// DefaultColors if colors is nil. A zero seed means seed from the clock.
func NewPalette(colors []string, seed int64) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Palette{colors: colors, rng: rand.New(rand.NewSource(seed))}
}

// Pick returns a random color name from the palette.
func (p *Palette) Pick() string {
	return p.colors[p.rng.Intn(len(p.colors))]
}
