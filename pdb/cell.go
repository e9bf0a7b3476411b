/*
 * cell.go, part of ddtrek.
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

package pdb

import "math"

// UnitCell holds crystallographic cell parameters (lengths in Angstrom,
// angles in degrees) and the derived fractionalization matrix.
type UnitCell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64
	orth, frac         [3][3]float64 //orthogonalization and its inverse
	volume             float64
}

// NewUnitCell builds a cell and precomputes the (triclinic-general)
// orthogonalization and fractionalization matrices.
func NewUnitCell(a, b, c, alpha, beta, gamma float64) *UnitCell {
	u := &UnitCell{A: a, B: b, C: c, Alpha: alpha, Beta: beta, Gamma: gamma}
	deg := math.Pi / 180
	ca, cb, cg := math.Cos(alpha*deg), math.Cos(beta*deg), math.Cos(gamma*deg)
	sg := math.Sin(gamma * deg)
	//standard PDB orthogonalization convention
	v := math.Sqrt(1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg)
	u.volume = a * b * c * v
	u.orth = [3][3]float64{
		{a, b * cg, c * cb},
		{0, b * sg, c * (ca - cb*cg) / sg},
		{0, 0, c * v / sg},
	}
	o := u.orth
	//analytic inverse of the upper-triangular orthogonalization matrix
	u.frac = [3][3]float64{
		{1 / o[0][0], -o[0][1] / (o[0][0] * o[1][1]), (o[0][1]*o[1][2] - o[0][2]*o[1][1]) / (o[0][0] * o[1][1] * o[2][2])},
		{0, 1 / o[1][1], -o[1][2] / (o[1][1] * o[2][2])},
		{0, 0, 1 / o[2][2]},
	}
	return u
}

// Volume returns the cell volume in cubic Angstrom.
func (u *UnitCell) Volume() float64 {
	return u.volume
}

// Fractionalize converts a Cartesian position to fractional
// coordinates.
func (u *UnitCell) Fractionalize(x, y, z float64) (fx, fy, fz float64) {
	f := u.frac
	fx = f[0][0]*x + f[0][1]*y + f[0][2]*z
	fy = f[1][1]*y + f[1][2]*z
	fz = f[2][2] * z
	return
}

// Orthogonalize converts fractional coordinates to a Cartesian
// position.
func (u *UnitCell) Orthogonalize(fx, fy, fz float64) (x, y, z float64) {
	o := u.orth
	x = o[0][0]*fx + o[0][1]*fy + o[0][2]*fz
	y = o[1][1]*fy + o[1][2]*fz
	z = o[2][2] * fz
	return
}

// D returns the resolution (d-spacing, in Angstrom) of the reflection
// with Miller indices h, k, l.
func (u *UnitCell) D(h, k, l int) float64 {
	//1/d^2 from the reciprocal metric: the rows of the
	//fractionalization matrix are the reciprocal basis vectors.
	f := u.frac
	hh, kk, ll := float64(h), float64(k), float64(l)
	x := hh * f[0][0]
	y := hh*f[0][1] + kk*f[1][1]
	z := hh*f[0][2] + kk*f[1][2] + ll*f[2][2]
	s2 := x*x + y*y + z*z
	if s2 == 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(s2)
}
