/*
 * super.go, part of ddtrek.
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

package v3

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Transform is a rigid-body transform: first the Shift translation
// is applied, then the rotation, then the final Offset translation.
// It is what Super reports, so the same motion can be replayed on
// another object (a map fragment, for instance).
type Transform struct {
	Rotation *mat.Dense //3x3
	Shift    *Matrix    //1x3, applied before the rotation
	Offset   *Matrix    //1x3, applied after the rotation
}

// Apply transforms every vector of in, returning a new matrix.
func (T *Transform) Apply(in *Matrix) *Matrix {
	n := in.NVecs()
	centered := Zeros(n)
	centered.AddVec(in, T.Shift)
	rotated := Zeros(n)
	rotated.Dense.Mul(centered.Dense, T.Rotation)
	rotated.AddVec(rotated, T.Offset)
	return rotated
}

func negated(v *Matrix) *Matrix {
	r := Zeros(1)
	r.Scale(-1, v.Dense)
	return r
}

// Super finds the best rotation and translations that superimpose the
// vectors of test indexed by testlst onto the vectors of templa indexed
// by templalst (Kabsch algorithm). It applies the transform to a copy of
// the whole test matrix and returns it, together with the transform.
// testlst and templalst must have the same number of elements. If both
// lists are nil, all vectors are used.
func Super(test, templa *Matrix, testlst, templalst []int) (*Matrix, *Transform, error) {
	if testlst == nil && templalst == nil {
		testlst = sequentialList(test.NVecs())
		templalst = sequentialList(templa.NVecs())
	}
	if len(testlst) != len(templalst) {
		return nil, nil, Error{fmt.Sprintf("Mismatched template and test atom numbers: %d, %d", len(templalst), len(testlst)), []string{"Super"}, true}
	}
	if len(testlst) < 3 {
		return nil, nil, Error{fmt.Sprintf("Not enough atoms to superpose: %d", len(testlst)), []string{"Super"}, true}
	}
	ctest := Zeros(len(testlst))
	ctest.SomeVecs(test, testlst)
	ctempla := Zeros(len(templalst))
	ctempla.SomeVecs(templa, templalst)

	meanTest := ctest.Mean()
	meanTempla := ctempla.Mean()
	ctest.SubVec(ctest, meanTest)
	ctempla.SubVec(ctempla, meanTempla)

	//Cross-covariance and its SVD.
	h := mat.NewDense(3, 3, nil)
	h.Mul(ctest.Dense.T(), ctempla.Dense)
	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, nil, Error{"SVD failed on the cross-covariance matrix", []string{"Super"}, true}
	}
	u := mat.NewDense(3, 3, nil)
	v := mat.NewDense(3, 3, nil)
	svd.UTo(u)
	svd.VTo(v)

	//Correct for improper rotations.
	d := mat.Det(u) * mat.Det(v)
	s := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, math.Copysign(1, d)})
	us := mat.NewDense(3, 3, nil)
	us.Mul(u, s)
	rot := mat.NewDense(3, 3, nil)
	rot.Mul(us, v.T())

	shift := negated(meanTest)
	tr := &Transform{Rotation: rot, Shift: shift, Offset: meanTempla}
	return tr.Apply(test), tr, nil
}

// RMSD returns the root mean square deviation between the vectors of
// test and templa, which must have the same number of rows. No
// superposition is performed.
func RMSD(test, templa *Matrix) (float64, error) {
	n := test.NVecs()
	if n != templa.NVecs() {
		return 0, Error{fmt.Sprintf("Mismatched number of vectors: %d, %d", n, templa.NVecs()), []string{"RMSD"}, true}
	}
	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			d := test.At(i, j) - templa.At(i, j)
			sum += d * d
		}
	}
	return math.Sqrt(sum / float64(n)), nil
}

func sequentialList(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}
