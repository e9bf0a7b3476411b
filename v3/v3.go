/*
 * v3.go, part of ddtrek.
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

//Package v3 provides the 3D-coordinate matrices used across ddtrek.
//A Matrix is a set of row vectors, one per atom, backed by a gonum
//dense matrix.
package v3

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a set of vectors in 3D space, one row per vector.
type Matrix struct {
	*mat.Dense
}

// Matrix2Dense returns the gonum matrix backing A.
func Matrix2Dense(A *Matrix) *mat.Dense {
	return A.Dense
}

// Dense2Matrix wraps a gonum matrix into a coordinate Matrix.
// The matrix must have 3 columns.
func Dense2Matrix(A *mat.Dense) *Matrix {
	return &Matrix{A}
}

// NewMatrix generates a Matrix with 3 columns from data, which
// is arranged x1,y1,z1,x2,y2,z2...
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 {
		return nil, Error{fmt.Sprintf("Input slice length %d not divisible by %d", l, cols), []string{"NewMatrix"}, true}
	}
	r := mat.NewDense(rows, cols, data)
	return &Matrix{r}, nil
}

// Zeros returns a vecs x 3 zero-filled Matrix.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	return &Matrix{mat.NewDense(vecs, cols, make([]float64, cols*vecs))}
}

// NVecs returns the number of 3D vectors in the Matrix.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNot3xXMatrix)
	}
	return r
}

// VecView returns a view (not a copy) of the ith vector of the matrix.
func (F *Matrix) VecView(i int) *Matrix {
	r := F.Dense.Slice(i, i+1, 0, 3).(*mat.Dense)
	return &Matrix{r}
}

// SomeVecs puts in F a copy of the vectors of A indexed by clist.
// F must have len(clist) rows.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	ar, _ := A.Dims()
	fr, _ := F.Dims()
	if fr != len(clist) {
		panic(ErrShape)
	}
	for i, j := range clist {
		if j >= ar {
			panic(ErrShape)
		}
		F.Set(i, 0, A.At(j, 0))
		F.Set(i, 1, A.At(j, 1))
		F.Set(i, 2, A.At(j, 2))
	}
}

// AddVec adds the 1x3 vector vec to each row of A, putting
// the result in the receiver.
func (F *Matrix) AddVec(A, vec *Matrix) {
	vr, vc := vec.Dims()
	ar, _ := A.Dims()
	if vr != 1 || vc != 3 {
		panic(ErrNotXx3Matrix)
	}
	for i := 0; i < ar; i++ {
		F.Set(i, 0, A.At(i, 0)+vec.At(0, 0))
		F.Set(i, 1, A.At(i, 1)+vec.At(0, 1))
		F.Set(i, 2, A.At(i, 2)+vec.At(0, 2))
	}
}

// SubVec subtracts the 1x3 vector vec from each row of A, putting
// the result in the receiver.
func (F *Matrix) SubVec(A, vec *Matrix) {
	neg := Zeros(1)
	neg.Scale(-1, vec.Dense)
	F.AddVec(A, neg)
}

// Mean returns a 1x3 matrix with the centroid of the vectors in F.
func (F *Matrix) Mean() *Matrix {
	n := F.NVecs()
	m := Zeros(1)
	for i := 0; i < n; i++ {
		m.Set(0, 0, m.At(0, 0)+F.At(i, 0))
		m.Set(0, 1, m.At(0, 1)+F.At(i, 1))
		m.Set(0, 2, m.At(0, 2)+F.At(i, 2))
	}
	m.Scale(1/float64(n), m.Dense)
	return m
}

//Errors

// Error is the v3 implementation of the ddtrek decorate-able error.
type Error struct {
	message  string
	deco     []string
	critical bool
}

func (err Error) Error() string { return err.message }

// Decorate adds the caller deco to the error and returns the
// current decoration slice. An empty string adds nothing.
func (err Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err Error) Critical() bool { return err.critical }

const (
	ErrNot3xXMatrix = "v3: Not a 3-column matrix"
	ErrNotXx3Matrix = "v3: Not a 1x3 vector"
	ErrShape        = "v3: Mismatched matrix shapes"
)
