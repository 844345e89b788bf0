// SPDX-License-Identifier: MIT
package matrix_test

import (
	"fmt"

	"github.com/katalvlaran/lorainit/matrix"
)

// ExampleLowRankSVD factors a rank-2 diagonal matrix and prints its spectrum.
func ExampleLowRankSVD() {
	w, _ := matrix.NewDenseFrom(3, 3, []float64{
		3, 0, 0,
		0, 2, 0,
		0, 0, 0,
	})
	_, s, _, err := matrix.LowRankSVD(w, 2)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%.3f %.3f\n", s[0], s[1])

	// Output:
	// 3.000 2.000
}

// ExampleSubInPlace applies a scaled low-rank offset to a weight.
func ExampleSubInPlace() {
	w, _ := matrix.NewDenseFrom(2, 2, []float64{1, 1, 1, 1})
	b, _ := matrix.NewDenseFrom(2, 1, []float64{1, 2})
	a, _ := matrix.NewDenseFrom(1, 2, []float64{1, 0})
	ba, _ := matrix.Mul(b, a)

	_ = matrix.SubInPlace(w, ba, 0.5)
	fmt.Print(w)

	// Output:
	// [0.5, 1]
	// [0, 1]
}

// ExampleRoundTo shows bf16 rounding of a value below bf16 resolution.
func ExampleRoundTo() {
	m, _ := matrix.NewDenseFrom(1, 1, []float64{1.001})
	_ = matrix.RoundTo(m, matrix.PrecisionBF16)
	fmt.Println(m.RawData()[0])

	// Output:
	// 1
}
