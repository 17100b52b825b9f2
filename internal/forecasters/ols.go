package forecasters

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rankTolerance drops singular values below this fraction of the largest one
const rankTolerance = 1e-10

// ols solves the least squares problem x*beta = y. Collinear designs, such as the
// lags of a noise-free trend, get the minimum-norm solution over the numerical rank.
func ols(x *mat.Dense, y *mat.VecDense) (*mat.VecDense, error) {
	r, c := x.Dims()
	if r < c {
		return nil, fmt.Errorf("need at least %d observations, got %d", c, r)
	}

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		return nil, fmt.Errorf("least squares: singular value decomposition failed")
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return nil, fmt.Errorf("least squares: design matrix is zero")
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, y, rank)
	for i := 0; i < beta.Len(); i++ {
		if math.IsNaN(beta.AtVec(i)) || math.IsInf(beta.AtVec(i), 0) {
			return nil, fmt.Errorf("least squares: non-finite coefficient")
		}
	}
	return &beta, nil
}

// olsResiduals returns y - x*beta
func olsResiduals(x *mat.Dense, y, beta *mat.VecDense) []float64 {
	var fitted mat.VecDense
	fitted.MulVec(x, beta)

	out := make([]float64, y.Len())
	for i := range out {
		out[i] = y.AtVec(i) - fitted.AtVec(i)
	}
	return out
}

// arDesign builds the autoregressive design for d starting at row start:
// each row is [1, d[t-1], ..., d[t-p]] with target d[t].
func arDesign(d []float64, p, start int) (*mat.Dense, *mat.VecDense) {
	rows := len(d) - start
	x := mat.NewDense(rows, p+1, nil)
	y := mat.NewVecDense(rows, nil)
	for r := 0; r < rows; r++ {
		t := start + r
		x.Set(r, 0, 1)
		for j := 1; j <= p; j++ {
			x.Set(r, j, d[t-j])
		}
		y.SetVec(r, d[t])
	}
	return x, y
}

func dot(beta *mat.VecDense, features []float64) float64 {
	sum := 0.0
	for i, f := range features {
		sum += beta.AtVec(i) * f
	}
	return sum
}
