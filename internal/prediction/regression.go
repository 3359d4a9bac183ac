package prediction

import (
	"errors"
	"math"

	"trading-analysisv1/internal/model"
)

// z95 is the two-sided 95% normal quantile used for prediction bounds.
const z95 = 1.96

// LinearRegression fits close against bar index by ordinary least squares.
type LinearRegression struct{}

func (LinearRegression) Name() string { return NameLinear }

// MinBars is the shortest series the model accepts.
func (LinearRegression) MinBars() int { return 10 }

func (m LinearRegression) Predict(bars []model.PriceBar, horizon int) (model.Prediction, error) {
	if err := validateHorizon(horizon); err != nil {
		return model.Prediction{}, err
	}
	if err := requireBars(m.Name(), bars, m.MinBars()); err != nil {
		return model.Prediction{}, err
	}

	ys := model.Closes(bars)
	n := float64(len(ys))
	var sx, sy, sxx, sxy float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	slope := (n*sxy - sx*sy) / (n*sxx - sx*sx)
	intercept := (sy - slope*sx) / n

	coeffs := []float64{intercept, slope}
	sse, r2 := goodnessOfFit(ys, func(i int) float64 { return evalPoly(coeffs, float64(i)) })
	se := math.Sqrt(sse / (n - 2))

	x0 := float64(len(ys) - 1 + horizon)
	return build(bars, horizon, m.Name(), evalPoly(coeffs, x0), z95*se, r2), nil
}

// PolynomialRegression fits close against time with a polynomial of Degree 2
// or 3, solving the normal equations by Gaussian elimination.
type PolynomialRegression struct {
	Degree int
}

func (PolynomialRegression) Name() string { return NamePolynomial }

// MinBars is Degree+5.
func (m PolynomialRegression) MinBars() int { return m.Degree + 5 }

func (m PolynomialRegression) Predict(bars []model.PriceBar, horizon int) (model.Prediction, error) {
	if m.Degree < 2 || m.Degree > 3 {
		return model.Prediction{}, model.Invalid("polynomial.degree", "degree must be 2 or 3, got %d", m.Degree)
	}
	if err := validateHorizon(horizon); err != nil {
		return model.Prediction{}, err
	}
	if err := requireBars(m.Name(), bars, m.MinBars()); err != nil {
		return model.Prediction{}, err
	}

	ys := model.Closes(bars)
	n := len(ys)
	// Time is scaled to [0,1] over the sample to keep the system well conditioned.
	scale := float64(n - 1)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) / scale
	}

	coeffs, err := polyFit(xs, ys, m.Degree)
	if err != nil {
		return model.Prediction{}, err
	}
	sse, r2 := goodnessOfFit(ys, func(i int) float64 { return evalPoly(coeffs, xs[i]) })
	se := math.Sqrt(sse / float64(n-m.Degree-1))

	x0 := float64(n-1+horizon) / scale
	return build(bars, horizon, m.Name(), evalPoly(coeffs, x0), z95*se, r2), nil
}

// goodnessOfFit returns the residual sum of squares and R² clamped to [0,1].
// A series with no variance is fit exactly and scores 1.
func goodnessOfFit(ys []float64, fitted func(i int) float64) (sse, r2 float64) {
	mean := 0.0
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var sst float64
	for i, y := range ys {
		r := y - fitted(i)
		sse += r * r
		d := y - mean
		sst += d * d
	}
	if sst == 0 {
		return 0, 1
	}
	r2 = 1 - sse/sst
	return sse, math.Max(0, math.Min(1, r2))
}

// evalPoly evaluates c[0] + c[1]x + c[2]x² + ... by Horner's rule.
func evalPoly(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

// polyFit returns least-squares coefficients, lowest order first.
func polyFit(xs, ys []float64, degree int) ([]float64, error) {
	size := degree + 1
	// Power sums Σx^k for k in [0, 2·degree].
	pow := make([]float64, 2*degree+1)
	rhs := make([]float64, size)
	for i, x := range xs {
		xp := 1.0
		for k := 0; k <= 2*degree; k++ {
			pow[k] += xp
			if k < size {
				rhs[k] += xp * ys[i]
			}
			xp *= x
		}
	}
	a := make([][]float64, size)
	for r := range a {
		a[r] = make([]float64, size)
		for c := range a[r] {
			a[r][c] = pow[r+c]
		}
	}
	return solveGaussian(a, rhs)
}

var errSingular = errors.New("prediction: singular normal equations")

// solveGaussian solves a·x = b in place with partial pivoting.
func solveGaussian(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, errSingular
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}
