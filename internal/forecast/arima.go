package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrDegenerateSeries is returned when the differenced series has no variation
	ErrDegenerateSeries = errors.New("differenced series is constant")
	// ErrNonFinite is returned when fitting or forecasting produced NaN or Inf
	ErrNonFinite = errors.New("non-finite estimate")
)

// maxCoefficient keeps phi and theta strictly inside (-1, 1)
const maxCoefficient = 0.999

// ARIMAFit is an ARIMA(1,1,1) model without constant fitted by conditional
// sum of squares on the first differences of a series.
type ARIMAFit struct {
	Phi    float64
	Theta  float64
	Sigma2 float64

	lastLevel    float64
	lastDiff     float64
	lastResidual float64
}

// FitARIMA fits the model to y, which must hold at least three values.
func FitARIMA(y []float64) (*ARIMAFit, error) {
	if len(y) < 3 {
		return nil, fmt.Errorf("need at least 3 observations, got %d", len(y))
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
	}

	w := make([]float64, len(y)-1)
	for i := 1; i < len(y); i++ {
		w[i-1] = y[i] - y[i-1]
	}
	if stat.PopVariance(w, nil) == 0 {
		return nil, ErrDegenerateSeries
	}

	// phi = tanh(x0), theta = tanh(x1)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			css, _ := conditionalSS(w, coefficient(x[0]), coefficient(x[1]))
			return css
		},
	}
	result, err := optimize.Minimize(problem, []float64{0, 0}, nil, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}

	phi, theta := coefficient(result.X[0]), coefficient(result.X[1])
	css, lastResidual := conditionalSS(w, phi, theta)
	if !finite(phi, theta, css, lastResidual) {
		return nil, ErrNonFinite
	}

	sigma2 := 0.0
	if n := len(w) - 1; n > 0 {
		sigma2 = css / float64(n)
	}
	return &ARIMAFit{
		Phi:          phi,
		Theta:        theta,
		Sigma2:       sigma2,
		lastLevel:    y[len(y)-1],
		lastDiff:     w[len(w)-1],
		lastResidual: lastResidual,
	}, nil
}

// Forecast returns the next h levels of the series. Values are not clamped.
func (m *ARIMAFit) Forecast(h int) ([]float64, error) {
	out := make([]float64, h)
	level := m.lastLevel
	diff := m.Phi*m.lastDiff + m.Theta*m.lastResidual
	for i := 0; i < h; i++ {
		if i > 0 {
			diff *= m.Phi
		}
		level += diff
		if !finite(level) {
			return nil, ErrNonFinite
		}
		out[i] = level
	}
	return out, nil
}

// conditionalSS returns the residual sum of squares with the first residual
// fixed at zero, together with the last residual.
func conditionalSS(w []float64, phi, theta float64) (float64, float64) {
	var css, e float64
	for t := 1; t < len(w); t++ {
		e = w[t] - phi*w[t-1] - theta*e
		css += e * e
	}
	return css, e
}

func coefficient(x float64) float64 {
	return math.Max(-maxCoefficient, math.Min(maxCoefficient, math.Tanh(x)))
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
