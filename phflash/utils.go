package phflash

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// clip bounds value to [lo, hi].
func clip(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// sign returns 1 for positive, -1 for negative, 0 for zero, mirroring
// ph_sign from the original header.
func sign(value float64) float64 {
	switch {
	case value > 0:
		return 1
	case value < 0:
		return -1
	default:
		return 0
	}
}

// isZero reports whether value is within tolerance of zero.
func isZero(value, tolerance float64) bool {
	return math.Abs(value) <= tolerance
}

// sumArray sums a length-NC array via gonum/floats.
func sumArray(a [NC]float64) float64 {
	return floats.Sum(a[:])
}

// maxAbsArray returns the largest |a[i]|.
func maxAbsArray(a [NC]float64) float64 {
	m := 0.0
	for _, v := range a {
		if av := math.Abs(v); av > m {
			m = av
		}
	}
	return m
}

// relativeError computes |value-reference| / max(|reference|, minDenominator).
func relativeError(value, reference, minDenominator float64) float64 {
	denom := math.Abs(reference)
	if denom < minDenominator {
		denom = minDenominator
	}
	return math.Abs(value-reference) / denom
}

// maxRelativeErrorArrays computes the largest componentwise relative
// error between two length-NC arrays.
func maxRelativeErrorArrays(a, b [NC]float64, minDenominator float64) float64 {
	m := 0.0
	for i := range a {
		if e := relativeError(a[i], b[i], minDenominator); e > m {
			m = e
		}
	}
	return m
}

// l2NormArray computes the Euclidean norm of a length-NC array.
func l2NormArray(a [NC]float64) float64 {
	return floats.Norm(a[:], 2)
}

// adaptiveDamping computes a damping factor in [0.1, 0.8] from
// iteration count and recent error history: the factor starts at 0.8
// and shrinks by 0.01 per iteration, and is halved when the latest
// error is larger than the one before it.
func adaptiveDamping(iteration int, errorHistory []float64) float64 {
	base := 0.8 - 0.01*float64(iteration)
	base = clip(base, 0.1, 0.8)

	n := len(errorHistory)
	if n >= 2 && errorHistory[n-1] > errorHistory[n-2] {
		base *= 0.5
	}
	return clip(base, 0.1, 0.8)
}

// coordinatedDamping layers Anderson-failure awareness on top of
// adaptiveDamping: on k consecutive Anderson failures, damping is
// capped at max(0.2, 1-0.2k).
func coordinatedDamping(iteration int, errorHistory []float64, andersonFailed bool, consecutiveAndersonFailures int) float64 {
	d := adaptiveDamping(iteration, errorHistory)
	if andersonFailed && consecutiveAndersonFailures > 0 {
		capD := math.Max(0.2, 1.0-0.2*float64(consecutiveAndersonFailures))
		if d > capD {
			d = capD
		}
	}
	return d
}

// normalizeArray scales composition in place to sum to 1, returning an
// error if the sum is too close to zero to normalize meaningfully.
func normalizeArray(op string, composition *[NC]float64) error {
	s := sumArray(*composition)
	if isZero(s, 1e-30) {
		return newErr(op, PHErrNumericalDivByZero, "composition sums to zero, cannot normalize")
	}
	for i := range composition {
		composition[i] /= s
	}
	return nil
}

// checkComposition validates nonnegativity and near-unity sum.
func checkComposition(op string, z [NC]float64) error {
	for i, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newErr(op, PHErrInputInvalidComposition, "composition contains a non-finite value")
		}
		if v < -1e-12 {
			return wrapErr(op, PHErrPhysicalNegativeComposition, "composition component is negative", nil).withIndex(i)
		}
	}
	if s := sumArray(z); math.Abs(s-1.0) > TolCompSum {
		return newErr(op, PHErrInputInvalidComposition, "composition does not sum to 1 within tolerance")
	}
	return nil
}

// withIndex attaches the offending component index to the message;
// small fluent helper kept private since it only matters internally.
func (e *PHError) withIndex(i int) *PHError {
	e.Message = e.Message + " (component " + strconv.Itoa(i) + ")"
	return e
}
