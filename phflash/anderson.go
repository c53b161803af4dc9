package phflash

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AndersonAccelerator is a generic fixed-depth vector-extrapolation
// device over the successive-substitution map g: x -> x - f(x). It is
// phase-unaware: callers invoke it separately for K-value iteration
// and, if desired, outer-loop T iteration. History is kept as a list
// of copies trimmed to maxDepth; each Update allocates fresh copies of
// its inputs and the matrices for the least-squares solve.
type AndersonAccelerator struct {
	maxDepth int

	xHistory [][]float64
	fHistory [][]float64

	iterCount int
}

// Init sizes the accelerator's rolling history for depth max_depth,
// which must be in [2, 10].
func (a *AndersonAccelerator) Init(maxDepth int) error {
	if maxDepth < 2 || maxDepth > 10 {
		return newErr("ph_anderson_init", PHErrInputOutOfRange, "max_depth must be in [2, 10]")
	}
	a.maxDepth = maxDepth
	a.xHistory = a.xHistory[:0]
	a.fHistory = a.fHistory[:0]
	a.iterCount = 0
	return nil
}

// Reset discards history without changing the configured depth.
func (a *AndersonAccelerator) Reset() {
	a.xHistory = a.xHistory[:0]
	a.fHistory = a.fHistory[:0]
	a.iterCount = 0
}

// Info mirrors AndersonInfo from the original header, for diagnostics.
type AndersonInfo struct {
	Initialized bool
	IterCount   int
	CurrentSize int
	MaxSize     int
}

// GetInfo reports the accelerator's current bookkeeping state.
func (a *AndersonAccelerator) GetInfo() AndersonInfo {
	return AndersonInfo{
		Initialized: a.maxDepth > 0,
		IterCount:   a.iterCount,
		CurrentSize: len(a.xHistory),
		MaxSize:     a.maxDepth,
	}
}

// Update stores (xCurrent, fCurrent) and attempts to produce an
// accelerated xNext: the linear combination of the last m residuals
// minimizing ||sum gamma_k f_k||_2
// subject to sum gamma_k = 1, applied to x_k - f_k. ok reports whether
// acceleration was applied; when false, the caller must fall back to
// the unaccelerated step x_current - f_current.
func (a *AndersonAccelerator) Update(xCurrent, fCurrent []float64) (xNext []float64, ok bool, err error) {
	a.iterCount++

	xCopy := append([]float64(nil), xCurrent...)
	fCopy := append([]float64(nil), fCurrent...)
	a.xHistory = append(a.xHistory, xCopy)
	a.fHistory = append(a.fHistory, fCopy)
	if len(a.xHistory) > a.maxDepth {
		a.xHistory = a.xHistory[1:]
		a.fHistory = a.fHistory[1:]
	}

	m := len(a.xHistory)
	if m < 2 {
		return nil, false, nil
	}

	n := len(fCurrent)

	// Build the (m-1) x (m-1) normal-equations system for the
	// unconstrained differences gamma_0..gamma_{m-2} after eliminating
	// the sum-to-one constraint via gamma_{m-1} = 1 - sum(others),
	// following the standard Anderson-mixing normal-equation
	// reduction: minimize ||F*gamma||^2 s.t. 1^T gamma = 1 becomes
	// minimize over delta of ||sum_k delta_k * (f_k - f_{m-1})||^2
	// with F_diff[:,k] = f_k - f_{m-1}.
	fDiff := mat.NewDense(n, m-1, nil)
	for k := 0; k < m-1; k++ {
		for row := 0; row < n; row++ {
			fDiff.Set(row, k, a.fHistory[k][row]-a.fHistory[m-1][row])
		}
	}

	var normal mat.Dense
	normal.Mul(fDiff.T(), fDiff)

	cond := mat.Cond(&normal, 2)
	if cond > 1e12 {
		return nil, false, newErr("ph_anderson_update", PHErrNumericalMatrixSingular, "Anderson normal equations ill-conditioned")
	}

	rhs := mat.NewVecDense(m-1, nil)
	lastF := mat.NewVecDense(n, a.fHistory[m-1])
	var rhsVec mat.VecDense
	rhsVec.MulVec(fDiff.T(), lastF)
	for i := 0; i < m-1; i++ {
		rhs.SetVec(i, -rhsVec.AtVec(i))
	}

	var delta mat.VecDense
	if err := delta.SolveVec(&normal, rhs); err != nil {
		return nil, false, newErr("ph_anderson_update", PHErrNumericalMatrixSingular, "failed to solve Anderson normal equations")
	}

	gamma := make([]float64, m)
	sum := 0.0
	for k := 0; k < m-1; k++ {
		gamma[k] = delta.AtVec(k)
		sum += gamma[k]
	}
	gamma[m-1] = 1.0 - sum

	xNext = make([]float64, n)
	for k := 0; k < m; k++ {
		for row := 0; row < n; row++ {
			xNext[row] += gamma[k] * (a.xHistory[k][row] - a.fHistory[k][row])
		}
	}

	for _, v := range xNext {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false, nil
		}
	}

	return xNext, true, nil
}
