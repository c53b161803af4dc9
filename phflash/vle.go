package phflash

import "math"

// wilsonKValues initializes K_i = (Pc_i/P) * exp[5.373(1+omega_i)(1-Tc_i/T)].
func wilsonKValues(T, P float64, crit [NC]CriticalProps) [NC]float64 {
	var K [NC]float64
	for i, c := range crit {
		K[i] = (c.Pc / P) * math.Exp(5.373*(1+c.Omega)*(1-c.Tc/T))
	}
	return K
}

// rachfordRiceResidual evaluates RR(beta) = sum_i z_i(K_i-1)/(1+beta(K_i-1)).
func rachfordRiceResidual(z, K [NC]float64, beta float64) float64 {
	var s float64
	for i := 0; i < NC; i++ {
		s += z[i] * (K[i] - 1.0) / (1.0 + beta*(K[i]-1.0))
	}
	return s
}

// rachfordRiceDerivative evaluates d(RR)/d(beta).
func rachfordRiceDerivative(z, K [NC]float64, beta float64) float64 {
	var s float64
	for i := 0; i < NC; i++ {
		denom := 1.0 + beta*(K[i]-1.0)
		s -= z[i] * (K[i] - 1.0) * (K[i] - 1.0) / (denom * denom)
	}
	return s
}

// rrSinglePhaseResult describes a single-phase short-circuit detected
// before (or instead of) running the Rachford-Rice root find.
type rrSinglePhaseResult struct {
	isSinglePhase bool
	allVapor      bool
}

// checkSinglePhase applies the standard single-phase detection:
// sum(z*K) <= 1 => all liquid; sum(z/K) <= 1 => all vapor.
func checkSinglePhase(z, K [NC]float64) rrSinglePhaseResult {
	var sumZK, sumZOverK float64
	for i := 0; i < NC; i++ {
		sumZK += z[i] * K[i]
		if K[i] != 0 {
			sumZOverK += z[i] / K[i]
		}
	}
	if sumZK <= 1.0 {
		return rrSinglePhaseResult{isSinglePhase: true, allVapor: false}
	}
	if sumZOverK <= 1.0 {
		return rrSinglePhaseResult{isSinglePhase: true, allVapor: true}
	}
	return rrSinglePhaseResult{}
}

// solveRachfordRice finds beta in the physical bracket via bracketed
// bisection with Newton refinement. Any Newton step leaving the
// bracket is rejected in favor of bisection.
func solveRachfordRice(z, K [NC]float64) (float64, error) {
	kMax, kMin := K[0], K[0]
	for _, k := range K {
		if k > kMax {
			kMax = k
		}
		if k < kMin {
			kMin = k
		}
	}
	if kMax <= 1.0 || kMin >= 1.0 {
		// No physical two-phase bracket; caller should treat as
		// single-phase based on checkSinglePhase.
		return 0, newErr("ph_vle_solve_rachford_rice", PHErrAlgorithmRachfordRice, "K values admit no two-phase bracket")
	}

	betaMin := 1.0 / (1.0 - kMax)
	betaMax := 1.0 / (1.0 - kMin)

	lo, hi := betaMin, betaMax
	fLo := rachfordRiceResidual(z, K, lo)
	fHi := rachfordRiceResidual(z, K, hi)
	if fLo*fHi > 0 {
		return 0, newErr("ph_vle_solve_rachford_rice", PHErrAlgorithmRachfordRice, "no sign change in RR bracket")
	}

	beta := 0.5 * (lo + hi)
	for iter := 0; iter < MaxIterRR; iter++ {
		f := rachfordRiceResidual(z, K, beta)
		if math.Abs(f) < TolRR {
			return clip(beta, 0.0, 1.0), nil
		}

		// RR is strictly decreasing; f(lo) > 0 > f(hi) by construction
		// of the bracket orientation, so the sign of f alone says which
		// end to move. f is not re-evaluated at lo, where a component
		// absent from the feed gives 0/0.
		if f > 0 {
			lo = beta
		} else {
			hi = beta
		}

		df := rachfordRiceDerivative(z, K, beta)
		newton := beta
		if df != 0 {
			newton = beta - f/df
		}
		if newton > lo && newton < hi {
			beta = newton
		} else {
			beta = 0.5 * (lo + hi)
		}
	}

	return clip(beta, 0.0, 1.0), newErr("ph_vle_solve_rachford_rice", PHErrConvergenceMaxIterations, "Rachford-Rice failed to converge")
}

// vleCompositions computes x, y from feed z, K-values, and beta.
func vleCompositions(z, K [NC]float64, beta float64) (x, y [NC]float64) {
	for i := 0; i < NC; i++ {
		denom := 1.0 + beta*(K[i]-1.0)
		x[i] = z[i] / denom
		y[i] = K[i] * x[i]
	}
	return
}

// ssIterationOutcome records why successive substitution stopped.
type ssIterationOutcome int

const (
	ssConverged ssIterationOutcome = iota
	ssTrivialSolution
	ssMaxIterations
	ssOscillationFailure
)

// successiveSubstitution runs the K-value fixed-point iteration at
// fixed (T, P) starting from an initial K guess, applying Anderson
// acceleration to ln(K) when enabled.
func successiveSubstitution(T, P float64, z [NC]float64, kInit [NC]float64, params *PREOSParams, opts *FlashOptions) (x, y, K [NC]float64, betaOut float64, zL, zV float64, phiL, phiV [NC]float64, outcome ssIterationOutcome, iterCount int, err error) {
	K = kInit

	var anderson AndersonAccelerator
	if opts.UseAnderson {
		if initErr := anderson.Init(3); initErr != nil {
			opts.UseAnderson = false
		}
	}

	var residualHistory []float64
	var nonMonotoneStreak int
	consecutiveAndersonFailures := 0

	for iter := 0; iter < MaxIterVLE; iter++ {
		iterCount = iter + 1

		sp := checkSinglePhase(z, K)
		var beta float64
		if sp.isSinglePhase {
			if sp.allVapor {
				beta = 1.0
				y = z
				for i := range x {
					if K[i] != 0 {
						x[i] = z[i] / K[i]
					}
				}
				if nerr := normalizeArray("ph_vle_solve", &x); nerr != nil {
					err = nerr
					return
				}
			} else {
				beta = 0.0
				x = z
				var sumZK float64
				for i := 0; i < NC; i++ {
					sumZK += z[i] * K[i]
				}
				for i := range y {
					y[i] = z[i] * K[i]
				}
				if sumZK > 0 {
					if nerr := normalizeArray("ph_vle_solve", &y); nerr != nil {
						err = nerr
						return
					}
				}
			}
		} else {
			var rrErr error
			beta, rrErr = solveRachfordRice(z, K)
			if rrErr != nil {
				err = rrErr
				return
			}
			x, y = vleCompositions(z, K, beta)
		}
		betaOut = beta

		prMixtureParams(T, x, CriticalPropsTable(), opts.UseQuantumH2, params.Kij, params)
		AL, BL := cubicCoeffsAB(T, P, params)
		var zlErr error
		zL, zlErr = solveCubicZ(AL, BL, PhaseLiquid)
		if zlErr != nil {
			err = wrapErr("ph_vle_solve", PHErrAlgorithmEOSFailure, "liquid Z-factor solve failed", zlErr)
			return
		}
		phiLNow, phiLErr := prFugacityCoeffs(T, P, x, params, zL)
		if phiLErr != nil {
			err = wrapErr("ph_vle_solve", PHErrAlgorithmEOSFailure, "liquid fugacity solve failed", phiLErr)
			return
		}
		phiL = phiLNow

		var paramsV PREOSParams
		prMixtureParams(T, y, CriticalPropsTable(), opts.UseQuantumH2, params.Kij, &paramsV)
		AV, BV := cubicCoeffsAB(T, P, &paramsV)
		zV, zlErr = solveCubicZ(AV, BV, PhaseVapor)
		if zlErr != nil {
			err = wrapErr("ph_vle_solve", PHErrAlgorithmEOSFailure, "vapor Z-factor solve failed", zlErr)
			return
		}
		phiVNow, phiVErr := prFugacityCoeffs(T, P, y, &paramsV, zV)
		if phiVErr != nil {
			err = wrapErr("ph_vle_solve", PHErrAlgorithmEOSFailure, "vapor fugacity solve failed", phiVErr)
			return
		}
		phiV = phiVNow

		var kNew [NC]float64
		for i := 0; i < NC; i++ {
			kNew[i] = phiL[i] / phiV[i]
		}

		// Convergence check: K update + fugacity balance.
		maxKChange := 0.0
		for i := 0; i < NC; i++ {
			if K[i] > 0 {
				d := math.Abs(math.Log(kNew[i] / K[i]))
				if d > maxKChange {
					maxKChange = d
				}
			}
		}
		maxFugBalance := 0.0
		for i := 0; i < NC; i++ {
			lhs := phiL[i] * x[i]
			rhs := phiV[i] * y[i]
			if lhs > 0 && rhs > 0 {
				d := math.Abs(math.Log(lhs / rhs))
				if d > maxFugBalance {
					maxFugBalance = d
				}
			}
		}

		residualHistory = append(residualHistory, maxKChange)
		if len(residualHistory) >= 2 && residualHistory[len(residualHistory)-1] > residualHistory[len(residualHistory)-2] {
			nonMonotoneStreak++
		} else {
			nonMonotoneStreak = 0
		}

		if maxKChange < TolKValue && maxFugBalance < TolFugacity {
			outcome = ssConverged
			K = kNew
			return
		}

		var kMinusOne [NC]float64
		for i, k := range K {
			kMinusOne[i] = k - 1.0
		}
		if maxAbsArray(kMinusOne) < 1e-3 {
			outcome = ssTrivialSolution
			err = newErr("ph_vle_solve", PHErrPhysicalUnstableSolution, "successive substitution collapsed to the trivial K=1 solution")
			return
		}

		if nonMonotoneStreak > 10 {
			outcome = ssOscillationFailure
			err = newErr("ph_vle_solve", PHErrConvergenceOscillation, "K-value iteration oscillating")
			return
		}

		damping := 1.0
		lnK := make([]float64, NC)
		lnKNew := make([]float64, NC)
		for i := 0; i < NC; i++ {
			lnK[i] = math.Log(K[i])
			lnKNew[i] = math.Log(kNew[i])
		}
		residual := make([]float64, NC)
		for i := range residual {
			residual[i] = lnK[i] - lnKNew[i]
		}
		var residualArr [NC]float64
		copy(residualArr[:], residual)
		logVerbose(opts, "ph_vle_solve: iter %d ||ln K residual||_2 = %.3g", iter, l2NormArray(residualArr))

		accelerated := false
		if opts.UseAnderson {
			xNext, ok, aerr := anderson.Update(lnK, residual)
			if aerr != nil {
				consecutiveAndersonFailures++
				if consecutiveAndersonFailures >= MaxIterAnderson {
					opts.UseAnderson = false
				}
			} else if ok {
				consecutiveAndersonFailures = 0
				var kAcc [NC]float64
				valid := true
				for i := 0; i < NC; i++ {
					kAcc[i] = math.Exp(xNext[i])
					if math.IsNaN(kAcc[i]) || math.IsInf(kAcc[i], 0) || kAcc[i] <= 0 {
						valid = false
						break
					}
				}
				if valid {
					K = kAcc
					accelerated = true
				}
			}
		}

		if !accelerated {
			if nonMonotoneStreak > 3 {
				damping = coordinatedDamping(iter, residualHistory, consecutiveAndersonFailures > 0, consecutiveAndersonFailures)
			}
			for i := 0; i < NC; i++ {
				K[i] = math.Exp(lnK[i] - damping*residual[i])
			}
		}
	}

	outcome = ssMaxIterations
	err = newErr("ph_vle_solve", PHErrConvergenceMaxIterations, "successive substitution exceeded MAX_ITER_VLE")
	return
}

// tpdAnalysis performs tangent-plane-distance stability analysis at
// (T, P, z). It returns whether the single-phase assumption is
// unstable and, if so, the minimizing trial composition to seed
// re-initialization.
func tpdAnalysis(T, P float64, z [NC]float64, params *PREOSParams, opts *FlashOptions, crit [NC]CriticalProps) (unstable bool, wOut [NC]float64, err error) {
	var paramsZ PREOSParams
	prMixtureParams(T, z, crit, opts.UseQuantumH2, params.Kij, &paramsZ)
	Az, Bz := cubicCoeffsAB(T, P, &paramsZ)

	zL, errL := solveCubicZ(Az, Bz, PhaseLiquid)
	if errL != nil {
		err = errL
		return
	}
	zV, errV := solveCubicZ(Az, Bz, PhaseVapor)
	if errV != nil {
		err = errV
		return
	}

	phiZL, e1 := prFugacityCoeffs(T, P, z, &paramsZ, zL)
	if e1 != nil {
		err = e1
		return
	}
	phiZV, e2 := prFugacityCoeffs(T, P, z, &paramsZ, zV)
	if e2 != nil {
		err = e2
		return
	}

	// The feed itself may have two candidate roots (zL, zV) when the
	// cubic admits three real roots; per Michelsen's stability test the
	// reference state is whichever root gives the feed the lower molar
	// Gibbs energy, g/RT = sum_i z_i*(ln z_i + ln phi_i).
	gL, gV := 0.0, 0.0
	for i := 0; i < NC; i++ {
		if z[i] <= 0 {
			continue
		}
		gL += z[i] * (math.Log(z[i]) + math.Log(phiZL[i]))
		gV += z[i] * (math.Log(z[i]) + math.Log(phiZV[i]))
	}
	phiZ := phiZL
	if gV < gL {
		phiZ = phiZV
	}

	seeds := tpdSeedCompositions(T, P, z, crit)

	bestTPD := math.Inf(1)
	var bestW [NC]float64
	found := false

	for _, seed := range seeds {
		w := seed
		if nerr := normalizeArray("ph_vle_tpd_analysis", &w); nerr != nil {
			continue
		}

		converged := false
		for iter := 0; iter < MaxIterTPD; iter++ {
			var paramsW PREOSParams
			prMixtureParams(T, w, crit, opts.UseQuantumH2, params.Kij, &paramsW)
			Aw, Bw := cubicCoeffsAB(T, P, &paramsW)

			zWL, errWL := solveCubicZ(Aw, Bw, PhaseLiquid)
			if errWL != nil {
				break
			}
			zWV, errWV := solveCubicZ(Aw, Bw, PhaseVapor)
			if errWV != nil {
				break
			}

			// Use the root further from B, i.e. the larger (vapor-like)
			// root whenever the cubic has three real roots, for every
			// seed; the seed family does not affect the choice.
			zW := zWL
			if zWV > zWL {
				zW = zWV
			}

			phiW, perr := prFugacityCoeffs(T, P, w, &paramsW, zW)
			if perr != nil {
				break
			}

			var wNew [NC]float64
			for i := 0; i < NC; i++ {
				wNew[i] = z[i] * phiZ[i] / phiW[i]
			}
			if nerr := normalizeArray("ph_vle_tpd_analysis", &wNew); nerr != nil {
				break
			}

			maxDelta := 0.0
			for i := 0; i < NC; i++ {
				if d := math.Abs(wNew[i] - w[i]); d > maxDelta {
					maxDelta = d
				}
			}
			w = wNew
			if maxDelta < 1e-8 {
				converged = true
				break
			}
		}
		if !converged {
			continue
		}

		var paramsWFinal PREOSParams
		prMixtureParams(T, w, crit, opts.UseQuantumH2, params.Kij, &paramsWFinal)
		AwF, BwF := cubicCoeffsAB(T, P, &paramsWFinal)
		zWL, e3 := solveCubicZ(AwF, BwF, PhaseLiquid)
		if e3 != nil {
			continue
		}
		zWV, e4 := solveCubicZ(AwF, BwF, PhaseVapor)
		if e4 != nil {
			continue
		}
		zWFinal := zWL
		if zWV > zWL {
			zWFinal = zWV
		}
		phiWFinal, e5 := prFugacityCoeffs(T, P, w, &paramsWFinal, zWFinal)
		if e5 != nil {
			continue
		}

		var tpdStar float64
		for i := 0; i < NC; i++ {
			if w[i] <= 0 || z[i] <= 0 {
				continue
			}
			tpdStar += w[i] * (math.Log(w[i]) + math.Log(phiWFinal[i]) - math.Log(z[i]) - math.Log(phiZ[i]))
		}

		if tpdStar < bestTPD {
			bestTPD = tpdStar
			bestW = w
			found = true
		}
	}

	if found && bestTPD < -TolTPD {
		return true, bestW, nil
	}
	return false, [NC]float64{}, nil
}

// tpdSeedCompositions builds the MAX_TPD_TRIALS seed compositions:
// pure-component seeds plus Wilson-derived vapor-like and liquid-like
// trials.
func tpdSeedCompositions(T, P float64, z [NC]float64, crit [NC]CriticalProps) [MaxTPDTrials][NC]float64 {
	var seeds [MaxTPDTrials][NC]float64
	for i := 0; i < NC; i++ {
		seeds[i][i] = 1.0
	}

	K := wilsonKValues(T, P, crit)
	var vaporLike, liquidLike [NC]float64
	for i := 0; i < NC; i++ {
		vaporLike[i] = z[i] * K[i]
		if K[i] != 0 {
			liquidLike[i] = z[i] / K[i]
		}
	}
	seeds[NC] = vaporLike
	seeds[NC+1] = liquidLike
	return seeds
}

// estimateKFromTPD derives improved K-values from a TPD trial
// composition: K_i = w_i/z_i for vapor-like trials.
func estimateKFromTPD(z, w [NC]float64) [NC]float64 {
	var K [NC]float64
	for i := 0; i < NC; i++ {
		if z[i] > 1e-300 {
			K[i] = w[i] / z[i]
		} else {
			K[i] = 1.0
		}
	}
	return K
}

// isothermalFlash is the entry point for the VLE subsystem at a fixed
// (T, P): it initializes K (Wilson, or TPD-derived on retry), runs
// successive substitution, and retries once via TPD re-seeding on a
// physical-category failure.
func isothermalFlash(T, P float64, z [NC]float64, opts *FlashOptions, crit [NC]CriticalProps) (StateProperties, error) {
	var state StateProperties
	state.T, state.P, state.Z = T, P, z

	if err := checkComposition("ph_vle_solve", z); err != nil {
		state.Status = err.(*PHError).Code
		return state, err
	}

	var params PREOSParams
	params.Kij = opts.Kij

	K := wilsonKValues(T, P, crit)

	attempt := func(kInit [NC]float64) (StateProperties, error) {
		var s StateProperties
		s.T, s.P, s.Z = T, P, z
		x, y, kOut, beta, zl, zv, phiL, phiV, outcome, iters, err := successiveSubstitution(T, P, z, kInit, &params, opts)
		s.X, s.Y, s.K, s.Beta = x, y, kOut, beta
		s.ZL, s.ZV = zl, zv
		s.PhiL, s.PhiV = phiL, phiV
		s.Iterations = iters
		if err != nil {
			if phErr, ok := err.(*PHError); ok {
				s.Status = phErr.Code
			}
			return s, err
		}
		_ = outcome
		s.Status = PHOk
		return s, nil
	}

	result, err := attempt(K)
	if err == nil {
		return result, nil
	}

	phErr, ok := err.(*PHError)
	recoverable := ok && phErr.Code.Recoverable()
	if !recoverable {
		return result, err
	}

	unstable, w, tpdErr := tpdAnalysis(T, P, z, &params, opts, crit)
	if tpdErr != nil || !unstable {
		return result, err
	}
	kFromTPD := estimateKFromTPD(z, w)
	retryResult, retryErr := attempt(kFromTPD)
	if retryErr != nil {
		return retryResult, retryErr
	}
	return retryResult, nil
}
