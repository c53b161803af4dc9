package phflash

import "math"

// FlashInitOptions populates options with the default tunables:
// Anderson and line search enabled, recommended BIP table, quantum H2
// correction on, adaptive tolerance and derivative cross-check on,
// moderate initial damping.
func FlashInitOptions() (*FlashOptions, error) {
	opts := &FlashOptions{
		UseQuantumH2:          true,
		BIPSource:             BIPRecommended,
		UseAnderson:           true,
		UseLineSearch:         true,
		Damping:               0.8,
		UseAdaptiveTolerance:  true,
		UseAdaptiveDerivative: true,
		MaxReasonableDHDT:     1e6,
	}
	kij, err := BuildBIPMatrix(opts.BIPSource, [NC][NC]float64{})
	if err != nil {
		return nil, wrapErr("ph_flash_init_options", PHErrConfigInvalid, "failed to build default BIP matrix", err)
	}
	opts.Kij = kij
	return opts, nil
}

// classifyOperatingCondition buckets the flash state into a named
// operating regime used to pick convergence tolerances.
func classifyOperatingCondition(T, P float64, composition [NC]float64) OperatingCondition {
	if P > 20e6 || T < 100.0 || (T < 150.0 && composition[IdxH2] > 0.5) {
		return ConditionExtreme
	}
	if P >= 100e3 && P <= 1e6 && T >= 250.0 && T <= 400.0 {
		return ConditionStandard
	}
	return ConditionDifficult
}

// adaptiveEnthalpyTolerance returns the tolerance for a classified
// operating condition, or the caller's override when one is set.
func adaptiveEnthalpyTolerance(opts *FlashOptions, condition OperatingCondition) float64 {
	if opts.CustomEnthalpyTol > 0 {
		return opts.CustomEnthalpyTol
	}
	if !opts.UseAdaptiveTolerance {
		return TolEnthalpyDifficult
	}
	switch condition {
	case ConditionStandard:
		return TolEnthalpyStandard
	case ConditionExtreme:
		return TolEnthalpyExtreme
	default:
		return TolEnthalpyDifficult
	}
}

// estimateInitialTemperature is a rough all-vapor ideal-gas inversion
// seeded at T_REFERENCE, bisecting for the T at which
// Sum(z_i * H_ig,i(T)) == hTarget, then clipping to [50, 1500] K.
func estimateInitialTemperature(models [NC]EnthalpyModel, z [NC]float64, hTarget float64) float64 {
	f := func(T float64) float64 {
		return idealGasEnthalpyMixture(models, z, T) - hTarget
	}

	lo, hi := 50.0, 1500.0
	fLo, fHi := f(lo), f(hi)
	if fLo*fHi > 0 {
		// No bracketed sign change (H* outside the ideal-gas range at
		// the clamps); fall back to the reference temperature.
		return clip(TReference, 50.0, 1500.0)
	}

	for iter := 0; iter < 60; iter++ {
		mid := 0.5 * (lo + hi)
		fMid := f(mid)
		if math.Abs(fMid) < 1.0 || hi-lo < 1e-3 {
			return clip(mid, 50.0, 1500.0)
		}
		if (fMid > 0) == (fLo > 0) {
			lo, fLo = mid, fMid
		} else {
			hi, fHi = mid, fMid
		}
	}
	return clip(0.5*(lo+hi), 50.0, 1500.0)
}

// validateFlashInput checks the feed composition, pressure and
// enthalpy target are within the ranges the solver is valid over.
func validateFlashInput(z [NC]float64, P, hSpec float64) error {
	if err := checkComposition("ph_flash_calculate", z); err != nil {
		return err
	}
	if math.IsNaN(P) || math.IsInf(P, 0) || P < 100.0 || P > 1e8 {
		return newErr("ph_flash_calculate", PHErrInputInvalidPressure, "pressure out of accepted range [100, 1e8] Pa")
	}
	if math.IsNaN(hSpec) || math.IsInf(hSpec, 0) || hSpec < -1e7 || hSpec > 1e7 {
		return newErr("ph_flash_calculate", PHErrInputInvalidEnthalpy, "enthalpy out of accepted range [-1e7, 1e7] J/mol")
	}
	return nil
}

// validateConvergedState re-checks composition and mass-balance
// invariants after the outer loop reports convergence.
func validateConvergedState(state *StateProperties) error {
	if s := sumArray(state.X); math.Abs(s-1.0) > 1e-6 {
		return newErr("ph_flash_calculate", PHErrPhysicalImpossibleState, "liquid composition does not sum to 1")
	}
	if s := sumArray(state.Y); math.Abs(s-1.0) > 1e-6 {
		return newErr("ph_flash_calculate", PHErrPhysicalImpossibleState, "vapor composition does not sum to 1")
	}
	maxMassBalance := 0.0
	for i := 0; i < NC; i++ {
		residual := math.Abs(state.Z[i] - (1-state.Beta)*state.X[i] - state.Beta*state.Y[i])
		if residual > maxMassBalance {
			maxMassBalance = residual
		}
	}
	if maxMassBalance > 1e-8 {
		return newErr("ph_flash_calculate", PHErrPhysicalImpossibleState, "mass balance residual exceeds tolerance")
	}
	if state.Beta > 0 && state.Beta < 1 && state.ZL >= state.ZV {
		return newErr("ph_flash_calculate", PHErrPhysicalImpossibleState, "two-phase solution has Z_L >= Z_V")
	}
	if state.Beta > 0 && state.Beta < 1 {
		var kFromPhi [NC]float64
		for i := 0; i < NC; i++ {
			kFromPhi[i] = state.PhiL[i] / state.PhiV[i]
		}
		if e := maxRelativeErrorArrays(kFromPhi, state.K, 1e-12); e > 1e-5 {
			return newErr("ph_flash_calculate", PHErrPhysicalImpossibleState, "converged K disagrees with phiL/phiV beyond 1e-5")
		}
	}
	return nil
}

// FlashCalculate is the P-H driver: given a feed composition, pressure
// and target molar enthalpy, it finds the temperature and vapor
// fraction at which the mixture's enthalpy matches H* and VLE holds.
func FlashCalculate(z [NC]float64, P, hSpec float64, opts *FlashOptions, priorT float64) (StateProperties, error) {
	var state StateProperties
	state.HSpec = hSpec

	if err := validateFlashInput(z, P, hSpec); err != nil {
		state.Status = err.(*PHError).Code
		return state, err
	}

	models := EnthalpyModelsTable()
	crit := CriticalPropsTable()

	var T float64
	if priorT > 0 {
		T = clip(priorT, 50.0, 1500.0)
	} else {
		T = estimateInitialTemperature(models, z, hSpec)
	}

	consecutiveAndersonFailures := 0
	var errHistory []float64
	var lastErr error

	for iter := 0; iter < MaxIterOuter; iter++ {
		state.Iterations = iter + 1

		condition := classifyOperatingCondition(T, P, z)
		opts.ConditionType = condition
		tolH := adaptiveEnthalpyTolerance(opts, condition)

		vleState, vleErr := isothermalFlash(T, P, z, opts, crit)
		if vleErr != nil {
			phErr, ok := vleErr.(*PHError)
			if ok && phErr.Code == PHErrAlgorithmAndersonFailure {
				consecutiveAndersonFailures++
			}
			lastErr = vleErr
			state.Status = vleState.Status
			if ok && !phErr.Code.Recoverable() {
				return state, vleErr
			}
			// A recoverable VLE failure at this trial T: nudge T by a
			// small fixed step and let the next outer iteration retry
			// rather than aborting the whole driver on one bad trial.
			T = clip(T+1.0, 50.0, 1500.0)
			continue
		}
		consecutiveAndersonFailures = 0

		var paramsL, paramsV PREOSParams
		paramsL.Kij, paramsV.Kij = opts.Kij, opts.Kij
		prMixtureParams(T, vleState.X, crit, opts.UseQuantumH2, opts.Kij, &paramsL)
		prMixtureParams(T, vleState.Y, crit, opts.UseQuantumH2, opts.Kij, &paramsV)

		hL, hlErr := phaseEnthalpy(models, T, P, vleState.X, &paramsL, vleState.ZL)
		if hlErr != nil {
			return state, wrapErr("ph_flash_calculate", PHErrAlgorithmEOSFailure, "liquid enthalpy evaluation failed", hlErr)
		}
		hV, hvErr := phaseEnthalpy(models, T, P, vleState.Y, &paramsV, vleState.ZV)
		if hvErr != nil {
			return state, wrapErr("ph_flash_calculate", PHErrAlgorithmEOSFailure, "vapor enthalpy evaluation failed", hvErr)
		}
		hCalc := mixtureEnthalpy(vleState.Beta, hL, hV)
		deltaH := hSpec - hCalc

		state = vleState
		state.HSpec = hSpec
		state.HCalc = hCalc
		state.HL, state.HV = hL, hV
		state.Iterations = iter + 1

		if math.Abs(deltaH) < tolH {
			state.Status = PHOk
			if vErr := validateConvergedState(&state); vErr != nil {
				state.Status = vErr.(*PHError).Code
				return state, vErr
			}
			return state, nil
		}

		var phase PhaseType
		var phaseComposition [NC]float64
		switch {
		case vleState.Beta <= 0:
			phase = PhaseLiquid
			phaseComposition = vleState.X
		default:
			phase = PhaseVapor
			phaseComposition = vleState.Y
		}
		dResult, dErr := dHdTPhase(models, T, P, phaseComposition, crit, opts, opts.Kij, phase)
		if dErr != nil || dResult.Value == 0 {
			// Fall back to the liquid branch's derivative when the chosen
			// phase's slope is degenerate or flagged; this only
			// matters in the two-phase band where either branch is a
			// reasonable local proxy for dH/dT.
			dResult, dErr = dHdTPhase(models, T, P, vleState.X, crit, opts, opts.Kij, PhaseLiquid)
			if dErr != nil {
				lastErr = dErr
				state.Status = dErr.(*PHError).Code
				return state, dErr
			}
		}

		deltaTNewton := clip(deltaH/dResult.Value, -50.0, 50.0)

		errHistory = append(errHistory, math.Abs(deltaH))
		baseDamping := opts.Damping
		if baseDamping <= 0 {
			baseDamping = 0.8
		}
		if consecutiveAndersonFailures > 0 {
			baseDamping = math.Min(baseDamping, math.Max(0.2, 1.0-0.2*float64(consecutiveAndersonFailures)))
		}

		newT := T
		accepted := false
		if opts.UseLineSearch {
			taus := [5]float64{1, 0.5, 0.25, 0.125, 0.0625}
			for _, tau := range taus {
				trialT := clip(T+tau*deltaTNewton, 50.0, 1500.0)
				trialVLE, trialErr := isothermalFlash(trialT, P, z, opts, crit)
				if trialErr != nil {
					continue
				}
				var pL, pV PREOSParams
				prMixtureParams(trialT, trialVLE.X, crit, opts.UseQuantumH2, opts.Kij, &pL)
				prMixtureParams(trialT, trialVLE.Y, crit, opts.UseQuantumH2, opts.Kij, &pV)
				thL, e1 := phaseEnthalpy(models, trialT, P, trialVLE.X, &pL, trialVLE.ZL)
				thV, e2 := phaseEnthalpy(models, trialT, P, trialVLE.Y, &pV, trialVLE.ZV)
				if e1 != nil || e2 != nil {
					continue
				}
				trialH := mixtureEnthalpy(trialVLE.Beta, thL, thV)
				if math.Abs(hSpec-trialH) < math.Abs(deltaH) {
					newT = trialT
					accepted = true
					break
				}
			}
			if !accepted {
				newT = clip(T+0.0625*deltaTNewton, 50.0, 1500.0)
			}
		} else {
			newT = clip(T+baseDamping*deltaTNewton, 50.0, 1500.0)
			accepted = true
		}

		if math.Abs(newT-T) < TolTemp {
			state.Status = PHOk
			if vErr := validateConvergedState(&state); vErr != nil {
				state.Status = vErr.(*PHError).Code
				return state, vErr
			}
			return state, nil
		}
		T = newT
	}

	state.Status = PHErrConvergenceMaxIterations
	outErr := newErr("ph_flash_calculate", PHErrConvergenceMaxIterations, "outer Newton loop exceeded MAX_ITER_OUTER")
	if lastErr != nil {
		return state, wrapErr("ph_flash_calculate", PHErrConvergenceMaxIterations, "outer loop failed to converge", lastErr)
	}
	return state, outErr
}
