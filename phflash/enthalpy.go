package phflash

import "math"

// idealGasEnthalpy evaluates component i's ideal-gas molar enthalpy at
// T, preferring the Shomate form within its validity range and
// falling back to the calibrated NASA-7 polynomial outside it.
func idealGasEnthalpy(models [NC]EnthalpyModel, i int, T float64) float64 {
	m := models[i]
	if T >= m.TMin && T <= m.TMax {
		return shomateEnthalpy(T, m.Shomate)
	}
	return nasa7Enthalpy(T, m.NASA7)
}

// idealGasEnthalpyMixture sums the ideal-gas contribution of every
// component weighted by composition.
func idealGasEnthalpyMixture(models [NC]EnthalpyModel, composition [NC]float64, T float64) float64 {
	var h float64
	for i := 0; i < NC; i++ {
		h += composition[i] * idealGasEnthalpy(models, i, T)
	}
	return h
}

// phaseEnthalpy computes H_phase = sum_i x_i*H_ig,i(T) + H_dep(T,P,x,Z).
func phaseEnthalpy(models [NC]EnthalpyModel, T, P float64, composition [NC]float64, params *PREOSParams, Z float64) (float64, error) {
	hIdeal := idealGasEnthalpyMixture(models, composition, T)
	hDep, err := prEnthalpyDeparture(T, P, params, Z)
	if err != nil {
		return 0, wrapErr("ph_enthalpy_phase", PHErrAlgorithmEOSFailure, "enthalpy departure failed", err)
	}
	return hIdeal + hDep, nil
}

// mixtureEnthalpy blends liquid and vapor phase enthalpies by vapor
// fraction: H = (1-beta)*H_L + beta*H_V.
func mixtureEnthalpy(beta, hL, hV float64) float64 {
	return (1.0-beta)*hL + beta*hV
}

// dHdTIdealAnalytic differentiates the ideal-gas mixture enthalpy with
// respect to T in closed form for both the Shomate and NASA-7
// branches, matching whichever branch idealGasEnthalpy would have
// selected at T.
func dHdTIdealAnalytic(models [NC]EnthalpyModel, composition [NC]float64, T float64) float64 {
	var dH float64
	for i := 0; i < NC; i++ {
		m := models[i]
		if T >= m.TMin && T <= m.TMax {
			dH += composition[i] * shomateCpFromH(T, m.Shomate)
		} else {
			dH += composition[i] * nasa7Cp(T, m.NASA7)
		}
	}
	return dH
}

// shomateCpFromH is d(shomateEnthalpy)/dT, the Shomate heat capacity
// Cp(T) (also the standard Shomate Cp polynomial in disguise, derived
// here by direct differentiation rather than a second coefficient
// table so the two never drift apart).
func shomateCpFromH(T float64, abcdefh [7]float64) float64 {
	t := T / 1000.0
	a, b, c, d, e := abcdefh[0], abcdefh[1], abcdefh[2], abcdefh[3], abcdefh[4]
	// d/dT[(a*t + b*t^2/2 + c*t^3/3 + d*t^4/4 - e/t + f - h)*1000] * dt/dT,
	// dt/dT = 1/1000, so the outer 1000 and inner 1/1000 cancel to 1.
	return a + b*t + c*t*t + d*t*t*t + e/(t*t)
}

// nasa7Cp is d(nasa7Enthalpy)/dT for the calibrated polynomial.
func nasa7Cp(T float64, a [7]float64) float64 {
	return RGasConstant * (a[0] + a[1]*T + a[2]*T*T + a[3]*T*T*T + a[4]*T*T*T*T)
}

// dHdTDepartureAnalytic differentiates the PR enthalpy departure with
// respect to T at fixed (P, composition, phase), holding Z fixed at
// its converged value. This mirrors the source's analytic treatment:
// exact for the explicit T-dependence through da/dT and the log term's
// B argument, and treats Z's own T-sensitivity as already captured by
// the outer Newton loop's re-solve at each trial T rather than folded
// into this local derivative.
func dHdTDepartureAnalytic(T, P float64, params *PREOSParams, Z float64, daDT, d2aDT2 float64) (float64, error) {
	B := params.BMix * P / (RGasConstant * T)
	const epsGuard = 1e-12
	if Z <= B+epsGuard {
		return 0, newErr("ph_enthalpy_dhdt_analytic", PHErrNumericalInvalidResult, "Z too close to B")
	}
	sqrt2 := math.Sqrt2
	lnArg := (Z + (1+sqrt2)*B) / (Z + (1-sqrt2)*B)
	if lnArg <= 0 {
		return 0, newErr("ph_enthalpy_dhdt_analytic", PHErrNumericalInvalidResult, "non-positive log argument")
	}
	lnTerm := math.Log(lnArg)

	// dB/dT = -b_mix*P/(R*T^2) = -B/T.
	dBdT := -B / T

	// d/dT[(T*da/dT - a)] = T*d2a/dT2 (the da/dT and -da/dT terms cancel).
	dNumerDT := T * d2aDT2
	numer := T*daDT - params.AMix
	coeff := numer / (2 * sqrt2 * params.BMix)
	dCoeffDT := dNumerDT / (2 * sqrt2 * params.BMix)

	// d(lnTerm)/dT via dB/dT only (Z held fixed, per the note above).
	denomPlus := Z + (1+sqrt2)*B
	denomMinus := Z + (1-sqrt2)*B
	dLnTermDT := (1+sqrt2)*dBdT/denomPlus - (1-sqrt2)*dBdT/denomMinus

	dHdepDT := RGasConstant*(Z-1.0) + dCoeffDT*lnTerm + coeff*dLnTermDT
	return dHdepDT, nil
}

// d2aMixDT2 numerically differentiates da_mix/dT via a small central
// difference in T; only da_mix/dT itself is available analytically,
// so the second derivative feeding the departure-term cross-check is
// allowed to be numeric.
func d2aMixDT2(T float64, composition [NC]float64, crit [NC]CriticalProps, useQuantumH2 bool, kij [NC][NC]float64) float64 {
	h := math.Max(0.01, 1e-4*T)
	var pPlus, pMinus PREOSParams
	prMixtureParams(T+h, composition, crit, useQuantumH2, kij, &pPlus)
	prMixtureParams(T-h, composition, crit, useQuantumH2, kij, &pMinus)
	return (pPlus.DaDT - pMinus.DaDT) / (2 * h)
}

// dHdTResult bundles the derivative the outer driver uses for its
// Newton step along with whether the numerical cross-check overrode
// the analytic value.
type dHdTResult struct {
	Value          float64
	UsedNumerical  bool
	AnalyticValue  float64
	NumericalValue float64
}

// dHdTPhase computes d(H_phase)/dT at fixed P and composition,
// blending the analytic derivative with a central-difference
// cross-check: disagreement beyond 5% of the larger magnitude falls
// back to the numerical value, logged when opts.Verbose is set.
func dHdTPhase(models [NC]EnthalpyModel, T, P float64, composition [NC]float64, crit [NC]CriticalProps, opts *FlashOptions, kij [NC][NC]float64, phase PhaseType) (dHdTResult, error) {
	var params PREOSParams
	prMixtureParams(T, composition, crit, opts.UseQuantumH2, kij, &params)
	A, B := cubicCoeffsAB(T, P, &params)
	Z, zErr := solveCubicZ(A, B, phase)
	if zErr != nil {
		return dHdTResult{}, wrapErr("ph_enthalpy_dhdt", PHErrAlgorithmEOSFailure, "Z-factor solve failed", zErr)
	}

	d2a := d2aMixDT2(T, composition, crit, opts.UseQuantumH2, kij)
	dHdepDT, depErr := dHdTDepartureAnalytic(T, P, &params, Z, params.DaDT, d2a)
	if depErr != nil {
		return dHdTResult{}, wrapErr("ph_enthalpy_dhdt", PHErrAlgorithmEOSFailure, "departure derivative failed", depErr)
	}
	dHidealDT := dHdTIdealAnalytic(models, composition, T)
	analytic := dHidealDT + dHdepDT

	result := dHdTResult{Value: analytic, AnalyticValue: analytic}

	if opts.UseAdaptiveDerivative {
		h := opts.DerivativePerturbation
		if h <= 0 {
			h = math.Max(0.01, 1e-4*T)
		}

		hPlus, errPlus := phaseHAt(models, T+h, P, composition, crit, opts.UseQuantumH2, kij, phase)
		hMinus, errMinus := phaseHAt(models, T-h, P, composition, crit, opts.UseQuantumH2, kij, phase)
		if errPlus == nil && errMinus == nil {
			numerical := (hPlus - hMinus) / (2 * h)
			result.NumericalValue = numerical

			mag := math.Max(math.Abs(analytic), math.Abs(numerical))
			if mag > 0 && math.Abs(analytic-numerical)/mag > 0.05 {
				result.Value = numerical
				result.UsedNumerical = true
				logVerbose(opts, "ph_enthalpy_dhdt: analytic/numerical disagree by %.2g%%, using numerical value",
					100*math.Abs(analytic-numerical)/mag)
			}
		}
	}

	maxDHDT := opts.MaxReasonableDHDT
	if maxDHDT <= 0 {
		maxDHDT = 1e6
	}
	if result.Value < 1.0 || result.Value > maxDHDT {
		return result, newErr("ph_enthalpy_dhdt", PHErrPhysicalImpossibleState,
			"dH/dT outside physically reasonable bounds")
	}
	return result, nil
}

// phaseHAt is a small helper used by the numerical cross-check: solve
// the cubic and evaluate phase enthalpy at a perturbed T.
func phaseHAt(models [NC]EnthalpyModel, T, P float64, composition [NC]float64, crit [NC]CriticalProps, useQuantumH2 bool, kij [NC][NC]float64, phase PhaseType) (float64, error) {
	var params PREOSParams
	prMixtureParams(T, composition, crit, useQuantumH2, kij, &params)
	A, B := cubicCoeffsAB(T, P, &params)
	Z, err := solveCubicZ(A, B, phase)
	if err != nil {
		return 0, err
	}
	return phaseEnthalpy(models, T, P, composition, &params, Z)
}
