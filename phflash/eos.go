package phflash

import "math"

// h2QuantumCorrection implements the Prausnitz-Gunn form for
// hydrogen's temperature-dependent effective critical properties; the
// coefficients are copied verbatim from the standard reference
// formula rather than re-derived. It is a pure function of T.
func h2QuantumCorrection(T float64) (tcEff, pcEff float64) {
	const tc0 = 33.19
	const pc0 = 1.3150e6
	const beta = 21.8 / 2.0158 // quantum correction scale, K per unit inverse molar mass

	f := 1.0 + beta/T
	tcEff = tc0 / f
	pcEff = pc0 / f
	return
}

// prPureParams computes a_i(T) and b_i for every component using the
// standard Peng-Robinson form, applying the H2 quantum correction when
// requested. If omega exceeds 0.49 the standard alpha-function
// coefficients are still used (extension to the Soave-modified
// high-omega correlation is out of scope here).
func prPureParams(T float64, crit [NC]CriticalProps, useQuantumH2 bool) (aPure, bPure, tcUsed, pcUsed [NC]float64) {
	for i, c := range crit {
		tc, pc := c.Tc, c.Pc
		if i == IdxH2 && useQuantumH2 {
			tc, pc = h2QuantumCorrection(T)
		}
		tcUsed[i] = tc
		pcUsed[i] = pc

		m := 0.37464 + 1.54226*c.Omega - 0.26992*c.Omega*c.Omega
		sqrtTr := math.Sqrt(T / tc)
		alpha := (1.0 + m*(1.0-sqrtTr))
		alpha *= alpha

		aPure[i] = 0.45724 * RGasConstant * RGasConstant * tc * tc / pc * alpha
		bPure[i] = 0.07780 * RGasConstant * tc / pc
	}
	return
}

// prPureParamsDTDeriv returns da_i/dT for every component, needed for
// the analytic mixture da_mix/dT used by the enthalpy departure
// function. The H2 quantum-corrected criticals are treated as locally
// constant in the derivative (the correction varies slowly relative
// to T near any operating point the driver visits).
func prPureParamsDTDeriv(T float64, crit [NC]CriticalProps, useQuantumH2 bool) [NC]float64 {
	var daDT [NC]float64
	for i, c := range crit {
		tc, pc := c.Tc, c.Pc
		if i == IdxH2 && useQuantumH2 {
			tc, pc = h2QuantumCorrection(T)
		}
		m := 0.37464 + 1.54226*c.Omega - 0.26992*c.Omega*c.Omega
		sqrtTr := math.Sqrt(T / tc)
		alpha := 1.0 + m*(1.0-sqrtTr)
		// d(alpha^2)/dT = 2*alpha * dalpha/dT, dalpha/dT = -m/(2*sqrt(T*tc))
		dalphaDT := -m / (2.0 * math.Sqrt(T*tc))
		dAlphaSqDT := 2.0 * alpha * dalphaDT
		daDT[i] = 0.45724 * RGasConstant * RGasConstant * tc * tc / pc * dAlphaSqDT
	}
	return daDT
}

// prMixtureParams applies the van der Waals one-fluid mixing rule to
// build a_mix, b_mix and the analytic da_mix/dT for a given
// composition, storing the result into params. BIP values must
// already be validated (BuildBIPMatrix) before this call.
func prMixtureParams(T float64, composition [NC]float64, crit [NC]CriticalProps, useQuantumH2 bool, kij [NC][NC]float64, params *PREOSParams) {
	aPure, bPure, tcUsed, pcUsed := prPureParams(T, crit, useQuantumH2)
	daPureDT := prPureParamsDTDeriv(T, crit, useQuantumH2)

	params.APure = aPure
	params.BPure = bPure
	params.TcUsed = tcUsed
	params.PcUsed = pcUsed
	params.Kij = kij

	var aMix, bMix, daDT float64
	for i := 0; i < NC; i++ {
		bMix += composition[i] * bPure[i]
		for j := 0; j < NC; j++ {
			sqrtAiAj := math.Sqrt(aPure[i] * aPure[j])
			cross := composition[i] * composition[j] * sqrtAiAj * (1.0 - kij[i][j])
			aMix += cross

			// d/dT of x_i x_j sqrt(a_i a_j)(1-k_ij):
			// sqrt(a_i a_j) = sqrt, d(sqrt)/dT = (a_i'*a_j + a_i*a_j')/(2*sqrt(a_i*a_j))
			if sqrtAiAj > 0 {
				dSqrtDT := (daPureDT[i]*aPure[j] + aPure[i]*daPureDT[j]) / (2.0 * sqrtAiAj)
				daDT += composition[i] * composition[j] * dSqrtDT * (1.0 - kij[i][j])
			}
		}
	}

	params.AMix = aMix
	params.BMix = bMix
	params.DaDT = daDT
}

// cubicCoeffsAB returns the dimensionless A, B coefficients of the PR
// cubic-in-Z equation at (T, P) for the given mixture parameters.
func cubicCoeffsAB(T, P float64, params *PREOSParams) (A, B float64) {
	RT := RGasConstant * T
	A = params.AMix * P / (RT * RT)
	B = params.BMix * P / RT
	return
}

// solveCubicZ solves Z^3 - (1-B)Z^2 + (A-3B^2-2B)Z - (AB-B^2-B^3) = 0
// for the PR compressibility factor, following the usual
// root-selection and guard contract: on three real roots pick the
// largest for vapor / smallest for liquid; on one real root use it
// for both; reject any candidate with Z <= B.
func solveCubicZ(A, B float64, phase PhaseType) (float64, error) {
	if A <= 0 || B <= 0 {
		return 0, newErr("ph_eos_solve_cubic_eq", PHErrNumericalInvalidResult, "A and B must be positive")
	}

	// Depressed-cubic (Cardano) form: Z^3 + pZ^2 + qZ + r = 0
	p := -(1.0 - B)
	q := A - 3*B*B - 2*B
	r := -(A*B - B*B - B*B*B)

	roots, nReal := realCubicRoots(p, q, r)

	var candidates []float64
	for i := 0; i < nReal; i++ {
		if roots[i] > B+1e-12 {
			candidates = append(candidates, roots[i])
		}
	}
	if len(candidates) == 0 {
		return 0, newErr("ph_eos_solve_cubic_eq", PHErrNumericalInvalidResult, "no physical root with Z > B")
	}

	if nReal == 3 && len(candidates) >= 2 {
		minZ, maxZ := candidates[0], candidates[0]
		for _, z := range candidates[1:] {
			if z < minZ {
				minZ = z
			}
			if z > maxZ {
				maxZ = z
			}
		}
		if phase == PhaseVapor {
			return maxZ, nil
		}
		return minZ, nil
	}

	// Single-root (supercritical-like) branch: use the lone physical
	// root for both phases.
	return candidates[0], nil
}

// realCubicRoots returns the real roots of Z^3 + pZ^2 + qZ + r = 0 via
// the trigonometric Cardano method, along with how many of the
// returned slots are real (1 or 3). When the discriminant is nearly
// degenerate the single-root branch is preferred to avoid losing
// roots to rounding noise.
func realCubicRoots(p, q, r float64) (roots [3]float64, nReal int) {
	a2 := p
	a1 := q
	a0 := r

	qq := (3*a1 - a2*a2) / 9.0
	rr := (9*a2*a1 - 27*a0 - 2*a2*a2*a2) / 54.0
	disc := qq*qq*qq + rr*rr

	scale := math.Max(1.0, math.Abs(rr))
	if disc > -1e-14*scale*scale {
		// One real root, or a near-degenerate discriminant resolved on
		// the single-root branch.
		sqrtDisc := math.Sqrt(math.Max(disc, 0))
		s := math.Cbrt(rr + sqrtDisc)
		t := math.Cbrt(rr - sqrtDisc)
		roots[0] = s + t - a2/3.0
		return roots, 1
	}

	// Three real roots (disc clearly negative).
	if qq >= 0 {
		// Numerically degenerate: treat as a triple root at -a2/3.
		root := -a2 / 3.0
		return [3]float64{root, root, root}, 3
	}
	theta := math.Acos(clip(rr/math.Sqrt(-qq*qq*qq), -1.0, 1.0))
	sqrtNegQQ := math.Sqrt(-qq)
	roots[0] = 2*sqrtNegQQ*math.Cos(theta/3.0) - a2/3.0
	roots[1] = 2*sqrtNegQQ*math.Cos((theta+2*math.Pi)/3.0) - a2/3.0
	roots[2] = 2*sqrtNegQQ*math.Cos((theta+4*math.Pi)/3.0) - a2/3.0
	return roots, 3
}

// prFugacityCoeffs computes the fugacity coefficients phi_i (not their
// logarithms) for every component of the given phase's composition,
// per the standard PR expression for ln(phi_i), guarding the log(Z-B)
// singularity.
func prFugacityCoeffs(T, P float64, composition [NC]float64, params *PREOSParams, Z float64) ([NC]float64, error) {
	A, B := cubicCoeffsAB(T, P, params)

	const epsGuard = 1e-12
	if Z <= B+epsGuard {
		return [NC]float64{}, newErr("ph_eos_calc_fugacity_coeffs", PHErrNumericalInvalidResult, "Z too close to B, log guard triggered")
	}

	sqrt2 := math.Sqrt2
	lnArg := (Z + (1+sqrt2)*B) / (Z + (1-sqrt2)*B)
	if lnArg <= 0 {
		return [NC]float64{}, newErr("ph_eos_calc_fugacity_coeffs", PHErrNumericalInvalidResult, "non-positive argument to fugacity logarithm")
	}
	lnTerm := math.Log(lnArg)

	var phi [NC]float64
	for i := 0; i < NC; i++ {
		var crossSum float64
		for j := 0; j < NC; j++ {
			crossSum += composition[j] * math.Sqrt(params.APure[i]*params.APure[j]) * (1.0 - params.Kij[i][j])
		}
		partial := 2.0 * crossSum

		lnPhi := params.BPure[i]/params.BMix*(Z-1.0) -
			math.Log(Z-B) -
			A/(2*sqrt2*B)*(partial/params.AMix-params.BPure[i]/params.BMix)*lnTerm

		phi[i] = math.Exp(lnPhi)
	}
	return phi, nil
}

// prEnthalpyDeparture computes H_dep(T,P,composition,Z) per the
// standard PR closed form.
func prEnthalpyDeparture(T, P float64, params *PREOSParams, Z float64) (float64, error) {
	B := params.BMix * P / (RGasConstant * T)
	const epsGuard = 1e-12
	if Z <= B+epsGuard {
		return 0, newErr("ph_eos_calc_enthalpy_departure", PHErrNumericalInvalidResult, "Z too close to B")
	}

	sqrt2 := math.Sqrt2
	lnArg := (Z + (1+sqrt2)*B) / (Z + (1-sqrt2)*B)
	if lnArg <= 0 {
		return 0, newErr("ph_eos_calc_enthalpy_departure", PHErrNumericalInvalidResult, "non-positive log argument")
	}

	term := (T*params.DaDT - params.AMix) / (2 * sqrt2 * params.BMix) * math.Log(lnArg)
	hDep := RGasConstant*T*(Z-1.0) + term
	return hDep, nil
}
