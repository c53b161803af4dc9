package phflash

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CriticalPropsTable returns the immutable critical-property record
// for the fixed five-component system, in the order defined by the
// Idx* constants. Values are standard literature critical constants;
// each call returns a fresh copy of the table, so the result is safe
// to share across goroutines.
func CriticalPropsTable() [NC]CriticalProps {
	return [NC]CriticalProps{
		{Tc: 33.19, Pc: 1.3150e6, Omega: -0.219, Name: "H2"},
		{Tc: 126.21, Pc: 3.3958e6, Omega: 0.037, Name: "N2"},
		{Tc: 154.58, Pc: 5.0430e6, Omega: 0.022, Name: "O2"},
		{Tc: 405.40, Pc: 11.3330e6, Omega: 0.256, Name: "NH3"},
		{Tc: 647.10, Pc: 22.0640e6, Omega: 0.344, Name: "H2O"},
	}
}

// shomateRaw holds NIST-style Shomate coefficients [A,B,C,D,E,F]
// (the 7th slot, H, is solved for during calibration so the model's
// reference enthalpy is pinned at T=298.15K) plus each component's
// validity window. These are ordinary table-driven polynomial
// coefficients; the evaluator is treated as an external collaborator
// whose interface the core only assumes, so the table is kept
// deliberately simple.
type shomateRaw struct {
	ABCDEF [6]float64
	TMin   float64
	TMax   float64
}

func shomateRawTable() [NC]shomateRaw {
	return [NC]shomateRaw{
		// H2 (NIST webbook, 298-1000K range, J/mol form already in kJ basis below)
		{ABCDEF: [6]float64{33.066178, -11.363417, 11.432816, -2.772874, -0.158558, -9.980797}, TMin: 100, TMax: 1000},
		// N2
		{ABCDEF: [6]float64{28.98641, 1.853978, -9.647459, 16.63537, 0.000117, -8.671914}, TMin: 100, TMax: 1500},
		// O2
		{ABCDEF: [6]float64{31.32234, -20.23531, 57.86644, -36.50624, -0.007374, -8.903471}, TMin: 100, TMax: 1500},
		// NH3
		{ABCDEF: [6]float64{19.99563, 49.77119, -15.37599, 1.921168, 0.189174, -53.30667}, TMin: 100, TMax: 1400},
		// H2O (gas phase)
		{ABCDEF: [6]float64{30.09200, 6.832514, 6.793435, -2.534480, 0.082139, -250.8810}, TMin: 100, TMax: 1700},
	}
}

// calibratedH evaluates the Shomate H-offset coefficient such that
// shomateEnthalpy(298.15) == 0, i.e. H is pinned to the table's A..F
// at the reference temperature. It is solved once, not tabulated, so
// edits to A..F never desynchronize the reference point.
func (s shomateRaw) calibratedH() float64 {
	t := TReference / 1000.0
	abcdef := s.ABCDEF
	return abcdef[0]*t + abcdef[1]*t*t/2 + abcdef[2]*t*t*t/3 + abcdef[3]*t*t*t*t/4 - abcdef[4]/t + abcdef[5]
}

// shomateEnthalpy evaluates the Shomate polynomial for molar enthalpy
// relative to T=298.15K, in J/mol.
func shomateEnthalpy(T float64, abcdefh [7]float64) float64 {
	t := T / 1000.0
	a, b, c, d, e, f, h := abcdefh[0], abcdefh[1], abcdefh[2], abcdefh[3], abcdefh[4], abcdefh[5], abcdefh[6]
	return (a*t + b*t*t/2 + c*t*t*t/3 + d*t*t*t*t/4 - e/t + f - h) * 1000.0
}

// nasa7Enthalpy evaluates the NASA-7 polynomial for molar enthalpy, in
// J/mol: H(T) = R*T*(a1 + a2*T/2 + a3*T^2/3 + a4*T^3/4 + a5*T^4/5) + R*a6.
func nasa7Enthalpy(T float64, a [7]float64) float64 {
	return RGasConstant*T*(a[0]+a[1]*T/2+a[2]*T*T/3+a[3]*T*T*T/4+a[4]*T*T*T*T/5) + RGasConstant*a[5]
}

// fitNasa7FromShomate solves the linear least-squares problem that
// pins a NASA-7-style enthalpy polynomial (a1..a6) to the Shomate
// curve at six sample points spanning [TMin, TMax], including both
// endpoints. Because the endpoints are sample points, the two
// representations agree there by construction, which is what keeps
// them continuous at the validity boundaries without hand-tuned
// coefficients.
func fitNasa7FromShomate(abcdefh [7]float64, tMin, tMax float64) [7]float64 {
	samples := [6]float64{
		tMin,
		tMin + (tMax-tMin)*0.2,
		tMin + (tMax-tMin)*0.4,
		tMin + (tMax-tMin)*0.6,
		tMin + (tMax-tMin)*0.8,
		tMax,
	}

	a := mat.NewDense(6, 6, nil)
	b := mat.NewVecDense(6, nil)
	for i, T := range samples {
		a.Set(i, 0, RGasConstant*T)
		a.Set(i, 1, RGasConstant*T*T/2)
		a.Set(i, 2, RGasConstant*T*T*T/3)
		a.Set(i, 3, RGasConstant*T*T*T*T/4)
		a.Set(i, 4, RGasConstant*T*T*T*T*T/5)
		a.Set(i, 5, RGasConstant)
		b.SetVec(i, shomateEnthalpy(T, abcdefh))
	}

	// Scale each column to a unit maximum so the T^5 column does not
	// swamp the constant one; the coefficients are unscaled on return.
	var colScale [6]float64
	for k := 0; k < 6; k++ {
		for i := 0; i < 6; i++ {
			colScale[k] = math.Max(colScale[k], math.Abs(a.At(i, k)))
		}
		for i := 0; i < 6; i++ {
			a.Set(i, k, a.At(i, k)/colScale[k])
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		// Degenerate sample set (should not happen for NC=5's fixed
		// ranges); fall back to a flat polynomial pinned to the
		// midpoint enthalpy so callers still get a finite, if
		// inaccurate, evaluator rather than a panic.
		mid := shomateEnthalpy((tMin+tMax)/2, abcdefh)
		return [7]float64{0, 0, 0, 0, 0, mid / RGasConstant, 0}
	}

	return [7]float64{x.AtVec(0) / colScale[0], x.AtVec(1) / colScale[1], x.AtVec(2) / colScale[2], x.AtVec(3) / colScale[3], x.AtVec(4) / colScale[4], x.AtVec(5) / colScale[5], 0}
}

// EnthalpyModelsTable builds the per-component ideal-gas enthalpy
// models: Shomate coefficients from the literature table, and a
// NASA-7 polynomial calibrated to agree with Shomate at both ends of
// the validity window. The tables are rebuilt (and the NASA-7 fit
// re-solved) on every call; FlashCalculate calls this once per
// invocation and nothing caches the result.
func EnthalpyModelsTable() [NC]EnthalpyModel {
	raw := shomateRawTable()
	var out [NC]EnthalpyModel
	for i, r := range raw {
		abcdefh := [7]float64{r.ABCDEF[0], r.ABCDEF[1], r.ABCDEF[2], r.ABCDEF[3], r.ABCDEF[4], r.ABCDEF[5], r.calibratedH()}
		out[i] = EnthalpyModel{
			Shomate: abcdefh,
			NASA7:   fitNasa7FromShomate(abcdefh, r.TMin, r.TMax),
			TMin:    r.TMin,
			TMax:    r.TMax,
		}
	}
	return out
}

// EnsureEnthalpyContinuity checks that the Shomate and NASA-7 forms
// of each component's enthalpy model agree at T_min and T_max within
// 1 J/mol.
func EnsureEnthalpyContinuity(models [NC]EnthalpyModel) error {
	const tol = 1.0
	for i, m := range models {
		for _, T := range [2]float64{m.TMin, m.TMax} {
			hs := shomateEnthalpy(T, m.Shomate)
			hn := nasa7Enthalpy(T, m.NASA7)
			if math.Abs(hs-hn) > tol {
				return newErr("ph_enthalpy_ensure_continuity", PHErrNumericalPrecisionLoss,
					fmt.Sprintf("component %d: shomate/nasa7 disagree by %.3g J/mol at T=%.2fK", i, hs-hn, T))
			}
		}
	}
	return nil
}

// recommendedKij and uniSimKij are two alternative binary-interaction
// matrices; a BIPCustom matrix is validated the same way at load time. All are
// symmetric with a zero diagonal.
func recommendedKij() [NC][NC]float64 {
	var k [NC][NC]float64
	set := func(i, j int, v float64) {
		k[i][j] = v
		k[j][i] = v
	}
	set(IdxH2, IdxN2, 0.103)
	set(IdxH2, IdxO2, 0.095)
	set(IdxH2, IdxNH3, 0.200)
	set(IdxH2, IdxH2O, 0.400)
	set(IdxN2, IdxO2, -0.012)
	set(IdxN2, IdxNH3, 0.2193)
	set(IdxN2, IdxH2O, 0.385)
	set(IdxO2, IdxNH3, 0.180)
	set(IdxO2, IdxH2O, 0.200)
	set(IdxNH3, IdxH2O, -0.2589)
	return k
}

func uniSimKij() [NC][NC]float64 {
	var k [NC][NC]float64
	set := func(i, j int, v float64) {
		k[i][j] = v
		k[j][i] = v
	}
	set(IdxH2, IdxN2, 0.0867)
	set(IdxH2, IdxO2, 0.0800)
	set(IdxH2, IdxNH3, 0.1800)
	set(IdxH2, IdxH2O, 0.3500)
	set(IdxN2, IdxO2, -0.0119)
	set(IdxN2, IdxNH3, 0.2200)
	set(IdxN2, IdxH2O, 0.3200)
	set(IdxO2, IdxNH3, 0.1600)
	set(IdxO2, IdxH2O, 0.1700)
	set(IdxNH3, IdxH2O, -0.2400)
	return k
}

// BuildBIPMatrix selects and validates the k_ij matrix per
// FlashOptions.BIPSource, rejecting out-of-range values at load
// time.
func BuildBIPMatrix(source BIPSource, custom [NC][NC]float64) ([NC][NC]float64, error) {
	var k [NC][NC]float64
	switch source {
	case BIPRecommended:
		k = recommendedKij()
	case BIPUniSim:
		k = uniSimKij()
	case BIPCustom:
		k = custom
	default:
		return k, newErr("ph_eos_init_bip_matrix", PHErrInputOutOfRange, "unknown BIP source")
	}

	for i := 0; i < NC; i++ {
		if k[i][i] != 0 {
			return k, newErr("ph_eos_init_bip_matrix", PHErrConfigInvalid, "kij diagonal must be zero")
		}
		for j := i + 1; j < NC; j++ {
			if k[i][j] != k[j][i] {
				return k, newErr("ph_eos_init_bip_matrix", PHErrConfigInvalid, "kij matrix must be symmetric")
			}
			if math.Abs(k[i][j]) > 0.5 {
				return k, newErr("ph_eos_init_bip_matrix", PHErrInputOutOfRange, fmt.Sprintf("kij[%d][%d]=%.4f exceeds |0.5| bound", i, j, k[i][j]))
			}
		}
	}
	return k, nil
}
