package phflash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestH2QuantumCorrectionApproachesClassicalAtHighT(t *testing.T) {
	tcEff, pcEff := h2QuantumCorrection(1000.0)
	assert.InEpsilon(t, 33.19, tcEff, 1e-3)
	assert.InEpsilon(t, 1.3150e6, pcEff, 1e-3)
}

func TestH2QuantumCorrectionShiftsAtCryogenicT(t *testing.T) {
	tcEff, _ := h2QuantumCorrection(30.0)
	assert.Less(t, tcEff, 33.19)
}

func TestSolveCubicZRejectsNonPositiveAB(t *testing.T) {
	_, err := solveCubicZ(0, 0.1, PhaseVapor)
	require.Error(t, err)
	var phErr *PHError
	require.ErrorAs(t, err, &phErr)
	assert.Equal(t, PHErrNumericalInvalidResult, phErr.Code)
}

func TestSolveCubicZVaporGreaterOrEqualLiquid(t *testing.T) {
	crit := CriticalPropsTable()
	z := [NC]float64{0, 0.5, 0.5, 0, 0}
	var params PREOSParams
	kij, err := BuildBIPMatrix(BIPRecommended, [NC][NC]float64{})
	require.NoError(t, err)
	prMixtureParams(150.0, z, crit, false, kij, &params)
	A, B := cubicCoeffsAB(150.0, 2e6, &params)

	zL, err := solveCubicZ(A, B, PhaseLiquid)
	require.NoError(t, err)
	zV, err := solveCubicZ(A, B, PhaseVapor)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, zV, zL)
	assert.Greater(t, zL, B)
	assert.Greater(t, zV, B)
}

func TestFugacityCoeffsGuardsLogSingularity(t *testing.T) {
	crit := CriticalPropsTable()
	z := [NC]float64{0, 0.5, 0.5, 0, 0}
	var params PREOSParams
	kij, err := BuildBIPMatrix(BIPRecommended, [NC][NC]float64{})
	require.NoError(t, err)
	prMixtureParams(150.0, z, crit, false, kij, &params)
	_, B := cubicCoeffsAB(150.0, 2e6, &params)

	_, err = prFugacityCoeffs(150.0, 2e6, z, &params, B)
	require.Error(t, err)
	var phErr *PHError
	require.ErrorAs(t, err, &phErr)
	assert.Equal(t, PHErrNumericalInvalidResult, phErr.Code)
}

func TestMixtureParamsSymmetricUnderComponentPermutation(t *testing.T) {
	crit := CriticalPropsTable()
	kij, err := BuildBIPMatrix(BIPRecommended, [NC][NC]float64{})
	require.NoError(t, err)

	z1 := [NC]float64{0.2, 0.3, 0.5, 0, 0}
	var p1 PREOSParams
	prMixtureParams(300.0, z1, crit, false, kij, &p1)

	// Swap components 0 and 1, and swap the corresponding criticals
	// and BIP rows/columns consistently; a_mix/b_mix must be invariant.
	z2 := [NC]float64{0.3, 0.2, 0.5, 0, 0}
	crit2 := crit
	crit2[0], crit2[1] = crit2[1], crit2[0]
	var kij2 [NC][NC]float64
	perm := [NC]int{1, 0, 2, 3, 4}
	for i := 0; i < NC; i++ {
		for j := 0; j < NC; j++ {
			kij2[i][j] = kij[perm[i]][perm[j]]
		}
	}
	var p2 PREOSParams
	prMixtureParams(300.0, z2, crit2, false, kij2, &p2)

	assert.InEpsilon(t, p1.AMix, p2.AMix, 1e-10)
	assert.InEpsilon(t, p1.BMix, p2.BMix, 1e-10)
}
