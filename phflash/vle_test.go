package phflash

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWilsonKValuesH2MoreVolatileThanH2O(t *testing.T) {
	crit := CriticalPropsTable()
	K := wilsonKValues(300.0, 101325.0, crit)
	// H2 is far more volatile than H2O at these conditions.
	assert.Greater(t, K[IdxH2], K[IdxH2O])
}

func TestRachfordRiceResidualMonotonicallyDecreasing(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	K := [NC]float64{5, 2, 1.5, 0.5, 0.1}
	f1 := rachfordRiceResidual(z, K, 0.1)
	f2 := rachfordRiceResidual(z, K, 0.5)
	f3 := rachfordRiceResidual(z, K, 0.9)
	assert.Greater(t, f1, f2)
	assert.Greater(t, f2, f3)
}

func TestSolveRachfordRiceWithinBracket(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	K := [NC]float64{5, 2, 1.5, 0.5, 0.1}
	beta, err := solveRachfordRice(z, K)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, beta, 0.0)
	assert.LessOrEqual(t, beta, 1.0)
	assert.Less(t, math.Abs(rachfordRiceResidual(z, K, beta)), 1e-6)
}

func TestCheckSinglePhaseAllLiquid(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	K := [NC]float64{0.5, 0.5, 0.5, 0.5, 0.5}
	result := checkSinglePhase(z, K)
	assert.True(t, result.isSinglePhase)
	assert.False(t, result.allVapor)
}

func TestCheckSinglePhaseAllVapor(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	K := [NC]float64{5, 5, 5, 5, 5}
	result := checkSinglePhase(z, K)
	assert.True(t, result.isSinglePhase)
	assert.True(t, result.allVapor)
}

func TestIsothermalFlashPureH2OSaturatedVapor(t *testing.T) {
	crit := CriticalPropsTable()
	opts, err := FlashInitOptions()
	require.NoError(t, err)

	z := [NC]float64{0, 0, 0, 0, 1}
	state, err := isothermalFlash(373.15, 101325.0, z, opts, crit)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, sumArray(state.X), 1e-6)
	assert.InDelta(t, 1.0, sumArray(state.Y), 1e-6)
	assert.Greater(t, state.ZV, state.ZL)
}

func TestIsothermalFlashH2N2VaporAtModeratePressure(t *testing.T) {
	crit := CriticalPropsTable()
	opts, err := FlashInitOptions()
	require.NoError(t, err)

	z := [NC]float64{0.7, 0.3, 0, 0, 0}
	state, err := isothermalFlash(250.0, 2e6, z, opts, crit)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sumArray(state.X), 1e-6)
	assert.InDelta(t, 1.0, sumArray(state.Y), 1e-6)

	for i := 0; i < NC; i++ {
		massBalance := z[i] - (1-state.Beta)*state.X[i] - state.Beta*state.Y[i]
		assert.InDelta(t, 0.0, massBalance, 1e-8)
	}
}

func TestTpdAnalysisNH3H2OTrialCompositionNormalized(t *testing.T) {
	crit := CriticalPropsTable()
	opts, err := FlashInitOptions()
	require.NoError(t, err)

	z := [NC]float64{0, 0, 0, 0.4, 0.6}
	var params PREOSParams
	params.Kij = opts.Kij

	unstable, w, tpdErr := tpdAnalysis(350.0, 5e5, z, &params, opts, crit)
	require.NoError(t, tpdErr)
	if unstable {
		assert.InDelta(t, 1.0, sumArray(w), 1e-6)
	}
}

func TestEstimateKFromTPDMatchesRatio(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	w := [NC]float64{0.4, 0.1, 0.2, 0.2, 0.1}
	K := estimateKFromTPD(z, w)
	for i := 0; i < NC; i++ {
		assert.InDelta(t, w[i]/z[i], K[i], 1e-12)
	}
}
