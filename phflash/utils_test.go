package phflash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipBoundsValue(t *testing.T) {
	assert.Equal(t, 1.0, clip(-5, 1, 10))
	assert.Equal(t, 10.0, clip(50, 1, 10))
	assert.Equal(t, 5.0, clip(5, 1, 10))
}

func TestSignReturnsExpected(t *testing.T) {
	assert.Equal(t, 1.0, sign(3.2))
	assert.Equal(t, -1.0, sign(-3.2))
	assert.Equal(t, 0.0, sign(0))
}

func TestCheckCompositionRejectsNegative(t *testing.T) {
	z := [NC]float64{-0.1, 0.3, 0.3, 0.3, 0.2}
	err := checkComposition("test", z)
	require.Error(t, err)
}

func TestCheckCompositionRejectsBadSum(t *testing.T) {
	z := [NC]float64{0.5, 0.5, 0.5, 0.5, 0.5}
	err := checkComposition("test", z)
	require.Error(t, err)
}

func TestCheckCompositionAcceptsValid(t *testing.T) {
	z := [NC]float64{0.2, 0.2, 0.2, 0.2, 0.2}
	require.NoError(t, checkComposition("test", z))
}

func TestNormalizeArrayScalesToUnitSum(t *testing.T) {
	z := [NC]float64{2, 2, 2, 2, 2}
	require.NoError(t, normalizeArray("test", &z))
	assert.InDelta(t, 1.0, sumArray(z), 1e-12)
}

func TestCompositionScaleInvarianceAfterNormalization(t *testing.T) {
	z1 := [NC]float64{1, 2, 3, 4, 5}
	z2 := [NC]float64{10, 20, 30, 40, 50}
	require.NoError(t, normalizeArray("test", &z1))
	require.NoError(t, normalizeArray("test", &z2))
	for i := 0; i < NC; i++ {
		assert.InDelta(t, z1[i], z2[i], 1e-12)
	}
}

func TestCoordinatedDampingCapsOnAndersonFailures(t *testing.T) {
	d := coordinatedDamping(5, []float64{1, 0.5}, true, 3)
	assert.LessOrEqual(t, d, 0.4)
}

func TestMaxAbsArrayFindsLargestMagnitude(t *testing.T) {
	a := [NC]float64{-0.1, 0.4, -0.9, 0.2, 0.0}
	assert.InDelta(t, 0.9, maxAbsArray(a), 1e-12)
}

func TestMaxRelativeErrorArraysZeroForEqualArrays(t *testing.T) {
	a := [NC]float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.0, maxRelativeErrorArrays(a, a, 1e-12), 1e-12)
}

func TestMaxRelativeErrorArraysFindsWorstComponent(t *testing.T) {
	a := [NC]float64{1.0, 1.0, 1.0, 1.0, 1.0}
	b := [NC]float64{1.0, 1.0, 1.1, 1.0, 1.0}
	assert.InDelta(t, 0.1/1.1, maxRelativeErrorArrays(a, b, 1e-12), 1e-9)
}

func TestL2NormArrayMatchesManualComputation(t *testing.T) {
	a := [NC]float64{3, 4, 0, 0, 0}
	assert.InDelta(t, 5.0, l2NormArray(a), 1e-12)
}
