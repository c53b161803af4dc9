package phflash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBIPMatrixRejectsAsymmetric(t *testing.T) {
	var custom [NC][NC]float64
	custom[0][1] = 0.1
	custom[1][0] = 0.2
	_, err := BuildBIPMatrix(BIPCustom, custom)
	require.Error(t, err)
}

func TestBuildBIPMatrixRejectsOutOfRange(t *testing.T) {
	var custom [NC][NC]float64
	custom[0][1] = 0.9
	custom[1][0] = 0.9
	_, err := BuildBIPMatrix(BIPCustom, custom)
	require.Error(t, err)
}

func TestBuildBIPMatrixRejectsNonzeroDiagonal(t *testing.T) {
	var custom [NC][NC]float64
	custom[2][2] = 0.01
	_, err := BuildBIPMatrix(BIPCustom, custom)
	require.Error(t, err)
}

func TestRecommendedAndUniSimKijAreValid(t *testing.T) {
	_, err := BuildBIPMatrix(BIPRecommended, [NC][NC]float64{})
	require.NoError(t, err)
	_, err = BuildBIPMatrix(BIPUniSim, [NC][NC]float64{})
	require.NoError(t, err)
}

func TestNasa7CalibrationMatchesShomateAtBoundaries(t *testing.T) {
	raw := shomateRawTable()
	for _, r := range raw {
		abcdefh := [7]float64{r.ABCDEF[0], r.ABCDEF[1], r.ABCDEF[2], r.ABCDEF[3], r.ABCDEF[4], r.ABCDEF[5], r.calibratedH()}
		nasa := fitNasa7FromShomate(abcdefh, r.TMin, r.TMax)
		for _, T := range [2]float64{r.TMin, r.TMax} {
			hs := shomateEnthalpy(T, abcdefh)
			hn := nasa7Enthalpy(T, nasa)
			assert.InDelta(t, hs, hn, 1.0)
		}
	}
}
