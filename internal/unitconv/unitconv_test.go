package unitconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemperatureRoundTrip(t *testing.T) {
	celsius, err := Temperature(300.0, Kelvin, Celsius)
	require.NoError(t, err)
	back, err := Temperature(celsius, Celsius, Kelvin)
	require.NoError(t, err)
	assert.InDelta(t, 300.0, back, 1e-9)
}

func TestTemperatureFahrenheitFreezingPoint(t *testing.T) {
	f, err := Temperature(273.15, Kelvin, Fahrenheit)
	require.NoError(t, err)
	assert.InDelta(t, 32.0, f, 1e-9)
}

func TestPressureAtmToPascal(t *testing.T) {
	pa, err := Pressure(1.0, Atm, Pascal)
	require.NoError(t, err)
	assert.InDelta(t, 101325.0, pa, 1e-6)
}

func TestPressureUnknownUnitErrors(t *testing.T) {
	_, err := Pressure(1.0, PressureUnit("psi"), Pascal)
	require.Error(t, err)
}

func TestEnthalpyMolarToMassRequiresMW(t *testing.T) {
	_, err := Enthalpy(1000.0, JoulePerMol, JoulePerKg, 0)
	require.Error(t, err)
}

func TestEnthalpyMolarToMassRoundTrip(t *testing.T) {
	mw := 18.015 // water, g/mol
	massBasis, err := Enthalpy(1000.0, JoulePerMol, JoulePerKg, mw)
	require.NoError(t, err)
	back, err := Enthalpy(massBasis, JoulePerKg, JoulePerMol, mw)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, back, 1e-6)
}
