// Package unitconv converts between the temperature, pressure, and
// molar/mass enthalpy units a P-H flash caller is likely to supply,
// so the flash core itself only ever sees SI (K, Pa, J/mol).
package unitconv

import "fmt"

// TemperatureUnit identifies a supported temperature scale.
type TemperatureUnit string

const (
	Kelvin     TemperatureUnit = "K"
	Celsius    TemperatureUnit = "C"
	Fahrenheit TemperatureUnit = "F"
)

// Temperature converts value from one temperature unit to another.
func Temperature(value float64, from, to TemperatureUnit) (float64, error) {
	kelvin, err := toKelvin(value, from)
	if err != nil {
		return 0, err
	}
	return fromKelvin(kelvin, to)
}

func toKelvin(value float64, unit TemperatureUnit) (float64, error) {
	switch unit {
	case Kelvin:
		return value, nil
	case Celsius:
		return value + 273.15, nil
	case Fahrenheit:
		return (value-32.0)*5.0/9.0 + 273.15, nil
	default:
		return 0, fmt.Errorf("unitconv: unknown temperature unit %q", unit)
	}
}

func fromKelvin(kelvin float64, unit TemperatureUnit) (float64, error) {
	switch unit {
	case Kelvin:
		return kelvin, nil
	case Celsius:
		return kelvin - 273.15, nil
	case Fahrenheit:
		return (kelvin-273.15)*9.0/5.0 + 32.0, nil
	default:
		return 0, fmt.Errorf("unitconv: unknown temperature unit %q", unit)
	}
}

// PressureUnit identifies a supported pressure unit.
type PressureUnit string

const (
	Pascal PressureUnit = "Pa"
	KiloPa PressureUnit = "kPa"
	MegaPa PressureUnit = "MPa"
	Bar    PressureUnit = "bar"
	Atm    PressureUnit = "atm"
)

var pressureToPascal = map[PressureUnit]float64{
	Pascal: 1.0,
	KiloPa: 1.0e3,
	MegaPa: 1.0e6,
	Bar:    1.0e5,
	Atm:    101325.0,
}

// Pressure converts value from one pressure unit to another.
func Pressure(value float64, from, to PressureUnit) (float64, error) {
	fromFactor, ok := pressureToPascal[from]
	if !ok {
		return 0, fmt.Errorf("unitconv: unknown pressure unit %q", from)
	}
	toFactor, ok := pressureToPascal[to]
	if !ok {
		return 0, fmt.Errorf("unitconv: unknown pressure unit %q", to)
	}
	return value * fromFactor / toFactor, nil
}

// EnthalpyUnit identifies a supported enthalpy unit, molar or
// mass-based.
type EnthalpyUnit string

const (
	JoulePerMol     EnthalpyUnit = "J/mol"
	KiloJoulePerMol EnthalpyUnit = "kJ/mol"
	JoulePerKg      EnthalpyUnit = "J/kg"
	KiloJoulePerKg  EnthalpyUnit = "kJ/kg"
)

// Enthalpy converts value between molar and mass enthalpy units. mw
// is the mixture molecular weight in g/mol, required whenever either
// unit is mass-based.
func Enthalpy(value float64, from, to EnthalpyUnit, mw float64) (float64, error) {
	jPerMol, err := enthalpyToJPerMol(value, from, mw)
	if err != nil {
		return 0, err
	}
	return enthalpyFromJPerMol(jPerMol, to, mw)
}

func enthalpyToJPerMol(value float64, unit EnthalpyUnit, mw float64) (float64, error) {
	switch unit {
	case JoulePerMol:
		return value, nil
	case KiloJoulePerMol:
		return value * 1000.0, nil
	case JoulePerKg:
		if mw <= 0 {
			return 0, fmt.Errorf("unitconv: mass-basis enthalpy conversion requires mw > 0")
		}
		return value * mw / 1000.0, nil
	case KiloJoulePerKg:
		if mw <= 0 {
			return 0, fmt.Errorf("unitconv: mass-basis enthalpy conversion requires mw > 0")
		}
		return value * 1000.0 * mw / 1000.0, nil
	default:
		return 0, fmt.Errorf("unitconv: unknown enthalpy unit %q", unit)
	}
}

func enthalpyFromJPerMol(jPerMol float64, unit EnthalpyUnit, mw float64) (float64, error) {
	switch unit {
	case JoulePerMol:
		return jPerMol, nil
	case KiloJoulePerMol:
		return jPerMol / 1000.0, nil
	case JoulePerKg:
		if mw <= 0 {
			return 0, fmt.Errorf("unitconv: mass-basis enthalpy conversion requires mw > 0")
		}
		return jPerMol * 1000.0 / mw, nil
	case KiloJoulePerKg:
		if mw <= 0 {
			return 0, fmt.Errorf("unitconv: mass-basis enthalpy conversion requires mw > 0")
		}
		return jPerMol / mw, nil
	default:
		return 0, fmt.Errorf("unitconv: unknown enthalpy unit %q", unit)
	}
}
