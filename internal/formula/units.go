package formula

import "strings"

// Measure types carried by Item measures.
const (
	MeasureWeight = "weight"
	MeasureVolume = "volume"
)

type unitDef struct {
	measureType string
	toBase      float64
}

// Canonical bases are grams for weight and milliliters for volume.
var unitTable = map[string]unitDef{
	"mg": {measureType: MeasureWeight, toBase: 0.001},
	"g":  {measureType: MeasureWeight, toBase: 1},
	"kg": {measureType: MeasureWeight, toBase: 1000},
	"ml": {measureType: MeasureVolume, toBase: 1},
	"l":  {measureType: MeasureVolume, toBase: 1000},
	"lt": {measureType: MeasureVolume, toBase: 1000},
}

// Normalize converts a value into the canonical base unit for its kind.
// Unrecognized units pass through unchanged; callers treat those values as
// already canonical.
func Normalize(value float64, unit string) float64 {
	def, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return value
	}
	return value * def.toBase
}

// UnitMeasureType reports whether a unit denotes weight or volume. Unknown
// units return an empty string.
func UnitMeasureType(unit string) string {
	def, ok := unitTable[strings.ToLower(strings.TrimSpace(unit))]
	if !ok {
		return ""
	}
	return def.measureType
}
