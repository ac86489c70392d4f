package geo

// Area classification constants.
const (
	ClassUrban    = "urban"
	ClassSuburban = "suburban"
	ClassRural    = "rural"
)

// POI-count thresholds for classification, counted in a 2 km box.
const (
	urbanPOIThreshold    = 100
	suburbanPOIThreshold = 30
)

// Density multipliers applied to the country base density per class.
const (
	urbanMultiplier    = 100.0
	suburbanMultiplier = 50.0
	ruralMultiplier    = 10.0
)

// ClassifyRadiusM is the half-side of the box used to count POIs for
// classification.
const ClassifyRadiusM = 2000.0

// Classify returns the area class for a POI count.
// Rules:
//   - urban: more than 100 POIs
//   - suburban: more than 30 POIs
//   - rural: otherwise
func Classify(poiCount int) string {
	switch {
	case poiCount > urbanPOIThreshold:
		return ClassUrban
	case poiCount > suburbanPOIThreshold:
		return ClassSuburban
	default:
		return ClassRural
	}
}

// DensityMultiplier returns the multiplier applied to the country base
// density for the given class.
func DensityMultiplier(class string) float64 {
	switch class {
	case ClassUrban:
		return urbanMultiplier
	case ClassSuburban:
		return suburbanMultiplier
	default:
		return ruralMultiplier
	}
}
