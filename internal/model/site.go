// Package model defines the analysis input shared by every scorer.
package model

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/site-scorer/internal/geo"
)

// Defaults applied by the analyze command and the HTTP endpoint.
const (
	DefaultLatitude     = 40.7128
	DefaultLongitude    = -74.0060
	DefaultBusinessType = "supermarket"
	DefaultRadiusKM     = 2.0
)

// MaxBusinessTypeLen bounds the business type label.
const MaxBusinessTypeLen = 50

// forbiddenTypeChars may not appear in a business type used in an Overpass
// filter.
const forbiddenTypeChars = `"';()[]{}~*`

// Site is one analysis request.
type Site struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	BusinessType string  `json:"business_type"`
	RadiusKM     float64 `json:"radius_km"`
}

// ValidationError is returned when an input is rejected before any network
// call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Point returns the site coordinate.
func (s Site) Point() geo.Point {
	return geo.Point{Lat: s.Latitude, Lon: s.Longitude}
}

// RadiusM returns the radius in metres.
func (s Site) RadiusM() float64 {
	return s.RadiusKM * 1000
}

// Validate checks coordinate ranges, the business type and the radius.
func (s Site) Validate() error {
	if math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: fmt.Sprintf("%v is outside [-90, 90]", s.Latitude)}
	}
	if math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: fmt.Sprintf("%v is outside [-180, 180]", s.Longitude)}
	}
	bt := strings.TrimSpace(s.BusinessType)
	if bt == "" {
		return &ValidationError{Field: "business_type", Message: "must not be empty"}
	}
	if len(bt) > MaxBusinessTypeLen {
		return &ValidationError{Field: "business_type", Message: fmt.Sprintf("longer than %d characters", MaxBusinessTypeLen)}
	}
	if math.IsNaN(s.RadiusKM) || math.IsInf(s.RadiusKM, 0) || s.RadiusKM <= 0 {
		return &ValidationError{Field: "radius_km", Message: fmt.Sprintf("%v must be a positive number", s.RadiusKM)}
	}
	return nil
}

// ValidateBusinessType checks a label that will be interpolated into an
// Overpass filter: 1 to 50 characters and none of " ' ; ( ) [ ] { } ~ *.
func ValidateBusinessType(bt string) error {
	if bt == "" || len(bt) > MaxBusinessTypeLen {
		return &ValidationError{Field: "business_type", Message: fmt.Sprintf("%q must be 1-%d characters", bt, MaxBusinessTypeLen)}
	}
	if strings.ContainsAny(bt, forbiddenTypeChars) {
		return &ValidationError{Field: "business_type", Message: fmt.Sprintf("%q contains forbidden characters", bt)}
	}
	return nil
}

var lower = cases.Lower(language.Und)

// NormalizeBusinessType trims and lower-cases a label for table lookups.
func NormalizeBusinessType(bt string) string {
	return lower.String(strings.TrimSpace(bt))
}
