package geocode

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// DefaultGeoNamesURL is the public GeoNames endpoint.
const DefaultGeoNamesURL = "http://api.geonames.org"

type geonamesResponse struct {
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
	Status      *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

// GeoNames resolves coordinates to a country.
type GeoNames struct {
	base
	username string
}

// NewGeoNames creates a GeoNames client for the given account.
func NewGeoNames(username string, opts ...Option) *GeoNames {
	if username == "" {
		username = "demo"
	}
	return &GeoNames{base: newBase("geonames", DefaultGeoNamesURL, opts), username: username}
}

// Name implements ReverseGeocoder.
func (g *GeoNames) Name() string { return "geonames" }

// Reverse implements ReverseGeocoder. Only the country is resolved.
func (g *GeoNames) Reverse(ctx context.Context, lat, lon float64, _ int) (*Place, error) {
	params := url.Values{
		"lat":      {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng":      {strconv.FormatFloat(lon, 'f', -1, 64)},
		"username": {g.username},
		"type":     {"JSON"},
	}

	var resp geonamesResponse
	if err := g.getJSON(ctx, g.baseURL+"/countryCode?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != nil {
		return nil, eris.Errorf("geonames: %s (code %d)", resp.Status.Message, resp.Status.Value)
	}

	return &Place{
		Latitude:    lat,
		Longitude:   lon,
		CountryCode: upper(resp.CountryCode),
		Country:     resp.CountryName,
		Source:      g.Name(),
	}, nil
}
