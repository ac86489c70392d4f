package geocode

import (
	"context"
	"net/url"
	"strconv"
)

// DefaultBigDataCloudURL is the public BigDataCloud endpoint.
const DefaultBigDataCloudURL = "https://api.bigdatacloud.net/data"

type bigDataCloudResponse struct {
	CountryCode          string `json:"countryCode"`
	CountryName          string `json:"countryName"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	City                 string `json:"city"`
	Locality             string `json:"locality"`
	Postcode             string `json:"postcode"`
}

// BigDataCloud is the free client-side reverse geocoder.
type BigDataCloud struct {
	base
}

// NewBigDataCloud creates a BigDataCloud client.
func NewBigDataCloud(opts ...Option) *BigDataCloud {
	return &BigDataCloud{base: newBase("bigdatacloud", DefaultBigDataCloudURL, opts)}
}

// Name implements ReverseGeocoder.
func (b *BigDataCloud) Name() string { return "bigdatacloud" }

// Reverse implements ReverseGeocoder.
func (b *BigDataCloud) Reverse(ctx context.Context, lat, lon float64, _ int) (*Place, error) {
	params := url.Values{
		"latitude":         {strconv.FormatFloat(lat, 'f', -1, 64)},
		"longitude":        {strconv.FormatFloat(lon, 'f', -1, 64)},
		"localityLanguage": {"en"},
	}

	var resp bigDataCloudResponse
	if err := b.getJSON(ctx, b.baseURL+"/reverse-geocode-client?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	return &Place{
		Latitude:    lat,
		Longitude:   lon,
		CountryCode: upper(resp.CountryCode),
		Country:     resp.CountryName,
		Region:      resp.PrincipalSubdivision,
		City:        firstNonEmpty(resp.City, resp.Locality),
		PostalCode:  resp.Postcode,
		Source:      b.Name(),
	}, nil
}
