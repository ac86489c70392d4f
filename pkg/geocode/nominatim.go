package geocode

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

// DefaultNominatimURL is the public Nominatim endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimAddress struct {
	CountryCode string `json:"country_code"`
	Country     string `json:"country"`
	State       string `json:"state"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	Postcode    string `json:"postcode"`
}

type nominatimReverseResponse struct {
	DisplayName string            `json:"display_name"`
	Address     *nominatimAddress `json:"address"`
	Error       string            `json:"error"`
}

type nominatimSearchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim is the OpenStreetMap geocoder.
type Nominatim struct {
	base
}

// NewNominatim creates a Nominatim client.
func NewNominatim(opts ...Option) *Nominatim {
	return &Nominatim{base: newBase("nominatim", DefaultNominatimURL, opts)}
}

// Name implements ReverseGeocoder.
func (n *Nominatim) Name() string { return "nominatim" }

// Reverse implements ReverseGeocoder.
func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64, zoom int) (*Place, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {strconv.Itoa(zoom)},
		"addressdetails": {"1"},
	}

	var resp nominatimReverseResponse
	if err := n.getJSON(ctx, n.baseURL+"/reverse?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, eris.Wrapf(ErrNotFound, "nominatim: %s", resp.Error)
	}

	p := &Place{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: resp.DisplayName,
		Source:      n.Name(),
	}
	if a := resp.Address; a != nil {
		p.CountryCode = upper(a.CountryCode)
		p.Country = a.Country
		p.Region = firstNonEmpty(a.State, a.Region)
		p.City = firstNonEmpty(a.City, a.Town, a.Village)
		p.PostalCode = a.Postcode
	}
	if p.DisplayName == "" {
		p.DisplayName = "Unknown location"
	}
	return p, nil
}

// Search implements Searcher and returns the best match for query.
func (n *Nominatim) Search(ctx context.Context, query string) (*Place, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}

	var results []nominatimSearchResult
	if err := n.getJSON(ctx, n.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "nominatim: %q", query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse lat")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: parse lon")
	}
	return &Place{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: results[0].DisplayName,
		Source:      n.Name(),
	}, nil
}
