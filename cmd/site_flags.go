package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/pkg/geocode"
)

// siteFlags are the location flags shared by analyze and the per-scorer
// commands.
type siteFlags struct {
	lat          float64
	lon          float64
	businessType string
	radiusKM     float64
	place        string
}

func (f *siteFlags) register(cmd *cobra.Command, defaultRadiusKM float64) {
	cmd.Flags().Float64Var(&f.lat, "lat", model.DefaultLatitude, "site latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", model.DefaultLongitude, "site longitude")
	cmd.Flags().StringVar(&f.businessType, "business-type", model.DefaultBusinessType, "business type (OSM shop or amenity value)")
	cmd.Flags().Float64Var(&f.radiusKM, "radius-km", defaultRadiusKM, "analysis radius in kilometres")
	cmd.Flags().StringVar(&f.place, "place", "", "place name to geocode instead of --lat/--lon")
}

// site builds the site from the flags, or from positional
// LAT LON TYPE RADIUS arguments when present.
func (f *siteFlags) site(args []string) (model.Site, error) {
	s := model.Site{
		Latitude:     f.lat,
		Longitude:    f.lon,
		BusinessType: strings.TrimSpace(f.businessType),
		RadiusKM:     f.radiusKM,
	}
	if len(args) == 0 {
		return s, nil
	}

	var err error
	if s.Latitude, err = parseNumber("latitude", args[0]); err != nil {
		return s, err
	}
	if s.Longitude, err = parseNumber("longitude", args[1]); err != nil {
		return s, err
	}
	s.BusinessType = strings.TrimSpace(args[2])
	if s.RadiusKM, err = parseNumber("radius_km", args[3]); err != nil {
		return s, err
	}
	return s, nil
}

// resolve replaces the coordinate with the geocoded --place, if set.
func (f *siteFlags) resolve(ctx context.Context, s model.Site, searcher geocode.Searcher) (model.Site, error) {
	if f.place == "" {
		return s, nil
	}
	p, err := searcher.Search(ctx, f.place)
	if err != nil {
		return s, eris.Wrapf(err, "geocode place %q", f.place)
	}
	zap.L().Info("resolved place",
		zap.String("place", f.place),
		zap.String("display_name", p.DisplayName),
		zap.Float64("lat", p.Latitude),
		zap.Float64("lon", p.Longitude),
	)
	s.Latitude = p.Latitude
	s.Longitude = p.Longitude
	return s, nil
}

func parseNumber(field, v string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &model.ValidationError{Field: field, Message: strconv.Quote(v) + " is not a number"}
	}
	return n, nil
}

// siteArgs accepts either no positional arguments or exactly
// LAT LON TYPE RADIUS.
func siteArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 4 {
		return eris.Errorf("expected 0 or 4 arguments (LAT LON TYPE RADIUS), got %d", len(args))
	}
	return nil
}
