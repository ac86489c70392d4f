package geocode

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoNamesReverse(t *testing.T) {
	var got *http.Request
	srv := newJSONServer(t, http.StatusOK, `{"languages":"it","distance":"0","countryCode":"IT","countryName":"Italy"}`,
		func(r *http.Request) { got = r })

	place, err := NewGeoNames("tester", WithBaseURL(srv.URL)).Reverse(context.Background(), 41.9, 12.5, 10)
	require.NoError(t, err)

	assert.Equal(t, "/countryCode", got.URL.Path)
	assert.Equal(t, "tester", got.URL.Query().Get("username"))
	assert.Equal(t, "12.5", got.URL.Query().Get("lng"))
	assert.Equal(t, "JSON", got.URL.Query().Get("type"))
	assert.Equal(t, "IT", place.CountryCode)
	assert.Equal(t, "Italy", place.Country)
	assert.Equal(t, "geonames", place.Source)
}

func TestGeoNamesReverse_StatusError(t *testing.T) {
	srv := newJSONServer(t, http.StatusOK, `{"status":{"message":"daily limit exceeded","value":18}}`, nil)

	_, err := NewGeoNames("", WithBaseURL(srv.URL)).Reverse(context.Background(), 41.9, 12.5, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily limit exceeded")
}

func TestBigDataCloudReverse(t *testing.T) {
	var got *http.Request
	srv := newJSONServer(t, http.StatusOK, `{
		"countryCode": "JP", "countryName": "Japan",
		"principalSubdivision": "Tokyo", "city": "", "locality": "Shibuya", "postcode": "150-0002"
	}`, func(r *http.Request) { got = r })

	place, err := NewBigDataCloud(WithBaseURL(srv.URL)).Reverse(context.Background(), 35.66, 139.70, 10)
	require.NoError(t, err)

	assert.Equal(t, "/reverse-geocode-client", got.URL.Path)
	assert.Equal(t, "en", got.URL.Query().Get("localityLanguage"))
	assert.Equal(t, "JP", place.CountryCode)
	assert.Equal(t, "Shibuya", place.City)
	assert.Equal(t, "Tokyo", place.Region)
	assert.Equal(t, "bigdatacloud", place.Source)
}
