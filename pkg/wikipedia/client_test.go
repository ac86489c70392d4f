package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-scorer/internal/resilience"
)

func TestSearch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"batchcomplete":"","query":{"searchinfo":{"totalhits":2},"search":[
			{"ns":0,"title":"Coffee in India","pageid":1,"snippet":"<span class=\"searchmatch\">Coffee</span> production in &quot;South&quot; India"},
			{"ns":0,"title":"Chennai","pageid":2,"snippet":"capital of Tamil Nadu"}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL))
	results, err := c.Search(context.Background(), "Chennai cafe within 1km radius", 3)
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "search", q.Get("list"))
	assert.Equal(t, "Chennai cafe within 1km radius", q.Get("srsearch"))
	assert.Equal(t, "3", q.Get("srlimit"))

	require.Len(t, results, 2)
	assert.Equal(t, "Coffee in India", results[0].Title)
	assert.Equal(t, `Coffee production in "South" India`, results[0].Snippet)
	assert.Equal(t, "capital of Tamil Nadu", results[1].Snippet)
}

func TestExtract(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"batchcomplete":"","query":{"pages":{"12345":{"pageid":12345,"ns":0,"title":"Chennai","extract":"Chennai is the capital city of Tamil Nadu."}}}}`))
	}))
	defer srv.Close()

	page, err := NewClient(WithEndpoint(srv.URL)).Extract(context.Background(), "Chennai")
	require.NoError(t, err)

	q := got.URL.Query()
	assert.Equal(t, "extracts", q.Get("prop"))
	assert.Equal(t, "1", q.Get("redirects"))
	assert.Equal(t, "Chennai", q.Get("titles"))
	assert.Equal(t, "Chennai", page.Title)
	assert.Equal(t, "Chennai is the capital city of Tamil Nadu.", page.Extract)
}

func TestExtract_MissingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"ns":0,"title":"Nowhere","missing":""}}}}`))
	}))
	defer srv.Close()

	page, err := NewClient(WithEndpoint(srv.URL)).Extract(context.Background(), "Nowhere")
	require.NoError(t, err)
	assert.Equal(t, "Nowhere", page.Title)
	assert.Empty(t, page.Extract)
}

func TestGet_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Search(context.Background(), "x", 3)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<!doctype html>`))
	}))
	defer bad.Close()

	_, err = NewClient(WithEndpoint(bad.URL)).Extract(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wikipedia: parse response")
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain   text\n here", "plain text here"},
		{`<span class="searchmatch">Tea</span> house &amp; garden`, "Tea house & garden"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripMarkup(tt.in))
	}
}
