// Package culture estimates how well a business type fits local tastes by
// scoring keyword relevance and sentiment in descriptive text about the
// area, then applying seasonal, regional and radius multipliers.
package culture

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/pkg/geocode"
	"github.com/sells-group/site-scorer/pkg/wikipedia"
)

// DefaultRadiusKM is used when the caller passes no radius.
const DefaultRadiusKM = 10.0

const (
	locationZoom     = 10
	unknownLocation  = "Unknown location"
	wikiSearchLimit  = 3
	wikiPagesUsed    = 2
	extractMaxRunes  = 500
	defaultPlaceName = "this location"
)

var lowerCaser = cases.Lower(language.Und)

func lower(s string) string { return lowerCaser.String(s) }

// Location is the reverse-geocoded area description.
type Location struct {
	FormattedAddress string  `json:"formatted_address"`
	Country          string  `json:"country"`
	Region           string  `json:"region"`
	City             string  `json:"city"`
	PostalCode       string  `json:"postal_code"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
}

// Result is the cultural fit for one site.
type Result struct {
	CulturalFitScore float64            `json:"cultural_fit_score"`
	Location         string             `json:"location"`
	Details          Location           `json:"location_details"`
	BusinessType     string             `json:"business_type"`
	AnalysisRadiusKM float64            `json:"analysis_radius_km"`
	RelevanceScores  map[string]float64 `json:"relevance_scores"`
	SentimentRatio   float64            `json:"sentiment_ratio"`
	Insights         []string           `json:"insights"`
	ContentAnalyzed  int                `json:"content_analyzed"`
	Season           string             `json:"season"`
}

// Scorer computes cultural fit.
type Scorer struct {
	geocoder geocode.ReverseGeocoder
	wiki     wikipedia.Client
	now      func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the clock used to pick the month.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// New creates a Scorer. A nil wiki client skips encyclopedia text.
func New(g geocode.ReverseGeocoder, wiki wikipedia.Client, opts ...Option) *Scorer {
	s := &Scorer{geocoder: g, wiki: wiki, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the cultural fit of businessType around center. Failing to
// resolve the location fails the call; missing encyclopedia text does not.
func (s *Scorer) Score(ctx context.Context, center geo.Point, businessType string, radiusKM float64) (*Result, error) {
	if !center.Valid() {
		return nil, eris.Errorf("culture: invalid coordinate (%v, %v)", center.Lat, center.Lon)
	}
	if strings.TrimSpace(businessType) == "" {
		return nil, eris.New("culture: business type is required")
	}
	if radiusKM <= 0 {
		radiusKM = DefaultRadiusKM
	}

	loc, err := s.location(ctx, center)
	if err != nil {
		return nil, err
	}

	month := int(s.now().Month())
	texts := s.gatherTexts(ctx, loc, businessType, radiusKM, month)
	relevance, sentiment := AnalyzeText(texts, businessType)
	fit := Fit(relevance, sentiment, businessType, loc, radiusKM, month)

	res := &Result{
		CulturalFitScore: geo.Round(fit, 3),
		Location:         loc.FormattedAddress,
		Details:          loc,
		BusinessType:     businessType,
		AnalysisRadiusKM: radiusKM,
		RelevanceScores:  relevance,
		SentimentRatio:   sentiment,
		Insights:         Insights(relevance, fit, businessType, loc, sentiment, radiusKM, month),
		ContentAnalyzed:  len(texts),
		Season:           Season(month, loc.Latitude >= 0),
	}

	zap.L().Info("culture: score computed",
		zap.Float64("cultural_fit_score", res.CulturalFitScore),
		zap.String("country", loc.Country),
		zap.Int("texts", len(texts)),
		zap.Float64("sentiment_ratio", sentiment),
	)
	return res, nil
}

func (s *Scorer) location(ctx context.Context, center geo.Point) (Location, error) {
	if s.geocoder == nil {
		return Location{}, eris.New("culture: no reverse geocoder")
	}
	place, err := s.geocoder.Reverse(ctx, center.Lat, center.Lon, locationZoom)
	if err != nil {
		return Location{}, eris.Wrap(err, "culture: resolve location")
	}
	loc := Location{
		FormattedAddress: place.DisplayName,
		Country:          place.Country,
		Region:           place.Region,
		City:             place.City,
		PostalCode:       place.PostalCode,
		Latitude:         center.Lat,
		Longitude:        center.Lon,
	}
	if loc.FormattedAddress == "" {
		loc.FormattedAddress = unknownLocation
	}
	return loc, nil
}

// gatherTexts collects encyclopedia extracts plus generated sentences about
// the location, deduplicated and sorted.
func (s *Scorer) gatherTexts(ctx context.Context, loc Location, businessType string, radiusKM float64, month int) []string {
	var texts []string
	name := loc.City
	if name == "" {
		name = loc.Region
	}
	texts = append(texts, s.wikipediaTexts(ctx, name, businessType, radiusKM)...)
	texts = append(texts, GeneratedTexts(loc, businessType, radiusKM, month)...)

	if loc.City != "" && loc.Country != "" {
		texts = append(texts, loc.City+", "+loc.Country+
			" is known for its diverse local culture and business environment "+areaContext(radiusKM))
	}
	if ctxText, ok := businessContext[lower(businessType)]; ok {
		texts = append(texts, ctxText)
	}
	return dedupe(texts)
}

// wikipediaTexts returns up to two "title: extract..." texts. Any failure
// yields no texts.
func (s *Scorer) wikipediaTexts(ctx context.Context, locationName, businessType string, radiusKM float64) []string {
	if s.wiki == nil || strings.TrimSpace(locationName) == "" {
		return nil
	}
	query := strings.TrimSpace(locationName + " " + businessType + " " + searchRadiusContext(radiusKM))
	results, err := s.wiki.Search(ctx, query, wikiSearchLimit)
	if err != nil {
		zap.L().Warn("culture: wikipedia search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(results) > wikiPagesUsed {
		results = results[:wikiPagesUsed]
	}

	var texts []string
	for _, r := range results {
		page, err := s.wiki.Extract(ctx, r.Title)
		if err != nil {
			zap.L().Warn("culture: wikipedia extract failed", zap.String("title", r.Title), zap.Error(err))
			continue
		}
		switch {
		case page.Extract != "":
			texts = append(texts, page.Title+": "+truncateRunes(page.Extract, extractMaxRunes)+"...")
		case r.Snippet != "":
			texts = append(texts, r.Title+": "+r.Snippet)
		}
	}
	return texts
}

// GeneratedTexts returns the sentences synthesized from the country, the
// business type and the month.
func GeneratedTexts(loc Location, businessType string, radiusKM float64, month int) []string {
	country := lower(loc.Country)
	city := lower(loc.City)
	bt := lower(businessType)
	rc := localContext(radiusKM)
	var texts []string

	switch {
	case strings.Contains(country, "india"):
		texts = append(texts, city+" is known for its vibrant food culture with diverse culinary traditions "+rc)
		if strings.Contains(bt, "tea") {
			texts = append(texts, "Chai is an integral part of daily life across India with strong cultural significance "+rc)
		}
		if strings.Contains(bt, "coffee") {
			texts = append(texts, "Coffee culture is growing rapidly in urban areas of India "+rc)
		}
	case strings.Contains(country, "italy"):
		texts = append(texts, city+" features rich culinary heritage with emphasis on traditional recipes "+rc)
		if strings.Contains(bt, "coffee") {
			texts = append(texts, "Italian coffee culture is world-renowned with espresso being a daily ritual "+rc)
		}
	case strings.Contains(country, "usa") || strings.Contains(country, "united states"):
		texts = append(texts, city+" has diverse dining options ranging from fast food to fine dining "+rc)
	case strings.Contains(country, "japan"):
		texts = append(texts, city+" offers unique culinary experiences blending tradition and innovation "+rc)
		if strings.Contains(bt, "tea") {
			texts = append(texts, "Japanese tea ceremony culture influences modern tea consumption patterns "+rc)
		}
	}

	switch month {
	case 12, 1, 2:
		texts = append(texts, "Winter season brings preference for warm beverages and comfort foods "+rc)
	case 6, 7, 8:
		texts = append(texts, "Summer months increase demand for cold drinks and refreshing options "+rc)
	}
	return texts
}

// Insights renders the ranked human-readable findings.
func Insights(relevance map[string]float64, fit float64, businessType string, loc Location, sentiment, radiusKM float64, month int) []string {
	rc := localContext(radiusKM)
	place := loc.City
	if place == "" {
		place = defaultPlaceName
	}

	var tier string
	switch {
	case fit >= 0.7:
		tier = "Excellent"
	case fit >= 0.5:
		tier = "Good"
	case fit >= 0.3:
		tier = "Moderate"
	default:
		tier = "Poor"
	}
	insights := []string{
		tier + " cultural fit (" + strconv.FormatFloat(fit*100, 'f', 1, 64) + "%) for a " + businessType + " in " + place + " " + rc,
	}

	for _, c := range topCategories(relevance, 3) {
		score := relevance[c]
		label := strings.ReplaceAll(c, "_", " ")
		formatted := strconv.FormatFloat(score, 'f', 1, 64)
		switch {
		case score > 5:
			insights = append(insights, "Strong local interest in "+label+" (score: "+formatted+"/10) "+rc)
		case score > 2:
			insights = append(insights, "Moderate local interest in "+label+" (score: "+formatted+"/10) "+rc)
		}
	}

	switch {
	case sentiment > 0.7:
		insights = append(insights, "Very positive sentiment detected in local content "+rc)
	case sentiment > 0.6:
		insights = append(insights, "Generally positive sentiment detected in local content "+rc)
	case sentiment < 0.4:
		insights = append(insights, "Some negative sentiment detected in local content "+rc)
	}

	insights = append(insights, "Currently in "+Season(month, loc.Latitude >= 0)+" season - consider seasonal offerings "+rc)

	if loc.Country != "" {
		insights = append(insights, "Analysis includes regional preferences for "+loc.Country+" "+rc)
	}

	switch {
	case radiusKM <= 5:
		insights = append(insights, "Analysis focused on a very localized area (hyper-local)")
	case radiusKM <= 20:
		insights = append(insights, "Analysis focused on the immediate local area")
	case radiusKM <= 50:
		insights = append(insights, "Analysis covers a broader regional area")
	default:
		insights = append(insights, "Analysis covers a wide geographic region")
	}
	return insights
}

func formatKM(r float64) string {
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// localContext is used by generated sentences and insights.
func localContext(radiusKM float64) string {
	if radiusKM > 0 {
		return "within " + formatKM(radiusKM) + "km radius"
	}
	return "in the local area"
}

// areaContext is used by the city sentence.
func areaContext(radiusKM float64) string {
	if radiusKM > 0 {
		return "within a " + formatKM(radiusKM) + "km radius"
	}
	return "in the area"
}

// searchRadiusContext is appended to the encyclopedia query.
func searchRadiusContext(radiusKM float64) string {
	if radiusKM > 0 {
		return "within " + formatKM(radiusKM) + "km radius"
	}
	return ""
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func dedupe(texts []string) []string {
	set := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if _, ok := set[t]; ok {
			continue
		}
		set[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
