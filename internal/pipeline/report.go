package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/site-scorer/internal/competitor"
	"github.com/sells-group/site-scorer/internal/culture"
	"github.com/sells-group/site-scorer/internal/geo"
	"github.com/sells-group/site-scorer/internal/income"
	"github.com/sells-group/site-scorer/internal/market"
	"github.com/sells-group/site-scorer/internal/model"
	"github.com/sells-group/site-scorer/internal/population"
	"github.com/sells-group/site-scorer/internal/traffic"
)

// topCategoryCount is how many POI categories the traffic section ranks.
const topCategoryCount = 3

// Report is the combined analysis. Each section holds either its result or
// an ErrorSection.
type Report struct {
	RunID string       `json:"-"`
	Site  model.Site   `json:"-"`
	Steps []StepResult `json:"-"`

	Traffic     any `json:"Traffic_Score"`
	Market      any `json:"Market_Factor"`
	Population  any `json:"Population_Analysis"`
	Income      any `json:"Income_Data"`
	Competitors any `json:"Existing_Competitors"`
	Culture     any `json:"Cultural_Fit"`
}

// ErrorSection replaces the result of a failed step, and is the whole
// output when the analysis cannot start.
type ErrorSection struct {
	Error string `json:"error"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RankedCategory is one entry of the top POI categories.
type RankedCategory struct {
	Rank     int    `json:"rank"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TrafficSection is the traffic part of the report.
type TrafficSection struct {
	Coordinates      Coordinates      `json:"coordinates"`
	TrafficScore     float64          `json:"traffic_score"`
	TopPOICategories []RankedCategory `json:"top_poi_categories"`
	POIBreakdown     map[string]int   `json:"poi_breakdown"`
	Degraded         bool             `json:"degraded"`
}

// NewTrafficSection reshapes a traffic result.
func NewTrafficSection(center geo.Point, res *traffic.Result) TrafficSection {
	return TrafficSection{
		Coordinates:      Coordinates{Latitude: center.Lat, Longitude: center.Lon},
		TrafficScore:     res.TrafficScore,
		TopPOICategories: TopCategories(res.POIBreakdown, topCategoryCount),
		POIBreakdown:     res.POIBreakdown,
		Degraded:         res.Degraded,
	}
}

// TopCategories ranks the n largest non-zero categories. Ties keep the
// breakdown's category order.
func TopCategories(breakdown map[string]int, n int) []RankedCategory {
	names := append([]string(nil), traffic.Categories...)
	sort.SliceStable(names, func(i, j int) bool {
		return breakdown[names[i]] > breakdown[names[j]]
	})
	out := make([]RankedCategory, 0, n)
	for i, name := range names {
		if i >= n {
			break
		}
		if breakdown[name] > 0 {
			out = append(out, RankedCategory{Rank: i + 1, Category: name, Count: breakdown[name]})
		}
	}
	return out
}

// IncomeSection wraps the yearly income records.
type IncomeSection struct {
	Data []income.Record `json:"data"`
}

// CompetitorSection wraps the competitor summary.
type CompetitorSection struct {
	Data *competitor.Summary `json:"data"`
}

// CultureSection is the cultural-fit part of the report.
type CultureSection struct {
	Location         string   `json:"location"`
	BusinessType     string   `json:"business_type"`
	AnalysisRadiusKM float64  `json:"analysis_radius_km"`
	CulturalFitScore float64  `json:"cultural_fit_score"`
	SentimentRatio   float64  `json:"sentiment_ratio"`
	Insights         []string `json:"insights"`
}

// NewCultureSection reshapes a cultural-fit result; insights become bullets.
func NewCultureSection(res *culture.Result) CultureSection {
	insights := make([]string, len(res.Insights))
	for i, s := range res.Insights {
		insights[i] = "- " + s
	}
	return CultureSection{
		Location:         res.Location,
		BusinessType:     res.BusinessType,
		AnalysisRadiusKM: res.AnalysisRadiusKM,
		CulturalFitScore: res.CulturalFitScore,
		SentimentRatio:   res.SentimentRatio,
		Insights:         insights,
	}
}

// Failed returns the names of the steps that failed, in run order.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StepStatusFailed {
			out = append(out, s.Name)
		}
	}
	return out
}

// JSON renders the report indented by two spaces.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FormatReport renders a human-readable summary of the report.
func FormatReport(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Site Analysis: %s\n", r.Site.BusinessType)
	fmt.Fprintf(&b, "Location: %v, %v (radius %v km)\n", r.Site.Latitude, r.Site.Longitude, r.Site.RadiusKM)
	fmt.Fprintf(&b, "Run: %s\n\n", r.RunID)

	b.WriteString("## Steps\n")
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "- %s: %s (%dms)\n", s.Name, s.Status, s.Duration)
		if s.Error != "" {
			fmt.Fprintf(&b, "  Error: %s\n", s.Error)
		}
	}
	b.WriteString("\n")

	b.WriteString("## Scores\n")
	if t, ok := r.Traffic.(TrafficSection); ok {
		fmt.Fprintf(&b, "- Traffic score: %.1f / 100\n", t.TrafficScore)
		for _, c := range t.TopPOICategories {
			fmt.Fprintf(&b, "  %d. %s (%d)\n", c.Rank, c.Category, c.Count)
		}
	}
	if m, ok := r.Market.(*market.Result); ok {
		fmt.Fprintf(&b, "- Market factor: %.3f (confidence %.2f)\n", m.MarketFactor, m.Confidence)
		fmt.Fprintf(&b, "  %s\n", m.Notes)
	}
	if p, ok := r.Population.(*population.Result); ok {
		fmt.Fprintf(&b, "- Demand multiplier: %.2f (population %d, %s)\n", p.Multiplier, p.Population, p.PopulationSource)
		fmt.Fprintf(&b, "  %s\n", p.Notes)
	}
	if inc, ok := r.Income.(IncomeSection); ok {
		for _, rec := range inc.Data {
			fmt.Fprintf(&b, "- Income %s: %.2f (confidence %.0f%%)\n", rec.Year, rec.Value, rec.ConfidenceScore)
		}
	}
	if c, ok := r.Competitors.(CompetitorSection); ok && c.Data != nil {
		fmt.Fprintf(&b, "- Competitors: %d (%s)\n", c.Data.TotalCompetitors, c.Data.Status)
		if c.Data.Statistics != nil {
			fmt.Fprintf(&b, "  Closest: %s at %.0fm\n", c.Data.Statistics.Closest.Name, c.Data.Statistics.Closest.Distance)
		}
	}
	if c, ok := r.Culture.(CultureSection); ok {
		fmt.Fprintf(&b, "- Cultural fit: %.3f in %s\n", c.CulturalFitScore, c.Location)
		for _, s := range c.Insights {
			fmt.Fprintf(&b, "  %s\n", s)
		}
	}
	return b.String()
}
