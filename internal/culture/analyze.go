package culture

import (
	"sort"
	"strings"

	"github.com/sells-group/site-scorer/internal/geo"
)

// Seasons.
const (
	SeasonSummer = "summer"
	SeasonWinter = "winter"
	SeasonSpring = "spring"
	SeasonFall   = "fall"
)

// Season returns the season of month (1-12) for the given hemisphere.
func Season(month int, northern bool) string {
	var s string
	switch month {
	case 6, 7, 8:
		s = SeasonSummer
	case 12, 1, 2:
		s = SeasonWinter
	case 3, 4, 5:
		s = SeasonSpring
	default:
		s = SeasonFall
	}
	if northern {
		return s
	}
	switch s {
	case SeasonSummer:
		return SeasonWinter
	case SeasonWinter:
		return SeasonSummer
	case SeasonSpring:
		return SeasonFall
	default:
		return SeasonSpring
	}
}

// RelevantCategories returns the categories whose mapping pattern occurs in
// the business type, in report order. With no match every category is
// relevant.
func RelevantCategories(businessType string) []string {
	bt := lower(businessType)
	set := make(map[string]bool)
	for _, m := range categoryMapping {
		if strings.Contains(bt, m.pattern) {
			for _, c := range m.categories {
				set[c] = true
			}
		}
	}
	if len(set) == 0 {
		return append([]string(nil), Categories...)
	}
	out := make([]string, 0, len(set))
	for _, c := range Categories {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

// CategoryWeights returns the weight per category for a business type.
// Categories not adjusted weigh 1.0.
func CategoryWeights(businessType string) map[string]float64 {
	bt := lower(businessType)
	w := make(map[string]float64, len(Categories))
	for _, c := range Categories {
		w[c] = 1.0
	}

	if containsAny(bt, "coffee", "cafe") {
		w["coffee"] = 3.0
		w["tea"] = 1.5
		w["dessert"] = 2.0
		w["cafe"] = 2.5
	}
	if strings.Contains(bt, "tea") {
		w["tea"] = 3.0
		w["coffee"] = 1.0
		w["dessert"] = 2.0
		w["cafe"] = 2.5
	}
	if strings.Contains(bt, "restaurant") {
		if containsAny(bt, "vegetarian", "vegan") {
			w["vegetarian"] = 3.0
			w["healthy"] = 2.5
		} else {
			w["nonveg"] = 2.5
			w["vegetarian"] = 1.5
		}
		if containsAny(bt, "fine", "luxury") {
			w["fine_dining"] = 3.0
			w["alcohol"] = 2.0
		} else {
			w["casual_dining"] = 2.5
		}
	}
	if containsAny(bt, "bar", "pub") {
		w["alcohol"] = 3.0
		w["casual_dining"] = 2.0
	}
	return w
}

// AnalyzeText scores keyword relevance per relevant category on a 0-10
// scale and returns the positive share of sentiment words. Every occurrence
// of a keyword counts; a sentiment word counts once per text. The ratio is
// 0.5 when no sentiment word appears.
func AnalyzeText(texts []string, businessType string) (map[string]float64, float64) {
	relevant := RelevantCategories(businessType)
	counts := make(map[string]int, len(relevant))
	total := 0
	positive, negative := 0, 0

	for _, text := range texts {
		if text == "" {
			continue
		}
		t := lower(text)
		for _, c := range relevant {
			for _, kw := range keywords[c] {
				if n := strings.Count(t, kw); n > 0 {
					counts[c] += n
					total += n
				}
			}
		}
		for _, w := range positiveWords {
			if strings.Contains(t, w) {
				positive++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(t, w) {
				negative++
			}
		}
	}

	relevance := make(map[string]float64, len(relevant))
	for _, c := range relevant {
		if total > 0 {
			relevance[c] = min(float64(counts[c])/float64(total)*20, 10)
		} else {
			relevance[c] = 0
		}
	}

	sentiment := 0.5
	if positive+negative > 0 {
		sentiment = float64(positive) / float64(positive+negative)
	}
	return relevance, sentiment
}

// Fit combines relevance and sentiment into the cultural fit score and
// applies the seasonal, regional and radius multipliers. The result is in
// [0,1].
func Fit(relevance map[string]float64, sentiment float64, businessType string, loc Location, radiusKM float64, month int) float64 {
	weights := CategoryWeights(businessType)
	var weighted, totalWeight float64
	for _, c := range Categories {
		score, ok := relevance[c]
		if !ok {
			continue
		}
		w, ok := weights[c]
		if !ok {
			w = 1.0
		}
		weighted += score * w
		totalWeight += w
	}

	category := 0.0
	if totalWeight > 0 {
		category = weighted / totalWeight / 10
	}
	adjusted := geo.Clamp(category+(sentiment-0.5)*0.3, 0, 1)
	score := 0.6*adjusted + 0.4*0.5

	score *= SeasonalMultiplier(businessType, month, loc.Latitude >= 0)
	score *= RegionalMultiplier(businessType, loc.Country)
	score *= RadiusMultiplier(radiusKM)
	return geo.Clamp(score, 0, 1)
}

// SeasonalMultiplier boosts cold items in summer and hot items in winter,
// and food businesses from October to December.
func SeasonalMultiplier(businessType string, month int, northern bool) float64 {
	bt := lower(businessType)
	m := 1.0
	switch Season(month, northern) {
	case SeasonSummer:
		if containsAny(bt, coldItems...) {
			m *= 1.3
		} else if containsAny(bt, hotItems...) {
			m *= 0.9
		}
	case SeasonWinter:
		if containsAny(bt, hotItems...) {
			m *= 1.2
		} else if containsAny(bt, coldWinterItems...) {
			m *= 0.8
		}
	}
	if month >= 10 && month <= 12 && containsAny(bt, festiveItems...) {
		m *= 1.1
	}
	return m
}

// RegionalMultiplier applies the first matching business pattern of every
// country whose name occurs in country.
func RegionalMultiplier(businessType, country string) float64 {
	bt := lower(businessType)
	c := lower(country)
	m := 1.0
	for _, region := range regionalPreferences {
		if !strings.Contains(c, region.country) {
			continue
		}
		for _, adj := range region.adjustments {
			if strings.Contains(bt, adj.pattern) {
				m *= adj.factor
				break
			}
		}
	}
	return m
}

// RadiusMultiplier favours localized analyses: ≤5 km ×1.05, ≤20 km ×1.0,
// ≤50 km ×0.95, beyond ×0.9.
func RadiusMultiplier(radiusKM float64) float64 {
	switch {
	case radiusKM <= 5:
		return 1.05
	case radiusKM <= 20:
		return 1.0
	case radiusKM <= 50:
		return 0.95
	default:
		return 0.9
	}
}

// topCategories returns up to n categories by descending score, ties by
// name.
func topCategories(relevance map[string]float64, n int) []string {
	names := make([]string, 0, len(relevance))
	for c := range relevance {
		names = append(names, c)
	}
	sort.Slice(names, func(i, j int) bool {
		if relevance[names[i]] != relevance[names[j]] {
			return relevance[names[i]] > relevance[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
