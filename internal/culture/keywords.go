package culture

// Categories lists the keyword categories in report order.
var Categories = []string{
	"coffee", "tea", "vegetarian", "nonveg", "streetfood", "fastfood",
	"healthy", "dessert", "alcohol", "cafe", "fine_dining", "casual_dining",
}

var keywords = map[string][]string{
	"coffee":        {"coffee", "espresso", "latte", "cappuccino", "americano", "macchiato", "flat white", "café"},
	"tea":           {"tea", "chai", "green tea", "black tea", "matcha", "oolong", "herbal tea", "bubble tea", "boba"},
	"vegetarian":    {"vegetarian", "plant-based", "vegan", "veggie", "meat-free", "cruelty-free"},
	"nonveg":        {"chicken", "meat", "fish", "beef", "pork", "steak", "seafood", "lamb", "poultry", "bacon"},
	"streetfood":    {"street food", "tacos", "bbq", "kebab", "shawarma", "falafel", "food truck", "food stall"},
	"fastfood":      {"burger", "fries", "pizza", "sandwich", "hotdog", "fast food", "quick service"},
	"healthy":       {"salad", "organic", "gluten-free", "low-carb", "superfood", "wellness", "nutrition", "clean eating"},
	"dessert":       {"ice cream", "cake", "pastry", "donut", "pudding", "brownie", "sweet", "bakery", "patisserie"},
	"alcohol":       {"wine", "beer", "cocktail", "bar", "pub", "brewery", "spirits", "whiskey", "vodka"},
	"cafe":          {"cafe", "coffee shop", "tea house", "espresso bar", "pastry shop"},
	"fine_dining":   {"fine dining", "gourmet", "luxury restaurant", "chef's table", "michelin"},
	"casual_dining": {"casual dining", "family restaurant", "bistro", "brunch", "eatery"},
}

// categoryMapping selects relevant categories by business-type substring.
var categoryMapping = []struct {
	pattern    string
	categories []string
}{
	{"coffee", []string{"coffee", "cafe", "dessert"}},
	{"tea", []string{"tea", "cafe", "dessert"}},
	{"cafe", []string{"coffee", "tea", "cafe", "dessert", "healthy"}},
	{"restaurant", []string{"vegetarian", "nonveg", "streetfood", "fastfood", "healthy", "fine_dining", "casual_dining"}},
	{"bar", []string{"alcohol", "fastfood", "casual_dining"}},
	{"bakery", []string{"dessert", "healthy", "vegetarian"}},
	{"ice cream", []string{"dessert", "vegetarian"}},
	{"healthy", []string{"healthy", "vegetarian", "casual_dining"}},
	{"fast food", []string{"fastfood", "nonveg", "casual_dining"}},
	{"fine dining", []string{"fine_dining", "nonveg", "alcohol"}},
}

var positiveWords = []string{
	"good", "great", "excellent", "amazing", "love", "best",
	"popular", "favorite", "trending", "growth", "success", "demand",
}

var negativeWords = []string{
	"bad", "poor", "terrible", "hate", "worst", "avoid",
	"overpriced", "disappointing", "decline", "saturated", "competition",
}

// businessContext is keyed by the exact lower-cased business type.
var businessContext = map[string]string{
	"coffee shop": "Coffee culture varies significantly by region with local preferences for specific brewing styles",
	"tea house":   "Tea traditions differ globally with unique preparation methods in each culture",
	"restaurant":  "Culinary preferences are deeply influenced by local traditions and ingredients",
	"bar":         "Social drinking culture shows strong regional variations in preferences and customs",
}

type multiplier struct {
	pattern string
	factor  float64
}

// regionalPreferences is matched by country-name substring. Within a
// country only the first matching business pattern applies.
var regionalPreferences = []struct {
	country     string
	adjustments []multiplier
}{
	{"india", []multiplier{{"tea", 1.2}, {"coffee", 0.8}, {"vegetarian", 1.3}, {"nonveg", 0.9}}},
	{"italy", []multiplier{{"coffee", 1.4}, {"pizza", 1.5}, {"pasta", 1.4}, {"tea", 0.7}}},
	{"united states", []multiplier{{"coffee", 1.3}, {"fastfood", 1.2}, {"healthy", 1.1}}},
	{"united kingdom", []multiplier{{"tea", 1.4}, {"pub", 1.3}, {"fish", 1.2}}},
	{"japan", []multiplier{{"tea", 1.5}, {"healthy", 1.3}, {"seafood", 1.4}, {"coffee", 1.1}}},
	{"france", []multiplier{{"coffee", 1.3}, {"wine", 1.5}, {"bakery", 1.4}, {"tea", 0.8}}},
}

// Seasonal item groups matched against the business type.
var (
	coldItems       = []string{"ice cream", "dessert", "cold", "smoothie"}
	coldWinterItems = []string{"ice cream", "cold", "smoothie"}
	hotItems        = []string{"coffee", "tea", "hot", "soup"}
	festiveItems    = []string{"restaurant", "food", "cafe", "bar"}
)
