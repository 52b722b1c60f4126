package domain

// Category names. The set is closed: the keyword rules and the fallback
// classifier may only produce these values.
const (
	CategoryFoodDining     = "food_dining"
	CategoryGroceries      = "groceries"
	CategoryTransportation = "transportation"
	CategoryShopping       = "shopping"
	CategoryBillsUtilities = "bills_utilities"
	CategoryEntertainment  = "entertainment"
	CategoryHealthcare     = "healthcare"
	CategoryATMCash        = "atm_cash"
	CategoryIncome         = "income"
	CategoryFees           = "fees"
	CategoryOther          = "other"

	// CategoryUncategorized marks a transaction no stage has classified yet.
	CategoryUncategorized = "uncategorized"
)

// VocabularyEntry is one category the external classifier may choose.
type VocabularyEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultVocabulary is the ordered category list offered to the external
// classifier. atm_cash is absent since cash withdrawals are always
// caught by keywords, so the model is never asked about them.
func DefaultVocabulary() []VocabularyEntry {
	return []VocabularyEntry{
		{CategoryFoodDining, "Restaurants, coffee shops, food delivery, dining out"},
		{CategoryGroceries, "Grocery stores, supermarkets, food shopping"},
		{CategoryTransportation, "Gas stations, rideshare, public transit, car expenses"},
		{CategoryShopping, "Retail purchases, online shopping, clothing, electronics"},
		{CategoryBillsUtilities, "Electric, water, internet, phone bills, utilities"},
		{CategoryEntertainment, "Streaming services, movies, games, events, recreation"},
		{CategoryHealthcare, "Medical, dental, pharmacy, health-related expenses"},
		{CategoryIncome, "Salary deposits, interest, refunds, incoming transfers"},
		{CategoryFees, "Bank fees, penalties, service charges, maintenance fees"},
		{CategoryOther, "Transactions that don't clearly fit other categories"},
	}
}

var knownCategories = map[string]bool{
	CategoryFoodDining:     true,
	CategoryGroceries:      true,
	CategoryTransportation: true,
	CategoryShopping:       true,
	CategoryBillsUtilities: true,
	CategoryEntertainment:  true,
	CategoryHealthcare:     true,
	CategoryATMCash:        true,
	CategoryIncome:         true,
	CategoryFees:           true,
	CategoryOther:          true,
}

// IsKnownCategory reports whether name belongs to the closed category set.
// The uncategorized sentinel is not a category.
func IsKnownCategory(name string) bool {
	return knownCategories[name]
}
