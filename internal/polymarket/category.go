package polymarket

import "strings"

// Market categories used by the category allow-list.
const (
	CategoryPolitics  = "Politics"
	CategoryFinancial = "Financial"
	CategoryExcluded  = "Excluded"
	CategoryOther     = "Other"
)

var politicsKeywords = []string{
	"trump", "biden", "president", "congress", "shutdown", "government",
	"election", "senate", "speaker", "vote", "impeach", "democrat",
	"republican", "political", "cabinet", "bill", "veto",
}

var financialKeywords = []string{
	"bank failure", "fdic", "bank seizure", "silicon valley bank",
	"svb", "first republic", "signature bank", "bailout", "banking crisis",
	"fed", "federal reserve", "interest rate", "recession",
}

var excludeKeywords = []string{
	"bitcoin", "btc", "crypto", "ethereum", "eth", "gold", "silver",
	"game", "nfl", "nba", "sports", "super bowl", "championship",
	"movie", "oscar", "grammy", "award", "actor", "actress",
}

// Categorize buckets a market by keywords in its question text.
func Categorize(question string) string {
	q := strings.ToLower(question)

	if containsAny(q, politicsKeywords) && !containsAny(q, excludeKeywords) {
		return CategoryPolitics
	}
	if containsAny(q, financialKeywords) {
		return CategoryFinancial
	}
	if containsAny(q, excludeKeywords) {
		return CategoryExcluded
	}
	return CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
