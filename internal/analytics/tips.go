package analytics

import (
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

const StartTrackingTip = "Start tracking your expenses to get personalized saving tips!"

const (
	FoodTip           = "You're spending a lot on food. Consider meal planning and cooking at home more often."
	TransportTip      = "Your transportation costs are high. Try carpooling, public transit, or biking when possible."
	MiscTip           = "You have many miscellaneous expenses. Try categorizing them more specifically to identify saving opportunities."
	CategorizeMoreTip = "Try to categorize your expenses more specifically to get better insights into your spending habits."
)

// GenericTips replace the rule-based tips when no rule fires.
var GenericTips = []string{
	"Track your expenses regularly to get more personalized tips.",
	"Set a budget for each spending category and try to stick to it.",
	"Consider saving a fixed percentage of your income each month.",
	"Review your subscriptions and cancel those you don't use often.",
}

// SupplementaryTips is the pool one extra tip is drawn from on every call.
var SupplementaryTips = []string{
	"Save receipts for major purchases for warranty purposes.",
	"Consider using cash for discretionary spending to better control your budget.",
	"Pay off high-interest debt first to save money on interest payments.",
	"Build an emergency fund to cover 3-6 months of expenses.",
}

// shareRule fires when a category's share of the total exceeds a threshold.
type shareRule struct {
	category  string
	threshold decimal.Decimal
	tip       string
}

var shareRules = []shareRule{
	{category: core.CategoryFood, threshold: decimal.NewFromInt(30), tip: FoodTip},
	{category: core.CategoryTransport, threshold: decimal.NewFromInt(20), tip: TransportTip},
	{category: core.CategoryMisc, threshold: decimal.NewFromInt(20), tip: MiscTip},
}

// fewCategories is the distinct-category count at or below which the
// categorize-more tip fires.
const fewCategories = 2

// Picker returns a uniformly distributed int in [0, n).
type Picker interface {
	IntN(n int) int
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(n int) int

func (f PickerFunc) IntN(n int) int { return f(n) }

// lockedRand serializes access to a seeded generator so one Advisor can be
// shared across requests.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Advisor produces spending tips. The supplementary tip is drawn from picker.
type Advisor struct {
	picker Picker
}

// NewAdvisor returns an Advisor drawing from picker. A nil picker uses the
// process-wide generator of math/rand/v2.
func NewAdvisor(picker Picker) *Advisor {
	if picker == nil {
		picker = PickerFunc(rand.IntN)
	}
	return &Advisor{picker: picker}
}

// NewSeededAdvisor returns an Advisor whose supplementary picks are reproducible.
func NewSeededAdvisor(seed uint64) *Advisor {
	return NewAdvisor(&lockedRand{r: rand.New(rand.NewPCG(seed, seed))})
}

// Tips evaluates the threshold rules over category shares. The result always
// has at least one element; for non-empty spending the last element comes from
// SupplementaryTips.
func (a *Advisor) Tips(expenses []core.Expense) []string {
	if len(expenses) == 0 {
		return []string{StartTrackingTip}
	}
	totals := CategoryTotals(expenses)
	if !totals.Total.IsPositive() {
		return []string{StartTrackingTip}
	}

	var tips []string
	for _, rule := range shareRules {
		if totals.Share(rule.category).GreaterThan(rule.threshold) {
			tips = append(tips, rule.tip)
		}
	}
	if totals.Len() <= fewCategories {
		tips = append(tips, CategorizeMoreTip)
	}

	if len(tips) == 0 {
		tips = append(tips, GenericTips...)
	}

	return append(tips, a.supplementary())
}

func (a *Advisor) supplementary() string {
	i := a.picker.IntN(len(SupplementaryTips))
	if i < 0 || i >= len(SupplementaryTips) {
		i = 0
	}
	return SupplementaryTips[i]
}
