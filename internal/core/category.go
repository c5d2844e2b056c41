package core

// Category is a closed set of transaction categories. Every category belongs
// to exactly one transaction type; the classification lives in categoryTable.
type Category string

const (
	Salary      Category = "SALARY"
	Freelance   Category = "FREELANCE"
	Investment  Category = "INVESTMENT"
	OtherIncome Category = "OTHER_INCOME"

	Groceries      Category = "GROCERIES"
	DiningOut      Category = "DINING_OUT"
	Transportation Category = "TRANSPORTATION"
	Entertainment  Category = "ENTERTAINMENT"
	Utilities      Category = "UTILITIES"
	RentMortgage   Category = "RENT_MORTGAGE"
	Healthcare     Category = "HEALTHCARE"
	Shopping       Category = "SHOPPING"
	Education      Category = "EDUCATION"
	Travel         Category = "TRAVEL"
	OtherExpense   Category = "OTHER_EXPENSE"
)

type categoryInfo struct {
	category Category
	kind     TransactionType
	display  string
}

var categoryTable = []categoryInfo{
	{Salary, Income, "Salary"},
	{Freelance, Income, "Freelance"},
	{Investment, Income, "Investment"},
	{OtherIncome, Income, "Other Income"},

	{Groceries, Expense, "Groceries"},
	{DiningOut, Expense, "Dining Out"},
	{Transportation, Expense, "Transportation"},
	{Entertainment, Expense, "Entertainment"},
	{Utilities, Expense, "Utilities"},
	{RentMortgage, Expense, "Rent/Mortgage"},
	{Healthcare, Expense, "Healthcare"},
	{Shopping, Expense, "Shopping"},
	{Education, Expense, "Education"},
	{Travel, Expense, "Travel"},
	{OtherExpense, Expense, "Other Expense"},
}

var categoryIndex = func() map[Category]categoryInfo {
	m := make(map[Category]categoryInfo, len(categoryTable))
	for _, ci := range categoryTable {
		m[ci.category] = ci
	}
	return m
}()

func (c Category) IsValid() bool {
	_, ok := categoryIndex[c]
	return ok
}

// Type returns the transaction type the category belongs to, or "" when the
// category is unknown.
func (c Category) Type() TransactionType {
	return categoryIndex[c].kind
}

func (c Category) IsIncome() bool  { return c.Type() == Income }
func (c Category) IsExpense() bool { return c.Type() == Expense }

func (c Category) DisplayName() string {
	if ci, ok := categoryIndex[c]; ok {
		return ci.display
	}
	return string(c)
}

// IsIncomeCategory reports whether c is one of the income categories.
func IsIncomeCategory(c Category) bool {
	return c.IsIncome()
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categoryTable))
	for i, ci := range categoryTable {
		out[i] = ci.category
	}
	return out
}

// CategoriesFor returns the categories of one transaction type in declaration order.
func CategoriesFor(t TransactionType) []Category {
	var out []Category
	for _, ci := range categoryTable {
		if ci.kind == t {
			out = append(out, ci.category)
		}
	}
	return out
}

func IncomeCategories() []Category  { return CategoriesFor(Income) }
func ExpenseCategories() []Category { return CategoriesFor(Expense) }
