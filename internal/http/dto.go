package http

import (
	"time"

	"ledger/internal/core"
)

// Request bodies.

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type openAccountRequest struct {
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	InitialBalance core.Money       `json:"initial_balance"`
}

type recordTransactionRequest struct {
	Description string               `json:"description"`
	Amount      core.Money           `json:"amount"`
	Type        core.TransactionType `json:"type"`
	Category    core.Category        `json:"category"`
	// Date defaults to today (UTC) when omitted.
	Date *core.Date `json:"date"`
}

type createBudgetRequest struct {
	Category core.Category  `json:"category"`
	Amount   core.Money     `json:"amount"`
	Month    core.YearMonth `json:"month"`
}

// Responses.

type userResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		FullName:  u.FullName(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type accountResponse struct {
	ID             int64            `json:"id"`
	UserID         int64            `json:"user_id"`
	Name           string           `json:"name"`
	Type           core.AccountType `json:"type"`
	TypeName       string           `json:"type_name"`
	InitialBalance core.Money       `json:"initial_balance"`
	CurrentBalance core.Money       `json:"current_balance"`
	BalanceDisplay string           `json:"balance_display"`
	IsCreditCard   bool             `json:"is_credit_card"`
	CreatedAt      time.Time        `json:"created_at"`
}

func newAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		Type:           a.Type,
		TypeName:       a.Type.DisplayName(),
		InitialBalance: a.InitialBalance,
		CurrentBalance: a.CurrentBalance,
		BalanceDisplay: a.CurrentBalance.Format(),
		IsCreditCard:   a.IsCreditCard(),
		CreatedAt:      a.CreatedAt,
	}
}

func newAccountResponses(accounts []core.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a))
	}
	return out
}

type transactionResponse struct {
	ID            int64                `json:"id"`
	AccountID     int64                `json:"account_id"`
	Description   string               `json:"description"`
	Amount        core.Money           `json:"amount"`
	AmountDisplay string               `json:"amount_display"`
	Type          core.TransactionType `json:"type"`
	Category      core.Category        `json:"category"`
	CategoryName  string               `json:"category_name"`
	Date          core.Date            `json:"date"`
	CreatedAt     time.Time            `json:"created_at"`
}

func newTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		AccountID:     t.AccountID,
		Description:   t.Description,
		Amount:        t.Amount,
		AmountDisplay: t.SignedAmount(),
		Type:          t.Type,
		Category:      t.Category,
		CategoryName:  t.Category.DisplayName(),
		Date:          t.Date,
		CreatedAt:     t.CreatedAt,
	}
}

func newTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

type recordTransactionResponse struct {
	Transaction transactionResponse `json:"transaction"`
	Account     accountResponse     `json:"account"`
}

type budgetResponse struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	Category     core.Category  `json:"category"`
	CategoryName string         `json:"category_name"`
	Amount       core.Money     `json:"amount"`
	Month        core.YearMonth `json:"month"`
	CreatedAt    time.Time      `json:"created_at"`
}

func newBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		Category:     b.Category,
		CategoryName: b.Category.DisplayName(),
		Amount:       b.Amount,
		Month:        b.Month,
		CreatedAt:    b.CreatedAt,
	}
}

func newBudgetResponses(budgets []core.Budget) []budgetResponse {
	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, newBudgetResponse(b))
	}
	return out
}

type budgetStatusResponse struct {
	Budget          budgetResponse `json:"budget"`
	Spent           core.Money     `json:"spent"`
	Remaining       core.Money     `json:"remaining"`
	UsagePercentage string         `json:"usage_percentage"`
	Exceeded        bool           `json:"exceeded"`
}

func newBudgetStatusResponses(statuses []core.BudgetStatus) []budgetStatusResponse {
	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, budgetStatusResponse{
			Budget:          newBudgetResponse(st.Budget),
			Spent:           st.Spent,
			Remaining:       st.Remaining,
			UsagePercentage: st.UsagePercentage.StringFixed(2),
			Exceeded:        st.Exceeded,
		})
	}
	return out
}

type balanceResponse struct {
	UserID       int64      `json:"user_id"`
	TotalBalance core.Money `json:"total_balance"`
	Display      string     `json:"display"`
}

type summaryResponse struct {
	UserID  int64      `json:"user_id"`
	From    core.Date  `json:"from"`
	To      core.Date  `json:"to"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
	Net     core.Money `json:"net"`
}

func newSummaryResponse(s core.PeriodSummary) summaryResponse {
	return summaryResponse{
		UserID:  s.UserID,
		From:    s.From,
		To:      s.To,
		Income:  s.Income,
		Expense: s.Expense,
		Net:     s.Net(),
	}
}

type overviewResponse struct {
	User         userResponse      `json:"user"`
	Accounts     []accountResponse `json:"accounts"`
	TotalBalance core.Money        `json:"total_balance"`
}

type categoryResponse struct {
	Code core.Category `json:"code"`
	Name string        `json:"name"`
}

type categoriesResponse struct {
	Income  []categoryResponse `json:"income"`
	Expense []categoryResponse `json:"expense"`
}

func newCategoryResponses(cs []core.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, categoryResponse{Code: c, Name: c.DisplayName()})
	}
	return out
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) listResponse[T] {
	return listResponse[T]{Items: items, Count: len(items)}
}
