package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "weekly shop",
		Amount:      Money{Cents: 100},
		Type:        Expense,
		Category:    Groceries,
		Date:        NewDate(2024, 3, 5),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"blank description", func(tx *Transaction) { tx.Description = "   " }, ErrEmptyDescription},
		{"long description", func(tx *Transaction) { tx.Description = strings.Repeat("x", 256) }, ErrDescriptionTooLong},
		{"zero amount", func(tx *Transaction) { tx.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"missing type", func(tx *Transaction) { tx.Type = "" }, ErrInvalidTransactionType},
		{"unknown category", func(tx *Transaction) { tx.Category = "PETS" }, ErrInvalidCategory},
		{"income category on expense", func(tx *Transaction) { tx.Category = Salary }, ErrCategoryTypeMismatch},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrZeroDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error kind, got %v", err)
			}
		})
	}
}

func TestUserValidate(t *testing.T) {
	good := User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.FullName() != "Ada Lovelace" {
		t.Fatalf("unexpected full name %q", good.FullName())
	}

	bads := []User{
		{FirstName: "A", LastName: "Lovelace", Email: "ada@example.com"},
		{FirstName: "Ada", LastName: strings.Repeat("x", 51), Email: "ada@example.com"},
		{FirstName: "Ada", LastName: "Lovelace", Email: ""},
		{FirstName: "Ada", LastName: "Lovelace", Email: "not-an-email"},
		{FirstName: "Ada", LastName: "Lovelace", Email: "Ada <ada@example.com>"},
	}
	for i, u := range bads {
		if err := u.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	a := NewAccount(1, "Checking", Checking, NewMoney(1000, 0))
	if err := a.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if a.CurrentBalance != a.InitialBalance {
		t.Fatalf("current balance should start at initial balance")
	}
	if a.IsCreditCard() {
		t.Fatalf("checking account reported as credit card")
	}

	bads := []Account{
		NewAccount(0, "Checking", Checking, NewMoney(1, 0)),
		NewAccount(1, " ", Checking, NewMoney(1, 0)),
		NewAccount(1, "Checking", "BROKERAGE", NewMoney(1, 0)),
		NewAccount(1, "Checking", Checking, Money{}),
	}
	for i, b := range bads {
		if err := b.Validate(); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	b := Budget{UserID: 1, Category: Groceries, Amount: NewMoney(200, 0), Month: NewYearMonth(2024, 3)}
	if err := b.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	b.Category = Salary
	if err := b.Validate(); !errors.Is(err, ErrCategoryTypeMismatch) {
		t.Fatalf("expected category mismatch, got %v", err)
	}
	b.Category = Groceries
	b.Month = YearMonth{Year: 2024, Month: 13}
	if err := b.Validate(); !errors.Is(err, ErrInvalidMonth) {
		t.Fatalf("expected invalid month, got %v", err)
	}
}

func TestCategoryClassification(t *testing.T) {
	income := IncomeCategories()
	expense := ExpenseCategories()
	if len(income) != 4 || len(expense) != 11 {
		t.Fatalf("unexpected split: %d income, %d expense", len(income), len(expense))
	}
	if len(Categories()) != len(income)+len(expense) {
		t.Fatalf("categories are not partitioned by type")
	}
	for _, c := range income {
		if !IsIncomeCategory(c) || c.IsExpense() {
			t.Fatalf("%s should be income only", c)
		}
	}
	for _, c := range expense {
		if IsIncomeCategory(c) || !c.IsExpense() {
			t.Fatalf("%s should be expense only", c)
		}
	}
	if Category("PETS").IsValid() || IsIncomeCategory("PETS") {
		t.Fatalf("unknown category must not classify")
	}
	if RentMortgage.DisplayName() != "Rent/Mortgage" {
		t.Fatalf("unexpected display name %q", RentMortgage.DisplayName())
	}
}

func TestYearMonth(t *testing.T) {
	ym, err := ParseYearMonth("2024-02")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ym.String() != "2024-02" {
		t.Fatalf("unexpected string %q", ym.String())
	}
	if ym.LastDay().String() != "2024-02-29" {
		t.Fatalf("unexpected last day %s", ym.LastDay())
	}
	if !ym.Contains(NewDate(2024, 2, 29)) || ym.Contains(NewDate(2024, 3, 1)) {
		t.Fatalf("contains mismatch")
	}
	if !ym.Before(NewYearMonth(2024, 3)) || NewYearMonth(2025, 1).Before(ym) {
		t.Fatalf("ordering mismatch")
	}
	if _, err := ParseYearMonth("2024-13"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
