package core

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const (
	Checking   AccountType = "CHECKING"
	Savings    AccountType = "SAVINGS"
	CreditCard AccountType = "CREDIT_CARD"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

type (
	AccountType     string
	TransactionType string

	User struct {
		ID        int64
		FirstName string
		LastName  string
		Email     string
		CreatedAt time.Time
	}

	Account struct {
		ID             int64
		UserID         int64
		Name           string
		Type           AccountType
		InitialBalance Money
		CurrentBalance Money
		CreatedAt      time.Time

		// Transactions is only populated by stores that keep the full
		// aggregate in memory.
		Transactions []Transaction
	}

	Transaction struct {
		ID          int64
		AccountID   int64
		Description string
		Amount      Money
		Type        TransactionType
		Category    Category
		Date        Date
		CreatedAt   time.Time
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  Category
		Amount    Money
		Month     YearMonth
		CreatedAt time.Time
	}
)

// NewAccount builds an account whose current balance starts at the initial balance.
func NewAccount(userID int64, name string, t AccountType, initial Money) Account {
	return Account{
		UserID:         userID,
		Name:           name,
		Type:           t,
		InitialBalance: initial,
		CurrentBalance: initial,
		CreatedAt:      time.Now().UTC(),
	}
}

func (t AccountType) IsValid() bool {
	switch t {
	case Checking, Savings, CreditCard:
		return true
	}
	return false
}

func (t AccountType) DisplayName() string {
	switch t {
	case Checking:
		return "Checking Account"
	case Savings:
		return "Savings Account"
	case CreditCard:
		return "Credit Card"
	}
	return string(t)
}

// AccountTypes returns every account type in declaration order.
func AccountTypes() []AccountType {
	return []AccountType{Checking, Savings, CreditCard}
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) DisplayName() string {
	switch t {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	}
	return string(t)
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u User) Validate() error {
	if err := validateName(u.FirstName, ErrInvalidFirstName); err != nil {
		return err
	}
	if err := validateName(u.LastName, ErrInvalidLastName); err != nil {
		return err
	}
	email := strings.TrimSpace(u.Email)
	if email == "" {
		return ErrEmptyEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func validateName(name string, sentinel error) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < 2 || n > 50 {
		return sentinel
	}
	return nil
}

func (a Account) IsCreditCard() bool {
	return a.Type == CreditCard
}

func (a Account) Validate() error {
	if a.UserID == 0 {
		return ErrMissingOwner
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if !a.Type.IsValid() {
		return ErrInvalidAccountType
	}
	if err := a.InitialBalance.Validate(); err != nil {
		return ErrInvalidInitialBalance
	}
	return nil
}

func (a Account) String() string {
	return fmt.Sprintf("Account{id=%d, name=%q, type=%s, balance=%s}",
		a.ID, a.Name, a.Type, a.CurrentBalance.Format())
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 255 {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	if !t.Category.IsValid() {
		return ErrInvalidCategory
	}
	if t.Category.Type() != t.Type {
		return ErrCategoryTypeMismatch
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	return nil
}

// SignedAmount renders the amount with a leading + for income and - for expense.
func (t Transaction) SignedAmount() string {
	if t.Type == Income {
		return "+" + t.Amount.Format()
	}
	return "-" + t.Amount.Format()
}

func (t Transaction) String() string {
	return fmt.Sprintf("Transaction{id=%d, desc=%q, amount=%s, type=%s, category=%s}",
		t.ID, t.Description, t.Amount.Format(), t.Type, t.Category)
}

func (b Budget) Validate() error {
	if b.UserID == 0 {
		return ErrMissingOwner
	}
	if !b.Category.IsValid() {
		return ErrInvalidCategory
	}
	if !b.Category.IsExpense() {
		return ErrCategoryTypeMismatch
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	return nil
}

func (b Budget) String() string {
	return fmt.Sprintf("Budget{id=%d, category=%s, amount=%s, month=%s}",
		b.ID, b.Category, b.Amount.Format(), b.Month)
}
