package core

import "errors"

var (
	// ErrValidation is matched by every validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound reports a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation (duplicate email, duplicate budget key).
	ErrConflict = errors.New("conflict")
)

// ValidationError is a field level validation failure. errors.Is(err, ErrValidation)
// holds for every ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

var (
	ErrInvalidDay             = invalid("date", "invalid day")
	ErrInvalidMonth           = invalid("month", "invalid month")
	ErrZeroDate               = invalid("date", "date cannot be zero")
	ErrInvalidAmount          = invalid("amount", "invalid amount")
	ErrEmptyDescription       = invalid("description", "empty description")
	ErrDescriptionTooLong     = invalid("description", "description too long (max 255 characters)")
	ErrInvalidTransactionType = invalid("type", "invalid transaction type")
	ErrInvalidCategory        = invalid("category", "invalid category")
	ErrCategoryTypeMismatch   = invalid("category", "category does not match transaction type")
	ErrEmptyAccountName       = invalid("name", "empty account name")
	ErrInvalidAccountType     = invalid("type", "invalid account type")
	ErrInvalidInitialBalance  = invalid("initial_balance", "initial balance must be positive")
	ErrMissingOwner           = invalid("user_id", "owner is required")
	ErrInvalidFirstName       = invalid("first_name", "first name must be between 2 and 50 characters")
	ErrInvalidLastName        = invalid("last_name", "last name must be between 2 and 50 characters")
	ErrEmptyEmail             = invalid("email", "email is required")
	ErrInvalidEmail           = invalid("email", "please provide a valid email address")
	ErrInvalidDateRange       = invalid("date", "start date must not be after end date")
)
