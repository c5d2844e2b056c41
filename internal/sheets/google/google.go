package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base names without year (e.g. "Transactions"); the row's year is prefixed.
	transactionsBase string
	budgetsBase      string
}

// Ensure interface conformance
var (
	_ ports.TransactionExporter = (*Client)(nil)
	_ ports.BudgetReportWriter  = (*Client)(nil)
)

// Options configures the spreadsheet layout.
type Options struct {
	SpreadsheetID     string
	TransactionsSheet string
	BudgetsSheet      string
}

// New creates an authenticated Sheets client. An authorized user token
// (GOOGLE_OAUTH_CLIENT_* plus GOOGLE_OAUTH_TOKEN_*) takes precedence; otherwise
// a service account from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return newClient(svc, spreadsheetID, opts), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string, opts Options) *Client {
	txBase := strings.TrimSpace(opts.TransactionsSheet)
	if txBase == "" {
		txBase = "Transactions"
	}
	budgetsBase := strings.TrimSpace(opts.BudgetsSheet)
	if budgetsBase == "" {
		budgetsBase = "Budgets"
	}
	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		transactionsBase: txBase,
		budgetsBase:      budgetsBase,
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	ts, ok, err := oauthTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		slog.InfoContext(ctx, "Creating Google Sheets service with OAuth user token")
		service, err := gsheet.NewService(ctx, goption.WithTokenSource(ts))
		if err != nil {
			return nil, fmt.Errorf("create sheets service: %w", err)
		}
		return service, nil
	}

	credentialsJSON, err := loadCredentials(ctx)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func loadCredentials(ctx context.Context) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// NewWithAPIKey creates a client against a custom endpoint, used for emulators
// and tests that stub the Sheets REST API.
func NewWithAPIKey(ctx context.Context, endpoint, apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithEndpoint(endpoint),
		goption.WithAPIKey(apiKey),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newClient(svc, opts.SpreadsheetID, opts), nil
}

// AppendTransaction appends one row to the transactions sheet of the
// transaction's year and returns the updated range.
func (c *Client) AppendTransaction(ctx context.Context, row ports.TransactionRow) (string, error) {
	if err := row.Transaction.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.transactionsBase, row.Transaction.Date.Year())
	vr := &gsheet.ValueRange{Values: [][]any{transactionValues(row)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:H", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet + "!A:H"
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// WriteBudgetReport appends one row per budget status to the budgets sheet of
// ym's year.
func (c *Client) WriteBudgetReport(ctx context.Context, u core.User, ym core.YearMonth, statuses []core.BudgetStatus) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(statuses) == 0 {
		return "", nil
	}

	sheet := yearPrefixedName(c.budgetsBase, ym.Year)
	vr := &gsheet.ValueRange{Values: budgetValues(u, ym, statuses)}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:I", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet + "!A:I"
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// transactionValues lays out a row as
// Date | Account | Account type | Type | Category | Description | Amount | Owner.
// The amount is signed: expenses are negative.
func transactionValues(row ports.TransactionRow) []any {
	t := row.Transaction
	amount := t.Amount
	if t.Type == core.Expense {
		amount = core.Money{Cents: -amount.Cents}
	}
	return []any{
		t.Date.String(),
		row.Account.Name,
		row.Account.Type.DisplayName(),
		t.Type.DisplayName(),
		t.Category.DisplayName(),
		t.Description,
		amount.String(),
		row.User.Email,
	}
}

// budgetValues lays out rows as
// Month | Owner | Category | Budget | Spent | Remaining | Usage % | Exceeded | Written at.
func budgetValues(u core.User, ym core.YearMonth, statuses []core.BudgetStatus) [][]any {
	now := time.Now().UTC().Format(time.RFC3339)
	out := make([][]any, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, []any{
			ym.String(),
			u.Email,
			st.Budget.Category.DisplayName(),
			st.Budget.Amount.String(),
			st.Spent.String(),
			st.Remaining.String(),
			st.UsagePercentage.StringFixed(2),
			strconv.FormatBool(st.Exceeded),
			now,
		})
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
