// Package card ties one account's transaction ledger and extension
// registry together behind a single facade, the way callers interact with
// the product: card events on one side, installment extensions on the
// other, linked only by the EXTENSION credit posted when an extension is
// created.
package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/extension"
	"github.com/mcclellann/keepcard/pkg/ledger"
	"github.com/mcclellann/keepcard/pkg/models"
)

// Account is one cardholder's complete position. Not safe for concurrent
// use: treat the whole account as a single unit of mutual exclusion.
type Account struct {
	ledger   *ledger.Ledger
	registry *extension.Registry
}

// New creates an account with statement cycles anchored at cycleStartDay
// and due graceDays business days after each cycle end.
func New(cal *calendar.Calendar, cycleStartDay, graceDays int) *Account {
	return &Account{
		ledger:   ledger.NewLedger(cal, cycleStartDay, graceDays),
		registry: extension.NewRegistry(),
	}
}

// AddTransaction posts a card event dated effectiveDate.
func (a *Account) AddTransaction(kind models.TransactionKind, amount decimal.Decimal, effectiveDate, createdAt time.Time) (*models.LedgerSnapshot, error) {
	return a.ledger.Append(kind, amount, effectiveDate, createdAt)
}

// CreateExtension moves part of the balance due into a new installment
// extension: it posts the EXTENSION credit into the card ledger and
// registers the product. An invalid amount rejects the whole operation;
// nothing is posted.
func (a *Account) CreateExtension(amount decimal.Decimal, effectiveDate time.Time, termMonths int, apr decimal.Decimal) (*extension.Extension, error) {
	if _, err := a.ledger.Append(models.KindExtension, amount, effectiveDate, effectiveDate); err != nil {
		return nil, err
	}
	return a.registry.Create(amount, effectiveDate, termMonths, apr), nil
}

// PayExtension applies a payment to one extension by id.
func (a *Account) PayExtension(id uuid.UUID, amount decimal.Decimal, date time.Time) (models.ExtensionPayment, error) {
	e, err := a.registry.Get(id)
	if err != nil {
		return models.ExtensionPayment{}, err
	}
	return e.MakePayment(amount, date), nil
}

// AllocateExtensionPayment spreads a payment across all active extensions.
func (a *Account) AllocateExtensionPayment(date time.Time, amount decimal.Decimal) models.Allocation {
	return a.registry.AllocatePayment(date, amount)
}

// Extension looks up a single extension by id.
func (a *Account) Extension(id uuid.UUID) (*extension.Extension, error) {
	return a.registry.Get(id)
}

// Extensions returns every extension in registration order.
func (a *Account) Extensions() []*extension.Extension {
	return a.registry.Extensions()
}

// ExtensionPastDue is the total past-due amount across active extensions.
func (a *Account) ExtensionPastDue(date time.Time) decimal.Decimal {
	return a.registry.PastDueAmount(date)
}

// ExtensionNextDue is the total next-due amount across active extensions.
func (a *Account) ExtensionNextDue(date time.Time) decimal.Decimal {
	return a.registry.NextDueAmount(date)
}

// Transactions returns the card ledger in effective-date order.
func (a *Account) Transactions() []models.Transaction {
	return a.ledger.Transactions()
}

// Statements returns the current statement list; the last entry is the
// open cycle.
func (a *Account) Statements() []models.Statement {
	return a.ledger.Statements()
}

// Balance is the running card balance after the latest transaction.
func (a *Account) Balance() decimal.Decimal {
	return a.ledger.Balance()
}

// BalanceDueAsOf is the amount legally owed on the card as of a date.
func (a *Account) BalanceDueAsOf(date time.Time) decimal.Decimal {
	return a.ledger.BalanceDueAsOf(date)
}

// Snapshot returns the consistent ledger view.
func (a *Account) Snapshot() *models.LedgerSnapshot {
	return a.ledger.Snapshot()
}
