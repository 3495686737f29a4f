package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindPurchase        TransactionKind = "PURCHASE"
	KindRefund          TransactionKind = "REFUND"
	KindPayment         TransactionKind = "PAYMENT"
	KindPaymentReversal TransactionKind = "PAYMENT_REVERSAL"
	KindExtension       TransactionKind = "EXTENSION"
)

type Direction string

const (
	DirectionDebit  Direction = "DEBIT"
	DirectionCredit Direction = "CREDIT"
)

// Direction derives the ledger direction from the transaction kind.
// Payments, refunds and extensions reduce the card balance; everything
// else (purchases, payment reversals) increases it.
func (k TransactionKind) Direction() Direction {
	switch k {
	case KindPayment, KindRefund, KindExtension:
		return DirectionCredit
	default:
		return DirectionDebit
	}
}

// Transaction is a single immutable card event. Balance is the running
// balance after this transaction in effective-date order; it is the only
// field rewritten when the ledger recomputes.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	Kind          TransactionKind `json:"kind"`
	Direction     Direction       `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
	Balance       decimal.Decimal `json:"balance"`
}

// Statement is one billing cycle. The trailing in-progress cycle has nil
// aggregates; closed cycles carry the per-kind totals and satisfy
// ending = beginning + purchases - refunds - payments - extensions.
type Statement struct {
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	DueDate          time.Time        `json:"due_date"`
	BeginningBalance decimal.Decimal  `json:"beginning_balance"`
	EndingBalance    *decimal.Decimal `json:"ending_balance"`
	PurchasesAmount  *decimal.Decimal `json:"purchases_amount"`
	RefundsAmount    *decimal.Decimal `json:"refunds_amount"`
	PaymentsAmount   *decimal.Decimal `json:"payments_amount"`
	ExtensionsAmount *decimal.Decimal `json:"extensions_amount"`
	BalanceDue       decimal.Decimal  `json:"balance_due"`
	Transactions     []Transaction    `json:"transactions,omitempty"`
}

// Closed reports whether the statement cycle has been closed out.
func (s *Statement) Closed() bool {
	return s.EndingBalance != nil
}

// Cycle is one (start, end, due) triple from the statement cycle generator.
type Cycle struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	DueDate   time.Time `json:"due_date"`
}

// LedgerSnapshot is the consistent view returned after every ledger
// mutation: the resorted transactions, the regenerated statements and the
// current running balance.
type LedgerSnapshot struct {
	Transactions []Transaction   `json:"transactions"`
	Statements   []Statement     `json:"statements"`
	Balance      decimal.Decimal `json:"balance"`
}

type ExtensionStatus string

const (
	ExtensionActive ExtensionStatus = "ACTIVE"
	ExtensionPaid   ExtensionStatus = "PAID"
)

// Installment is one row of an extension payment schedule. PrincipalAmount
// and InterestAmount are fixed at creation; the remaining fields only ever
// decrease, and RemainingAmount is kept equal to principal + interest left.
type Installment struct {
	PaymentNumber      int             `json:"payment_number"`
	PaymentDate        time.Time       `json:"payment_date"`
	PaymentAmount      decimal.Decimal `json:"payment_amount"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	InterestAmount     decimal.Decimal `json:"interest_amount"`
	RemainingPrincipal decimal.Decimal `json:"remaining_principal"`
	RemainingInterest  decimal.Decimal `json:"remaining_interest"`
	RemainingAmount    decimal.Decimal `json:"remaining_amount"`
	Paid               bool            `json:"paid"`
}

// ExtensionPayment is the breakdown of one payment applied to an extension.
type ExtensionPayment struct {
	ExtensionID      uuid.UUID       `json:"extension_id"`
	PaymentDate      time.Time       `json:"payment_date"`
	PaymentAmount    decimal.Decimal `json:"payment_amount"`
	PrincipalPaid    decimal.Decimal `json:"principal_paid"`
	InterestPaid     decimal.Decimal `json:"interest_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Allocation is the result of spreading one payment across every active
// extension. RemainingAmount is the part of the payment that found no
// installment to land on.
type Allocation struct {
	PaymentDate     time.Time          `json:"payment_date"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	Payments        []ExtensionPayment `json:"payments"`
	RemainingAmount decimal.Decimal    `json:"remaining_amount"`
}
