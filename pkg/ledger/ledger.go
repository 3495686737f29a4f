// Package ledger implements the revolving card side of the system: the
// append-only transaction log, the running balance, statement cycle
// generation and the balance legally owed at any point in time.
package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/models"
)

var (
	// ErrInvalidAmount rejects non-positive transaction amounts.
	ErrInvalidAmount = errors.New("transaction amount must be positive")
)

// Same-day transactions settle in this order so credits land before the
// purchases they cover. Kinds without an entry sort last.
var kindPriority = map[models.TransactionKind]int{
	models.KindExtension: 0,
	models.KindPayment:   1,
	models.KindPurchase:  2,
	models.KindRefund:    3,
}

func priorityOf(k models.TransactionKind) int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Ledger holds the transactions and derived statements for one card
// account. Every mutation re-sorts, recomputes the running balance and
// regenerates all statements before returning, so callers always observe
// a consistent snapshot. It is not safe for concurrent use.
type Ledger struct {
	cal           *calendar.Calendar
	cycleStartDay int
	graceDays     int
	transactions  []models.Transaction
	statements    []models.Statement
}

// NewLedger creates a ledger whose statement cycles are anchored to
// cycleStartDay (day of month, 1-28 recommended) with due dates graceDays
// business days after each cycle end.
func NewLedger(cal *calendar.Calendar, cycleStartDay, graceDays int) *Ledger {
	return &Ledger{
		cal:           cal,
		cycleStartDay: cycleStartDay,
		graceDays:     graceDays,
	}
}

// Append records a transaction and rebuilds all derived state. The
// direction is derived from the kind; corrections are modeled as new
// offsetting transactions, never as updates.
func (l *Ledger) Append(kind models.TransactionKind, amount decimal.Decimal, effectiveDate, createdAt time.Time) (*models.LedgerSnapshot, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	l.transactions = append(l.transactions, models.Transaction{
		ID:            uuid.New(),
		Kind:          kind,
		Direction:     kind.Direction(),
		Amount:        amount,
		EffectiveDate: calendar.Midnight(effectiveDate),
		CreatedAt:     calendar.Midnight(createdAt),
	})

	sort.SliceStable(l.transactions, func(i, j int) bool {
		a, b := l.transactions[i], l.transactions[j]
		if !a.EffectiveDate.Equal(b.EffectiveDate) {
			return a.EffectiveDate.Before(b.EffectiveDate)
		}
		return priorityOf(a.Kind) < priorityOf(b.Kind)
	})

	l.recalculateBalances()
	l.generateStatements()

	return l.Snapshot(), nil
}

// Snapshot returns copies of the current transactions and statements plus
// the running balance.
func (l *Ledger) Snapshot() *models.LedgerSnapshot {
	return &models.LedgerSnapshot{
		Transactions: l.Transactions(),
		Statements:   l.Statements(),
		Balance:      l.Balance(),
	}
}

// Transactions returns a copy of the sorted transaction log.
func (l *Ledger) Transactions() []models.Transaction {
	out := make([]models.Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Statements returns a copy of the current statement list. The last entry
// is always the open in-progress cycle.
func (l *Ledger) Statements() []models.Statement {
	out := make([]models.Statement, len(l.statements))
	copy(out, l.statements)
	return out
}

// Balance returns the running balance after the latest transaction.
func (l *Ledger) Balance() decimal.Decimal {
	if len(l.transactions) == 0 {
		return decimal.Zero
	}
	return l.transactions[len(l.transactions)-1].Balance
}

func (l *Ledger) recalculateBalances() {
	balance := decimal.Zero
	for i := range l.transactions {
		if l.transactions[i].Direction == models.DirectionDebit {
			balance = balance.Add(l.transactions[i].Amount)
		} else {
			balance = balance.Sub(l.transactions[i].Amount)
		}
		l.transactions[i].Balance = balance
	}
}

// BalanceDueAsOf answers "what is legally owed on this date": it anchors
// on the balance due of the latest statement starting on or before the
// date, then applies every PAYMENT and EXTENSION transaction between that
// statement's start and the date. Credits reduce the anchor, floored at
// zero; debits of those kinds would increase it.
func (l *Ledger) BalanceDueAsOf(date time.Time) decimal.Decimal {
	date = calendar.Midnight(date)

	var anchor *models.Statement
	for i := range l.statements {
		if !l.statements[i].StartDate.After(date) {
			anchor = &l.statements[i]
		}
	}
	if anchor == nil {
		return decimal.Zero
	}

	due := anchor.BalanceDue
	for _, tx := range l.transactions {
		if tx.Kind != models.KindPayment && tx.Kind != models.KindExtension {
			continue
		}
		if tx.EffectiveDate.Before(anchor.StartDate) || tx.EffectiveDate.After(date) {
			continue
		}
		if tx.Direction == models.DirectionCredit {
			due = due.Sub(tx.Amount)
			if due.IsNegative() {
				due = decimal.Zero
			}
		} else {
			due = due.Add(tx.Amount)
		}
	}
	return due
}

// cycleAnchor returns the given month's cycle start, with the day clamped
// to the month's last valid day.
func (l *Ledger) cycleAnchor(year int, month time.Month) time.Time {
	day := l.cycleStartDay
	if last := calendar.DaysIn(year, month); day > last {
		day = last
	}
	return calendar.Date(year, month, day)
}

// nextCycleStart returns the cycle anchor of the month following cur.
func (l *Ledger) nextCycleStart(cur time.Time) time.Time {
	if cur.Month() == time.December {
		return l.cycleAnchor(cur.Year()+1, time.January)
	}
	return l.cycleAnchor(cur.Year(), cur.Month()+1)
}

// prevCycleStart returns the cycle anchor of the month before the given
// one. Going through cycleAnchor keeps the day clamping consistent: when
// the anchor day is clamped in a short month, stepping back by calendar
// months from the clamped date would land off-anchor.
func (l *Ledger) prevCycleStart(year int, month time.Month) time.Time {
	if month == time.January {
		return l.cycleAnchor(year-1, time.December)
	}
	return l.cycleAnchor(year, month-1)
}

// generateStatements rebuilds the full statement list from the sorted
// transactions. Statements are regenerated wholesale rather than patched
// so the result is a pure function of the ledger contents.
func (l *Ledger) generateStatements() {
	l.statements = nil
	if len(l.transactions) == 0 {
		return
	}

	minDate := l.transactions[0].EffectiveDate
	maxDate := minDate
	for _, tx := range l.transactions {
		if tx.EffectiveDate.After(maxDate) {
			maxDate = tx.EffectiveDate
		}
	}

	// Walk back to the first cycle anchor at or before the earliest
	// transaction.
	var current time.Time
	if minDate.Day() < l.cycleStartDay {
		current = l.cycleAnchor(minDate.Year(), minDate.Month())
	} else {
		current = l.prevCycleStart(minDate.Year(), minDate.Month())
	}
	if current.After(minDate) {
		current = l.prevCycleStart(current.Year(), current.Month())
	}

	for !current.After(maxDate) {
		next := l.nextCycleStart(current)
		end := next.AddDate(0, 0, -1)
		due := l.cal.AddBusinessDays(end, l.graceDays)

		var cycleTxs []models.Transaction
		purchases, refunds, payments, extensions := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		for _, tx := range l.transactions {
			if tx.EffectiveDate.Before(current) || tx.EffectiveDate.After(end) {
				continue
			}
			cycleTxs = append(cycleTxs, tx)
			switch tx.Kind {
			case models.KindPurchase:
				purchases = purchases.Add(tx.Amount)
			case models.KindRefund:
				refunds = refunds.Add(tx.Amount)
			case models.KindPayment:
				payments = payments.Add(tx.Amount)
			case models.KindExtension:
				extensions = extensions.Add(tx.Amount)
			}
		}

		var beginning decimal.Decimal
		if n := len(l.statements); n > 0 {
			beginning = *l.statements[n-1].EndingBalance
		} else {
			for _, tx := range l.transactions {
				if tx.EffectiveDate.Before(current) {
					beginning = tx.Balance
				}
			}
		}

		ending := beginning.Add(purchases).Sub(refunds).Sub(payments).Sub(extensions)

		l.statements = append(l.statements, models.Statement{
			StartDate:        current,
			EndDate:          end,
			DueDate:          due,
			BeginningBalance: beginning,
			EndingBalance:    &ending,
			PurchasesAmount:  &purchases,
			RefundsAmount:    &refunds,
			PaymentsAmount:   &payments,
			ExtensionsAmount: &extensions,
			BalanceDue:       decimal.Zero,
			Transactions:     cycleTxs,
		})

		current = next
	}

	// Trailing open cycle for the in-progress period.
	openEnd := l.nextCycleStart(current).AddDate(0, 0, -1)
	l.statements = append(l.statements, models.Statement{
		StartDate:        current,
		EndDate:          openEnd,
		DueDate:          l.cal.AddBusinessDays(openEnd, l.graceDays),
		BeginningBalance: *l.statements[len(l.statements)-1].EndingBalance,
		BalanceDue:       decimal.Zero,
	})

	// Balance due carries the previous cycle's closing position forward.
	// Payments already aggregated inside the same cycle are deliberately
	// not netted here; BalanceDueAsOf is the date-accurate view.
	for i := 1; i < len(l.statements); i++ {
		if bd := l.statements[i].BeginningBalance; bd.IsPositive() {
			l.statements[i].BalanceDue = bd
		}
	}
}
