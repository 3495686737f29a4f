// Package extension implements fixed-term installment loans created to
// move a card balance out of revolving credit, plus the registry that
// allocates payments across them.
package extension

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/models"
)

const (
	minTermMonths = 1
	maxTermMonths = 12
)

// Extension is one installment loan: a fixed flat-fee schedule plus the
// history of payments applied to it. CurrentBalance tracks outstanding
// principal only.
type Extension struct {
	ID             uuid.UUID                 `json:"id"`
	OriginalAmount decimal.Decimal           `json:"original_amount"`
	StartDate      time.Time                 `json:"start_date"`
	TermMonths     int                       `json:"term_months"`
	APR            decimal.Decimal           `json:"apr"`
	Status         models.ExtensionStatus    `json:"status"`
	TotalInterest  decimal.Decimal           `json:"total_interest"`
	MonthlyPayment decimal.Decimal           `json:"monthly_payment"`
	CurrentBalance decimal.Decimal           `json:"current_balance"`
	Schedule       []models.Installment      `json:"payment_schedule"`
	Payments       []models.ExtensionPayment `json:"payments"`
}

// New builds an extension and its payment schedule. The term is clamped
// to 1-12 months. Interest is a flat fee (amount * apr/100 * term/12), not
// declining-balance. Principal and interest are split evenly across the
// term rounded to cents, with the final installment absorbing both
// rounding remainders so the scheduled totals reconcile exactly.
func New(amount decimal.Decimal, startDate time.Time, termMonths int, apr decimal.Decimal) *Extension {
	if termMonths < minTermMonths {
		termMonths = minTermMonths
	}
	if termMonths > maxTermMonths {
		termMonths = maxTermMonths
	}
	startDate = calendar.Midnight(startDate)

	term := decimal.NewFromInt(int64(termMonths))
	totalInterest := amount.Mul(apr.Div(decimal.NewFromInt(100))).Mul(term.Div(decimal.NewFromInt(12)))

	monthlyPrincipal := amount.Div(term).Round(2)
	monthlyInterest := totalInterest.Div(term).Round(2)
	lastPrincipal := amount.Sub(monthlyPrincipal.Mul(term.Sub(decimal.NewFromInt(1))))
	lastInterest := totalInterest.Sub(monthlyInterest.Mul(term.Sub(decimal.NewFromInt(1))))

	e := &Extension{
		ID:             uuid.New(),
		OriginalAmount: amount,
		StartDate:      startDate,
		TermMonths:     termMonths,
		APR:            apr,
		Status:         models.ExtensionActive,
		TotalInterest:  totalInterest,
		MonthlyPayment: amount.Add(totalInterest).Div(term),
		CurrentBalance: amount,
		Schedule:       make([]models.Installment, 0, termMonths),
	}

	for month := 1; month <= termMonths; month++ {
		principal, interest := monthlyPrincipal, monthlyInterest
		if month == termMonths {
			principal, interest = lastPrincipal, lastInterest
		}
		e.Schedule = append(e.Schedule, models.Installment{
			PaymentNumber:      month,
			PaymentDate:        calendar.AddMonths(startDate, month),
			PaymentAmount:      principal.Add(interest),
			PrincipalAmount:    principal,
			InterestAmount:     interest,
			RemainingPrincipal: principal,
			RemainingInterest:  interest,
			RemainingAmount:    principal.Add(interest),
			Paid:               false,
		})
	}
	return e
}

// PastDueInstallments returns copies of the unpaid installments due
// strictly before the given date, oldest first.
func (e *Extension) PastDueInstallments(date time.Time) []models.Installment {
	date = calendar.Midnight(date)
	var out []models.Installment
	for _, inst := range e.Schedule {
		if inst.PaymentDate.Before(date) && !inst.Paid {
			out = append(out, inst)
		}
	}
	return out
}

// PastDueAmount sums the remaining amount of every past-due installment.
func (e *Extension) PastDueAmount(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, inst := range e.PastDueInstallments(date) {
		total = total.Add(inst.RemainingAmount)
	}
	return total
}

// NextInstallment returns a copy of the earliest installment due on or
// after the given date, paid or not. ok is false when none exists.
func (e *Extension) NextInstallment(date time.Time) (inst models.Installment, ok bool) {
	if p := e.nextInstallment(calendar.Midnight(date)); p != nil {
		return *p, true
	}
	return models.Installment{}, false
}

// NextDueAmount returns the remaining amount of the next installment, or
// zero when it is already paid or no future installment exists.
func (e *Extension) NextDueAmount(date time.Time) decimal.Decimal {
	inst, ok := e.NextInstallment(date)
	if !ok || inst.Paid {
		return decimal.Zero
	}
	return inst.RemainingAmount
}

// PayPastDue applies at most the past-due amount: the full overdue balance
// when the payment covers it, otherwise the whole payment.
func (e *Extension) PayPastDue(date time.Time, amount decimal.Decimal) models.ExtensionPayment {
	pastDue := e.PastDueAmount(date)
	if pastDue.GreaterThan(amount) {
		return e.MakePayment(amount, date)
	}
	return e.MakePayment(pastDue, date)
}

// MakePayment applies funds through the three-phase waterfall:
//
//  1. past-due installments, oldest first, principal then interest;
//  2. the current/next installment the same way;
//  3. any remainder pro-rated across all future unpaid installments, with
//     a share of interest waived for every installment the remainder can
//     cover on average, as an early-payoff incentive.
//
// It returns the principal/interest breakdown and records it in the
// payment history. The extension flips to PAID once every installment has
// no principal and no interest remaining.
func (e *Extension) MakePayment(amount decimal.Decimal, paymentDate time.Time) models.ExtensionPayment {
	paymentDate = calendar.Midnight(paymentDate)

	funds := amount
	principalPaid := decimal.Zero
	interestPaid := decimal.Zero

	// Phase 1: past due, oldest first.
	for i := range e.Schedule {
		inst := &e.Schedule[i]
		if !inst.PaymentDate.Before(paymentDate) || inst.Paid {
			continue
		}
		var p, q decimal.Decimal
		funds, p, q = applyTo(inst, funds)
		principalPaid = principalPaid.Add(p)
		interestPaid = interestPaid.Add(q)
		if !funds.IsPositive() {
			break
		}
	}

	// Phase 2: the current/next installment.
	if inst := e.nextInstallment(paymentDate); inst != nil && !inst.Paid && funds.IsPositive() {
		var p, q decimal.Decimal
		funds, p, q = applyTo(inst, funds)
		principalPaid = principalPaid.Add(p)
		interestPaid = interestPaid.Add(q)
	}

	// Phase 3: pro-rate what is left across every future unpaid
	// installment.
	if funds.IsPositive() {
		var future []*models.Installment
		futurePrincipal, futureInterest := decimal.Zero, decimal.Zero
		for i := range e.Schedule {
			inst := &e.Schedule[i]
			if inst.PaymentDate.After(paymentDate) && !inst.Paid {
				future = append(future, inst)
				futurePrincipal = futurePrincipal.Add(inst.RemainingPrincipal)
				futureInterest = futureInterest.Add(inst.RemainingInterest)
			}
		}

		if len(future) > 0 && futurePrincipal.IsPositive() {
			n := decimal.NewFromInt(int64(len(future)))
			covered := funds.Div(futurePrincipal.Div(n)).Floor()
			waived := futureInterest.Div(n).Mul(covered)

			perPrincipal := funds.Div(n)
			perInterest := waived.Div(n)
			for _, inst := range future {
				p := decimal.Min(perPrincipal, inst.RemainingPrincipal)
				inst.RemainingPrincipal = inst.RemainingPrincipal.Sub(p).Round(2)
				principalPaid = principalPaid.Add(p)

				w := decimal.Min(perInterest, inst.RemainingInterest)
				inst.RemainingInterest = inst.RemainingInterest.Sub(w).Round(2)
				interestPaid = interestPaid.Add(w)

				settle(inst)
			}
		}
	}

	e.CurrentBalance = e.CurrentBalance.Sub(principalPaid)
	if e.CurrentBalance.IsNegative() {
		e.CurrentBalance = decimal.Zero
	}

	payment := models.ExtensionPayment{
		ExtensionID:      e.ID,
		PaymentDate:      paymentDate,
		PaymentAmount:    amount,
		PrincipalPaid:    principalPaid,
		InterestPaid:     interestPaid,
		RemainingBalance: e.CurrentBalance,
	}
	e.Payments = append(e.Payments, payment)

	if e.fullyPaid() {
		e.Status = models.ExtensionPaid
	}
	return payment
}

// nextInstallment returns the earliest installment due on or after date.
// The schedule is already date-ordered.
func (e *Extension) nextInstallment(date time.Time) *models.Installment {
	for i := range e.Schedule {
		if !e.Schedule[i].PaymentDate.Before(date) {
			return &e.Schedule[i]
		}
	}
	return nil
}

func (e *Extension) fullyPaid() bool {
	for _, inst := range e.Schedule {
		if !inst.Paid {
			return false
		}
	}
	return true
}

// applyTo pays down one installment, principal first then interest, and
// returns the leftover funds and the amounts applied.
func applyTo(inst *models.Installment, funds decimal.Decimal) (left, principal, interest decimal.Decimal) {
	principal = decimal.Min(funds, inst.RemainingPrincipal)
	inst.RemainingPrincipal = inst.RemainingPrincipal.Sub(principal).Round(2)
	funds = funds.Sub(principal)

	interest = decimal.Zero
	if funds.IsPositive() {
		interest = decimal.Min(funds, inst.RemainingInterest)
		inst.RemainingInterest = inst.RemainingInterest.Sub(interest).Round(2)
		funds = funds.Sub(interest)
	}

	settle(inst)
	return funds, principal, interest
}

// settle syncs the paid flag and the combined remaining amount after any
// mutation of an installment's remaining fields.
func settle(inst *models.Installment) {
	if !inst.RemainingPrincipal.IsPositive() && !inst.RemainingInterest.IsPositive() {
		inst.Paid = true
	}
	inst.RemainingAmount = inst.RemainingPrincipal.Add(inst.RemainingInterest).Round(2)
}
