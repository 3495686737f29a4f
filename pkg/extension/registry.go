package extension

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/models"
)

// ErrNotFound is returned when an extension id is unknown.
var ErrNotFound = errors.New("extension not found")

// Registry owns every extension for one account, in registration order.
// It has no state of its own beyond the list; aggregates and allocation
// are derived from the extensions on every call.
type Registry struct {
	extensions []*Extension
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Create builds and registers a new extension.
func (r *Registry) Create(amount decimal.Decimal, startDate time.Time, termMonths int, apr decimal.Decimal) *Extension {
	e := New(amount, startDate, termMonths, apr)
	r.extensions = append(r.extensions, e)
	return e
}

// Get looks up an extension by id.
func (r *Registry) Get(id uuid.UUID) (*Extension, error) {
	for _, e := range r.extensions {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []*Extension {
	out := make([]*Extension, len(r.extensions))
	copy(out, r.extensions)
	return out
}

// PastDueAmount sums the past-due amounts of all active extensions.
func (r *Registry) PastDueAmount(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.extensions {
		if e.Status == models.ExtensionActive {
			total = total.Add(e.PastDueAmount(date))
		}
	}
	return total
}

// NextDueAmount sums the next-due amounts of all active extensions.
func (r *Registry) NextDueAmount(date time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.extensions {
		if e.Status == models.ExtensionActive {
			total = total.Add(e.NextDueAmount(date))
		}
	}
	return total
}

// AllocatePayment spreads one payment across all active extensions. The
// candidate list is every past-due unpaid installment plus each
// extension's next installment, sorted by due date (stable, so ties keep
// registration order). Each candidate receives min(remaining, funds)
// through its own extension's waterfall until the funds run out.
func (r *Registry) AllocatePayment(date time.Time, amount decimal.Decimal) models.Allocation {
	date = calendar.Midnight(date)

	type candidate struct {
		ext       *Extension
		dueDate   time.Time
		remaining decimal.Decimal
	}

	var candidates []candidate
	for _, e := range r.extensions {
		if e.Status != models.ExtensionActive {
			continue
		}
		for _, inst := range e.PastDueInstallments(date) {
			candidates = append(candidates, candidate{e, inst.PaymentDate, inst.RemainingAmount})
		}
		if inst, ok := e.NextInstallment(date); ok {
			candidates = append(candidates, candidate{e, inst.PaymentDate, inst.RemainingAmount})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dueDate.Before(candidates[j].dueDate)
	})

	funds := amount
	var payments []models.ExtensionPayment
	for _, c := range candidates {
		if !funds.IsPositive() {
			break
		}
		if !c.remaining.IsPositive() {
			continue
		}
		payment := c.ext.MakePayment(decimal.Min(c.remaining, funds), date)
		funds = funds.Sub(payment.PaymentAmount)
		payments = append(payments, payment)
	}

	return models.Allocation{
		PaymentDate:     date,
		TotalAmount:     amount,
		Payments:        payments,
		RemainingAmount: funds,
	}
}
