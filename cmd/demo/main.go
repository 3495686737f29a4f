// Command demo walks one account through a few statement cycles: purchases
// and payments on the revolving balance, then an extension that moves part
// of the balance onto an installment schedule and gets paid down.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mcclellann/keepcard/pkg/calendar"
	"github.com/mcclellann/keepcard/pkg/card"
	"github.com/mcclellann/keepcard/pkg/export"
	"github.com/mcclellann/keepcard/pkg/models"
)

func main() {
	account := card.New(calendar.Default(), 15, 1)

	post := func(kind models.TransactionKind, amount string, date time.Time) {
		if _, err := account.AddTransaction(kind, decimal.RequireFromString(amount), date, date); err != nil {
			fmt.Fprintf(os.Stderr, "failed to post %s %s: %v\n", kind, amount, err)
			os.Exit(1)
		}
	}

	post(models.KindPurchase, "800.00", calendar.Date(2025, time.January, 20))
	post(models.KindPurchase, "450.00", calendar.Date(2025, time.February, 3))
	post(models.KindRefund, "50.00", calendar.Date(2025, time.February, 10))
	post(models.KindPayment, "200.00", calendar.Date(2025, time.February, 20))
	post(models.KindPurchase, "300.00", calendar.Date(2025, time.March, 5))

	fmt.Println("== Transactions ==")
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tDIRECTION\tAMOUNT\tBALANCE")
	for _, tx := range account.Transactions() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			tx.EffectiveDate.Format("2006-01-02"), tx.Kind, tx.Direction,
			tx.Amount.StringFixed(2), tx.Balance.StringFixed(2))
	}
	tw.Flush()

	fmt.Println("\n== Statements ==")
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tEND\tDUE\tBEGINNING\tENDING\tBALANCE DUE")
	for _, st := range account.Statements() {
		ending := "open"
		if st.EndingBalance != nil {
			ending = st.EndingBalance.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			st.StartDate.Format("2006-01-02"), st.EndDate.Format("2006-01-02"),
			st.DueDate.Format("2006-01-02"), st.BeginningBalance.StringFixed(2),
			ending, st.BalanceDue.StringFixed(2))
	}
	tw.Flush()

	asOf := calendar.Date(2025, time.March, 20)
	fmt.Printf("\nBalance due as of %s: %s\n", asOf.Format("2006-01-02"),
		account.BalanceDueAsOf(asOf).StringFixed(2))

	// Move 1000 of the balance onto a 3 month installment plan at 36% APR.
	ext, err := account.CreateExtension(decimal.RequireFromString("1000.00"),
		calendar.Date(2025, time.March, 15), 3, decimal.RequireFromString("36.0"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create extension: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n== Extension %s ==\n", ext.ID)
	fmt.Printf("amount %s, %d months, total interest %s\n",
		ext.OriginalAmount.StringFixed(2), ext.TermMonths, ext.TotalInterest.StringFixed(2))
	tw = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDUE\tPAYMENT\tPRINCIPAL\tINTEREST")
	for _, inst := range ext.Schedule {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			inst.PaymentNumber, inst.PaymentDate.Format("2006-01-02"),
			inst.PaymentAmount.StringFixed(2), inst.PrincipalAmount.StringFixed(2),
			inst.InterestAmount.StringFixed(2))
	}
	tw.Flush()

	payment, err := account.PayExtension(ext.ID, decimal.RequireFromString("363.33"),
		calendar.Date(2025, time.April, 15))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to pay extension: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\npaid %s (principal %s, interest %s), remaining balance %s\n",
		payment.PaymentAmount.StringFixed(2), payment.PrincipalPaid.StringFixed(2),
		payment.InterestPaid.StringFixed(2), payment.RemainingBalance.StringFixed(2))

	result := account.AllocateExtensionPayment(calendar.Date(2025, time.May, 15),
		decimal.RequireFromString("400.00"))
	fmt.Printf("allocated 400.00 across %d payment(s), %s unallocated\n",
		len(result.Payments), result.RemainingAmount.StringFixed(2))

	const out = "keepcard-demo.xlsx"
	if err := export.Save(out, account.Snapshot(), account.Extensions()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write workbook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nworkbook written to %s\n", out)
}
