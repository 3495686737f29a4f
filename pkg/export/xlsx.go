// Package export renders an account snapshot into an xlsx workbook with
// statement, transaction, and extension schedule sheets.
package export

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/mcclellann/keepcard/pkg/extension"
	"github.com/mcclellann/keepcard/pkg/models"
)

const dateLayout = "2006-01-02"

// Workbook builds the workbook in memory. The caller owns the file and
// must Close it.
func Workbook(snap *models.LedgerSnapshot, exts []*extension.Extension) (*excelize.File, error) {
	f := excelize.NewFile()

	f.SetSheetName("Sheet1", "Statements")
	if _, err := f.NewSheet("Transactions"); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet("Schedules"); err != nil {
		return nil, err
	}

	if err := writeStatementsSheet(f, snap.Statements); err != nil {
		return nil, err
	}
	if err := writeTransactionsSheet(f, snap.Transactions); err != nil {
		return nil, err
	}
	if err := writeSchedulesSheet(f, exts); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write streams the workbook to w, closing the file when done.
func Write(w io.Writer, snap *models.LedgerSnapshot, exts []*extension.Extension) error {
	f, err := Workbook(snap, exts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Save writes the workbook to path, closing the file when done.
func Save(path string, snap *models.LedgerSnapshot, exts []*extension.Extension) error {
	f, err := Workbook(snap, exts)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func writeStatementsSheet(f *excelize.File, statements []models.Statement) error {
	sheet := "Statements"

	headers := []string{
		"Start Date", "End Date", "Due Date", "Beginning Balance",
		"Purchases", "Refunds", "Payments", "Extensions",
		"Ending Balance", "Balance Due",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, st := range statements {
		row := i + 2
		values := []interface{}{
			st.StartDate.Format(dateLayout),
			st.EndDate.Format(dateLayout),
			st.DueDate.Format(dateLayout),
			st.BeginningBalance.StringFixed(2),
			amountOrBlank(st.PurchasesAmount),
			amountOrBlank(st.RefundsAmount),
			amountOrBlank(st.PaymentsAmount),
			amountOrBlank(st.ExtensionsAmount),
			amountOrBlank(st.EndingBalance),
			st.BalanceDue.StringFixed(2),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	if err := styleHeader(f, sheet, len(headers)); err != nil {
		return err
	}
	for i := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 16)
	}
	return nil
}

func writeTransactionsSheet(f *excelize.File, txs []models.Transaction) error {
	sheet := "Transactions"

	headers := []string{"Effective Date", "Kind", "Direction", "Amount", "Balance"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for i, tx := range txs {
		row := i + 2
		values := []interface{}{
			tx.EffectiveDate.Format(dateLayout),
			string(tx.Kind),
			string(tx.Direction),
			tx.Amount.StringFixed(2),
			tx.Balance.StringFixed(2),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, value)
		}
	}

	if err := styleHeader(f, sheet, len(headers)); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "C", 12)
	f.SetColWidth(sheet, "D", "E", 14)

	// Freeze header row
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeSchedulesSheet(f *excelize.File, exts []*extension.Extension) error {
	sheet := "Schedules"

	headers := []string{
		"Extension", "Status", "#", "Due Date", "Payment",
		"Principal", "Interest", "Remaining", "Paid",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	row := 2
	for _, ext := range exts {
		for _, inst := range ext.Schedule {
			values := []interface{}{
				ext.ID.String(),
				string(ext.Status),
				inst.PaymentNumber,
				inst.PaymentDate.Format(dateLayout),
				inst.PaymentAmount.StringFixed(2),
				inst.PrincipalAmount.StringFixed(2),
				inst.InterestAmount.StringFixed(2),
				inst.RemainingAmount.StringFixed(2),
				inst.Paid,
			}
			for j, value := range values {
				cell, _ := excelize.CoordinatesToCellName(j+1, row)
				f.SetCellValue(sheet, cell, value)
			}
			row++
		}
	}

	if err := styleHeader(f, sheet, len(headers)); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "B", 10)
	f.SetColWidth(sheet, "D", "H", 14)
	return nil
}

func styleHeader(f *excelize.File, sheet string, cols int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(cols, 1)
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

func amountOrBlank(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}
