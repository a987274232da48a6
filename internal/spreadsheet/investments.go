package spreadsheet

import (
	"bytes"
	"fmt"
	"time"

	"github.com/investly/investly-backend/internal/app/model"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet     = "summary"
	investmentsSheet = "investments"
)

// BuildInvestmentsXLSX renders a business's funding summary and its
// investment rows for the owner's records.
func BuildInvestmentsXLSX(business *model.Business, investments []model.Investment, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(investmentsSheet); err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Business", business.Name},
		{"Business ID", business.ID},
		{"Status", string(business.Status)},
		{"Funding Goal", business.FundingGoal.Decimal().InexactFloat64()},
		{"Amount Raised", business.AmountRaised.Decimal().InexactFloat64()},
		{"Progress (%)", model.Progress(business.AmountRaised, business.FundingGoal).InexactFloat64()},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Funding Summary")
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+3), &row); err != nil {
			return nil, err
		}
	}

	header := []interface{}{"Investment ID", "Investor ID", "Amount", "Status", "Promo Code", "Invested At", "Refunded At"}
	if err := f.SetSheetRow(investmentsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, inv := range investments {
		promo := ""
		if inv.PromoCode != nil {
			promo = *inv.PromoCode
		}
		refunded := ""
		if inv.RefundedAt != nil {
			refunded = inv.RefundedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{
			inv.ID,
			inv.InvestorID,
			inv.Amount.Decimal().InexactFloat64(),
			string(inv.Status),
			promo,
			inv.CreatedAt.UTC().Format(time.RFC3339),
			refunded,
		}
		if err := f.SetSheetRow(investmentsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
