package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/investly/investly-backend/internal/app/service"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Promo code sheet columns, after a header row:
// code | discount_percentage | max_uses | valid_from | valid_until | is_active
const (
	colCode = iota
	colDiscount
	colMaxUses
	colValidFrom
	colValidUntil
	colActive
)

// RowError reports a skipped row (1-based, as shown in a spreadsheet app).
type RowError struct {
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// ReadPromoCodes parses the first sheet of an XLSX workbook. Bad rows are
// reported and skipped; a missing or empty sheet is an error.
func ReadPromoCodes(r io.Reader) ([]service.CreatePromoCodeInput, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	var inputs []service.CreatePromoCodeInput
	var skipped []RowError
	seen := make(map[string]bool)

	for i, row := range rows[1:] {
		rowNum := i + 2
		input, err := parsePromoRow(row)
		if err != nil {
			skipped = append(skipped, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}
		if seen[input.Code] {
			skipped = append(skipped, RowError{Row: rowNum, Reason: "duplicate code " + input.Code})
			continue
		}
		seen[input.Code] = true
		inputs = append(inputs, input)
	}
	return inputs, skipped, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parsePromoRow(row []string) (service.CreatePromoCodeInput, error) {
	var input service.CreatePromoCodeInput

	input.Code = strings.ToUpper(cell(row, colCode))
	if input.Code == "" {
		return input, fmt.Errorf("code is empty")
	}

	pct, err := decimal.NewFromString(strings.TrimSuffix(cell(row, colDiscount), "%"))
	if err != nil {
		return input, fmt.Errorf("invalid discount percentage %q", cell(row, colDiscount))
	}
	input.DiscountPercentage = pct

	if raw := cell(row, colMaxUses); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return input, fmt.Errorf("invalid max uses %q", raw)
		}
		input.MaxUses = &n
	}

	if input.ValidFrom, err = parseDate(cell(row, colValidFrom)); err != nil {
		return input, err
	}
	if input.ValidUntil, err = parseDate(cell(row, colValidUntil)); err != nil {
		return input, err
	}

	if raw := cell(row, colActive); raw != "" {
		active, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return input, fmt.Errorf("invalid is_active %q", raw)
		}
		input.IsActive = &active
	}
	return input, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "01-02-06"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", raw)
}
