package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"masarif/internal/models"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultExportTitle heads spreadsheet exports when the caller
	// provides no title.
	DefaultExportTitle = "Expense Report"

	expensesSheet = "Expenses"
	summarySheet  = "Summary"
	headerRow     = 4
	numberFormat  = "#,##0.00"
	maxColWidth   = 30
)

type ExportService struct {
	logger *zap.Logger
}

func NewExportService(logger *zap.Logger) *ExportService {
	return &ExportService{logger: logger}
}

// ToCSV renders records as comma-separated text. Columns are the
// alphabetically sorted union of every key present in the input; rows
// keep input order and absent keys render empty. Empty input yields an
// empty string.
func (s *ExportService) ToCSV(records []models.ExpenseRecord) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	fields := make([]map[string]any, len(records))
	keySet := make(map[string]struct{})
	for i := range records {
		fields[i] = records[i].Fields()
		for key := range fields[i] {
			keySet[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for key := range keySet {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write csv header: %v: %w", err, ErrEncoding)
	}
	row := make([]string, len(columns))
	for _, rowFields := range fields {
		for i, column := range columns {
			if value, ok := rowFields[column]; ok {
				row[i] = renderValue(value)
			} else {
				row[i] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %v: %w", err, ErrEncoding)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %v: %w", err, ErrEncoding)
	}

	s.logger.Debug("csv export complete",
		zap.Int("records", len(records)),
		zap.Int("columns", len(columns)),
	)
	return buf.String(), nil
}

// ToSpreadsheet renders records as an xlsx workbook: a styled
// "Expenses" sheet and, when includeSummary is set, a "Summary" sheet
// with category and payment-method aggregates. Empty input produces a
// single sheet holding only a placeholder notice.
func (s *ExportService) ToSpreadsheet(records []models.ExpenseRecord, includeSummary bool, title string) ([]byte, error) {
	if title == "" {
		title = DefaultExportTitle
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %v: %w", err, ErrEncoding)
	}

	if len(records) == 0 {
		f.SetCellValue(expensesSheet, "A1", "No expenses to export")
		return writeWorkbook(f)
	}

	var styleErr error
	style := func(st *excelize.Style) int {
		id, err := f.NewStyle(st)
		if err != nil && styleErr == nil {
			styleErr = err
		}
		return id
	}
	numFmt := numberFormat
	borders := []excelize.Border{
		{Type: "left", Style: 1},
		{Type: "right", Style: 1},
		{Type: "top", Style: 1},
		{Type: "bottom", Style: 1},
	}
	titleStyle := style(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	stampStyle := style(&excelize.Style{Font: &excelize.Font{Italic: true, Color: "666666"}})
	headerStyle := style(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders,
	})
	cellStyle := style(&excelize.Style{Border: borders})
	amountStyle := style(&excelize.Style{
		Border:       borders,
		CustomNumFmt: &numFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if styleErr != nil {
		return nil, fmt.Errorf("build styles: %v: %w", styleErr, ErrEncoding)
	}

	fields := make([]map[string]any, len(records))
	keySet := make(map[string]struct{})
	for i := range records {
		fields[i] = records[i].Fields()
		for key := range fields[i] {
			keySet[key] = struct{}{}
		}
	}
	headers := spreadsheetHeaders(keySet)

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetCellValue(expensesSheet, "A1", title)
	f.SetCellStyle(expensesSheet, "A1", "A1", titleStyle)
	f.MergeCell(expensesSheet, "A1", lastCol+"1")
	f.SetCellValue(expensesSheet, "A2", "Generated: "+time.Now().Format("2006-01-02 15:04"))
	f.SetCellStyle(expensesSheet, "A2", "A2", stampStyle)

	widths := make([]int, len(headers))
	for col, key := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		label := headerLabel(key)
		f.SetCellValue(expensesSheet, cell, label)
		f.SetCellStyle(expensesSheet, cell, cell, headerStyle)
		widths[col] = utf8.RuneCountInString(label)
	}

	for i, rowFields := range fields {
		rowIdx := headerRow + 1 + i
		for col, key := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			value, ok := rowFields[key]
			if !ok {
				value = ""
			}
			if key == "amount" {
				if amount, isNum := value.(float64); isNum {
					f.SetCellValue(expensesSheet, cell, amount)
					f.SetCellStyle(expensesSheet, cell, cell, amountStyle)
					widths[col] = max(widths[col], utf8.RuneCountInString(renderValue(value)))
					continue
				}
			}
			setCell(f, expensesSheet, cell, value)
			f.SetCellStyle(expensesSheet, cell, cell, cellStyle)
			widths[col] = max(widths[col], utf8.RuneCountInString(renderValue(value)))
		}
	}

	for col := range headers {
		name, _ := excelize.ColumnNumberToName(col + 1)
		f.SetColWidth(expensesSheet, name, name, float64(min(widths[col]+2, maxColWidth)))
	}

	if includeSummary {
		if err := addSummarySheet(f, records); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("spreadsheet export complete",
		zap.Int("records", len(records)),
		zap.Int("columns", len(headers)),
		zap.Bool("summary", includeSummary),
	)
	return writeWorkbook(f)
}

// SpreadsheetFileName derives the suggested download name from a
// report title.
func SpreadsheetFileName(title string) string {
	if title == "" {
		title = DefaultExportTitle
	}
	return strings.ReplaceAll(title, " ", "_") + ".xlsx"
}

func addSummarySheet(f *excelize.File, records []models.ExpenseRecord) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %v: %w", err, ErrEncoding)
	}

	var styleErr error
	style := func(st *excelize.Style) int {
		id, err := f.NewStyle(st)
		if err != nil && styleErr == nil {
			styleErr = err
		}
		return id
	}
	numFmt := numberFormat
	titleStyle := style(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	sectionStyle := style(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	amountStyle := style(&excelize.Style{CustomNumFmt: &numFmt})
	if styleErr != nil {
		return fmt.Errorf("build summary styles: %v: %w", styleErr, ErrEncoding)
	}

	var total float64
	categories := models.NewAmountByKey()
	payments := models.NewAmountByKey()
	for i := range records {
		r := &records[i]
		amount := r.AmountOrZero()
		total += amount
		categories.Add(models.StringOr(r.Category, "Other"), amount)
		payments.Add(models.StringOr(r.PaymentMethod, "Unknown"), amount)
	}

	f.SetCellValue(summarySheet, "A1", "Expense Summary")
	f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	f.SetCellValue(summarySheet, "A3", "Overview")
	f.SetCellStyle(summarySheet, "A3", "A3", sectionStyle)
	f.SetCellValue(summarySheet, "A4", "Total Expenses")
	f.SetCellValue(summarySheet, "B4", len(records))
	f.SetCellValue(summarySheet, "A5", "Total Amount")
	f.SetCellValue(summarySheet, "B5", total)
	f.SetCellStyle(summarySheet, "B5", "B5", amountStyle)

	row := 7
	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "By Category")
	f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), sectionStyle)
	row++
	for _, entry := range sortByAmountDesc(categories) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), entry.key)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), entry.amount)
		f.SetCellStyle(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), amountStyle)
		var pct float64
		if total != 0 {
			pct = entry.amount / total * 100
		}
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), fmt.Sprintf("%.1f%%", pct))
		row++
	}

	row++
	f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "By Payment Method")
	f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), sectionStyle)
	row++
	for _, entry := range sortByAmountDesc(payments) {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), entry.key)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), entry.amount)
		f.SetCellStyle(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), amountStyle)
		row++
	}

	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "B", 15)
	f.SetColWidth(summarySheet, "C", "C", 10)
	return nil
}

// spreadsheetHeaders puts the canonical record fields first and any
// additional keys after them, alphabetically.
func spreadsheetHeaders(keySet map[string]struct{}) []string {
	headers := models.PreferredKeys()
	preferred := make(map[string]struct{}, len(headers))
	for _, key := range headers {
		preferred[key] = struct{}{}
	}
	var extras []string
	for key := range keySet {
		if _, ok := preferred[key]; !ok {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	return append(headers, extras...)
}

type amountEntry struct {
	key    string
	amount float64
}

// sortByAmountDesc orders entries by amount, largest first; equal
// amounts keep first-seen order.
func sortByAmountDesc(m *models.AmountByKey) []amountEntry {
	entries := make([]amountEntry, 0, m.Len())
	for _, key := range m.Keys() {
		entries = append(entries, amountEntry{key: key, amount: m.Get(key)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].amount > entries[j].amount
	})
	return entries
}

func headerLabel(key string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(key, "_", " "))
}

func setCell(f *excelize.File, sheet, cell string, value any) {
	switch v := value.(type) {
	case string, float64, bool, int:
		f.SetCellValue(sheet, cell, v)
	default:
		f.SetCellValue(sheet, cell, renderValue(v))
	}
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %v: %w", err, ErrEncoding)
	}
	return buf.Bytes(), nil
}

// renderValue is the canonical cell rendering used for CSV output and
// column sizing. Floats print with minimal digits.
func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
