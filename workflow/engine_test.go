package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// position builds a production position sold once on saleDate for value.
func position(name string, balance string, value string, saleDate time.Time) *models.ProductionPosition {
	invoice := &models.Invoice{Date: saleDate, ExchangeRate: decimal.NewFromInt(1)}
	return &models.ProductionPosition{
		Product: &models.Product{Name: name, FakturowniaId: int64(len(name))},
		Balance: dec(balance),
		InvoicePositions: []*models.InvoicePosition{
			{Invoice: invoice, Quantity: decimal.NewFromInt(1), TotalPrice: dec(value)},
		},
	}
}

func TestClassifyProductionDoc(t *testing.T) {
	doc := &models.ProductionDoc{
		ProductionPositions: []*models.ProductionPosition{
			position("Transport krajowy", "-1", "50", day(2024, 3, 3)),
			position("Rozliczenie zaliczki", "-1", "10", day(2024, 3, 3)),
			position("Stół dębowy", "2", "900", day(2024, 3, 3)),
		},
	}
	ClassifyProductionDoc(doc)
	assert.True(t, doc.DoNotProduce)

	doc.ProductionPositions[2].Balance = dec("-2")
	ClassifyProductionDoc(doc)
	assert.False(t, doc.DoNotProduce)
	assert.True(t, doc.ProductionPositions[0].DoNotProduce)
	assert.True(t, doc.ProductionPositions[1].DoNotProduce)
	assert.False(t, doc.ProductionPositions[2].DoNotProduce)

	// Re-running with unchanged inputs gives the same flags.
	before := []bool{doc.DoNotProduce}
	for _, p := range doc.ProductionPositions {
		before = append(before, p.DoNotProduce)
	}
	ClassifyProductionDoc(doc)
	after := []bool{doc.DoNotProduce}
	for _, p := range doc.ProductionPositions {
		after = append(after, p.DoNotProduce)
	}
	assert.Equal(t, before, after)
}

func TestClassifyEmptyDocIsDoNotProduce(t *testing.T) {
	doc := &models.ProductionDoc{}
	ClassifyProductionDoc(doc)
	assert.True(t, doc.DoNotProduce)
}

func TestMatchRwToDoc(t *testing.T) {
	description := "Wydanie do ZW-2024-007 część 1"
	docs := []*models.ProductionDoc{
		{ID: 1, OrderNumber: "ZW-2024-006"},
		{ID: 2, OrderNumber: "ZW-2024-007"},
		{ID: 3, OrderNumber: "ZW-2024-008"},
	}
	match := MatchRwToDoc(&models.RW{Description: &description}, docs)
	require.NotNil(t, match.Doc)
	assert.Equal(t, "ZW-2024-007", match.Doc.OrderNumber)
	assert.False(t, match.Ambiguous())
}

func TestMatchRwToDocFirstMatchWins(t *testing.T) {
	description := "Wydanie surowców do ZW-12"
	docs := []*models.ProductionDoc{
		{ID: 1, OrderNumber: "ZW-1"},
		{ID: 2, OrderNumber: "ZW-12"},
	}
	match := MatchRwToDoc(&models.RW{Description: &description}, docs)
	require.NotNil(t, match.Doc)
	assert.Equal(t, "ZW-1", match.Doc.OrderNumber)
	require.True(t, match.Ambiguous())
	assert.Equal(t, "ZW-12", match.Others[0].OrderNumber)
}

func TestMatchRwToDocNoMatch(t *testing.T) {
	description := "Wydanie na potrzeby biura"
	match := MatchRwToDoc(&models.RW{Description: &description}, []*models.ProductionDoc{{OrderNumber: "ZW-1"}, {OrderNumber: ""}})
	assert.Nil(t, match.Doc)

	match = MatchRwToDoc(&models.RW{}, []*models.ProductionDoc{{OrderNumber: "ZW-1"}})
	assert.Nil(t, match.Doc)
}

func TestRwDateFor(t *testing.T) {
	cases := []struct {
		sale time.Time
		want time.Time
	}{
		{day(2024, 3, 3), day(2024, 3, 1)},
		{day(2024, 3, 7), day(2024, 3, 1)},
		{day(2024, 3, 8), day(2024, 3, 1)},
		{day(2024, 3, 15), day(2024, 3, 8)},
		{day(2024, 3, 31), day(2024, 3, 24)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RwDateFor(tc.sale), "sale %s", tc.sale.Format("2006-01-02"))
	}
}

func TestNumberProductionDocsBySaleDate(t *testing.T) {
	month := &models.Month{Year: 2024, Month: 3}
	late := &models.ProductionDoc{ID: 1, OrderNumber: "ZW-C", ProductionPositions: []*models.ProductionPosition{position("Szafa", "-1", "10", day(2024, 3, 20))}}
	early := &models.ProductionDoc{ID: 2, OrderNumber: "ZW-A", ProductionPositions: []*models.ProductionPosition{position("Stół", "-1", "10", day(2024, 3, 3))}}
	middle := &models.ProductionDoc{ID: 3, OrderNumber: "ZW-B", ProductionPositions: []*models.ProductionPosition{position("Krzesło", "-1", "10", day(2024, 3, 15))}, Rw: &models.RW{Number: "RW 5/2024"}}
	undated := &models.ProductionDoc{ID: 4, OrderNumber: "ZW-D", ProductionPositions: []*models.ProductionPosition{{Product: &models.Product{Name: "Regał"}, Balance: dec("-1")}}}
	month.ProductionDocs = []*models.ProductionDoc{late, undated, early, middle}

	NumberProductionDocs(month, month.ProductionDocsBySaleDate())

	assert.Equal(t, "24/03/01", early.NumberText())
	assert.Equal(t, "24/03/02", middle.NumberText())
	assert.Equal(t, "24/03/03", late.NumberText())
	assert.Equal(t, "24/03/04", undated.NumberText())

	require.NotNil(t, early.RwDate)
	assert.Equal(t, day(2024, 3, 1), *early.RwDate)
	require.NotNil(t, middle.RwDate)
	assert.Equal(t, day(2024, 3, 8), *middle.RwDate)
	assert.Nil(t, undated.RwDate)

	assert.Equal(t, "24/03/02", middle.Rw.Number)
	assert.Equal(t, "2024-03-08", middle.Rw.IssueDate)
}

func TestProductionNumberDecember(t *testing.T) {
	assert.Equal(t, "23/12/10", ProductionNumber(&models.Month{Year: 2023, Month: 12}, 10))
}

func sumAllocations(allocations []Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Value)
	}
	return total
}

func TestAllocateRawMaterialsSinglePosition(t *testing.T) {
	doc := &models.ProductionDoc{ProductionPositions: []*models.ProductionPosition{
		position("Stół", "-1", "900", day(2024, 3, 3)),
	}}
	allocations := AllocateRawMaterials(doc, dec("300.004"))
	require.Len(t, allocations, 1)
	assert.True(t, allocations[0].Value.Equal(dec("300.00")), allocations[0].Value.String())
}

func TestAllocateRawMaterialsThreePositions(t *testing.T) {
	transport := position("Transport", "-1", "500", day(2024, 3, 3))
	transport.DoNotProduce = true
	doc := &models.ProductionDoc{ProductionPositions: []*models.ProductionPosition{
		position("Stół", "-1", "100", day(2024, 3, 3)),
		transport,
		position("Krzesło", "-4", "200", day(2024, 3, 3)),
		position("Szafa", "-1", "300", day(2024, 3, 3)),
	}}

	allocations := AllocateRawMaterials(doc, dec("1000"))
	require.Len(t, allocations, 3)
	assert.True(t, allocations[0].Value.Equal(dec("166.67")), allocations[0].Value.String())
	assert.True(t, allocations[1].Value.Equal(dec("333.33")), allocations[1].Value.String())
	assert.True(t, allocations[2].Value.Equal(dec("500.00")), allocations[2].Value.String())
	assert.True(t, sumAllocations(allocations).Equal(dec("1000")))

	for _, value := range []string{"99.999", "0.01", "12345.67", "10"} {
		got := sumAllocations(AllocateRawMaterials(doc, dec(value)))
		assert.True(t, got.Equal(dec(value).Round(2)), "value %s allocated %s", value, got)
	}
}

func TestAllocateRawMaterialsNoOp(t *testing.T) {
	doc := &models.ProductionDoc{ProductionPositions: []*models.ProductionPosition{
		position("Stół", "-1", "100", day(2024, 3, 3)),
	}}
	assert.Nil(t, AllocateRawMaterials(doc, decimal.Zero))
	assert.Nil(t, AllocateRawMaterials(&models.ProductionDoc{}, dec("100")))
}

func TestAllocateRawMaterialsZeroSaleValue(t *testing.T) {
	doc := &models.ProductionDoc{ProductionPositions: []*models.ProductionPosition{
		position("Stół", "-1", "0", day(2024, 3, 3)),
		position("Krzesło", "-1", "0", day(2024, 3, 3)),
	}}
	allocations := AllocateRawMaterials(doc, dec("50"))
	require.Len(t, allocations, 2)
	assert.True(t, allocations[0].Value.IsZero())
	assert.True(t, allocations[1].Value.Equal(dec("50")))
}

func TestBuildGoodsReceivedDoc(t *testing.T) {
	month := &models.Month{Year: 2024, Month: 3}
	number := "24/03/02"
	rwDate := day(2024, 3, 8)
	finalQuantity := 2

	chair := position("Krzesło", "-4", "800", day(2024, 3, 15))
	chair.RawMaterialsValue = dec("444.44")
	table := position("Stół", "-3", "1000", day(2024, 3, 15))
	table.UnitPrice = dec("210.00")
	table.FinalQuantity = &finalQuantity
	stock := position("Szafa", "4", "300", day(2024, 3, 15))
	stock.DoNotProduce = true

	doc := &models.ProductionDoc{
		OrderNumber:         "ZW-2024-008",
		Number:              &number,
		RwDate:              &rwDate,
		ProductionPositions: []*models.ProductionPosition{chair, table, stock},
	}
	pw := BuildGoodsReceivedDoc(month, doc)

	assert.Equal(t, "24/03/02", pw.Number)
	assert.Equal(t, "2024-03-08", pw.IssueDate)
	assert.Contains(t, pw.Description, "ZW-2024-008")
	require.Len(t, pw.Positions, 2)
	assert.Equal(t, int64(4), pw.Positions[0].Quantity)
	assert.True(t, pw.Positions[0].UnitPrice.Equal(dec("111.11")), pw.Positions[0].UnitPrice.String())
	assert.Equal(t, int64(2), pw.Positions[1].Quantity)
	assert.True(t, pw.Positions[1].UnitPrice.Equal(dec("210")))
}

func TestStepReportWarn(t *testing.T) {
	report := NewStepReport(7, models.StepImport, nil)
	report.count("invoices")
	report.warn("rw", "501", issueAmbiguousRwLink, "ambiguous", map[string]string{"a": "b"})

	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 1, report.WarningCount())
	assert.True(t, report.HasIssue(issueAmbiguousRwLink))
	assert.Equal(t, 7, report.Issues[0].MonthId)
	assert.JSONEq(t, `{"a":"b"}`, string(report.Issues[0].PayloadJSON))
}

func TestStepErrorCode(t *testing.T) {
	assert.Equal(t, "month_locked", stepErrorCode(ErrMonthLocked))
	assert.Equal(t, "invalid_state", stepErrorCode(models.ErrInvalidTransition))
	assert.Equal(t, "step_failed", stepErrorCode(assert.AnError))
}

func TestExchangeRateFor(t *testing.T) {
	report := NewStepReport(3, models.StepImport, nil)
	rate := exchangeRateFor(fakturownia.Invoice{Id: 1, Number: "FV 1/EUR", Currency: "EUR", ExchangeRate: dec("4.3125")}, report)
	assert.True(t, rate.Equal(dec("4.3125")))
	assert.Zero(t, report.WarningCount())

	rate = exchangeRateFor(fakturownia.Invoice{Id: 2, Number: "FV 2/EUR", Currency: "EUR"}, report)
	assert.True(t, rate.Equal(dec("1")))
	assert.Equal(t, 1, report.WarningCount())
	assert.True(t, report.HasIssue(issueMissingRate))
	assert.JSONEq(t, `{"currency":"EUR"}`, string(report.Issues[0].PayloadJSON))
}
