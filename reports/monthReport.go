package reports

import (
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/xuri/excelize/v2"
)

const (
	docsSheet      = "Produkcja"
	positionsSheet = "Pozycje"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

var docHeadings = []string{
	"Number", "OrderNumber", "OrderName", "FirstSaleDate", "RwDate", "RwNumber",
	"RwValue", "SaleValuePln", "AllocatedRawMaterials", "DoNotProduce", "State", "ErpLink",
}

var positionHeadings = []string{
	"OrderNumber", "Product", "Quantity", "SalesValue", "Currency", "ValuePln",
	"Balance", "ProdQuantity", "FinalQuantity", "UnitPrice", "RawMaterialsValue", "DoNotProduce",
}

type MonthReportDoc struct {
	doc        *models.ProductionDoc
	erpBaseURL string
}

func (r MonthReportDoc) GetCellValues() []interface{} {
	doc := r.doc
	var firstSale, rwDate, rwNumber string
	if d := doc.FirstSaleDate(); d != nil {
		firstSale = utils.FormatDate(*d)
	}
	if doc.RwDate != nil {
		rwDate = utils.FormatDate(*doc.RwDate)
	}
	var rwValue interface{} = ""
	if doc.Rw != nil {
		rwNumber = doc.Rw.Number
		if doc.Rw.Value.Valid {
			rwValue = doc.Rw.Value.Decimal.InexactFloat64()
		}
	}
	return []interface{}{
		doc.NumberText(),
		doc.OrderNumber,
		utils.DereferencePtr(doc.OrderName, ""),
		firstSale,
		rwDate,
		rwNumber,
		rwValue,
		doc.SaleValue().Round(2).InexactFloat64(),
		doc.AllocatedRawMaterials().InexactFloat64(),
		doc.DoNotProduce,
		doc.State().String(),
		doc.OdooLink(r.erpBaseURL),
	}
}

type MonthReportPosition struct {
	doc      *models.ProductionDoc
	position *models.ProductionPosition
}

func (r MonthReportPosition) GetCellValues() []interface{} {
	p := r.position
	var finalQuantity interface{} = ""
	if p.FinalQuantity != nil {
		finalQuantity = *p.FinalQuantity
	}
	return []interface{}{
		r.doc.OrderNumber,
		p.ProductName(),
		p.Quantity().InexactFloat64(),
		p.SalesValue().InexactFloat64(),
		p.Currency(),
		p.ValuePln().Round(2).InexactFloat64(),
		p.Balance.InexactFloat64(),
		p.ProdQuantity(),
		finalQuantity,
		p.UnitPrice.InexactFloat64(),
		p.RawMaterialsValue.InexactFloat64(),
		p.DoNotProduce,
	}
}

// MonthReportRows splits a loaded month graph into doc rows (sale-date order) and position rows.
func MonthReportRows(month *models.Month, erpBaseURL string) (docs []ExcelExporter, positions []ExcelExporter) {
	for _, doc := range month.ProductionDocsBySaleDate() {
		docs = append(docs, MonthReportDoc{doc: doc, erpBaseURL: erpBaseURL})
		for _, p := range doc.ProductionPositions {
			positions = append(positions, MonthReportPosition{doc: doc, position: p})
		}
	}
	return docs, positions
}

// WriteMonthReport renders the month's production docs and positions as an XLSX workbook.
func WriteMonthReport(w io.Writer, month *models.Month, erpBaseURL string) error {
	f := excelize.NewFile()
	defer f.Close()

	docs, positions := MonthReportRows(month, erpBaseURL)
	if err := f.SetSheetName("Sheet1", docsSheet); err != nil {
		return err
	}
	if err := writeSheet(f, docsSheet, docHeadings, docs); err != nil {
		return err
	}
	if _, err := f.NewSheet(positionsSheet); err != nil {
		return err
	}
	if err := writeSheet(f, positionsSheet, positionHeadings, positions); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write month report %s: %w", month.String(), err)
	}
	return nil
}

// MonthReportFilename is the attachment name, e.g. produkcja-2024-03.xlsx.
func MonthReportFilename(month *models.Month) string {
	return fmt.Sprintf("produkcja-%04d-%02d.xlsx", month.Year, month.Month)
}

func writeSheet(f *excelize.File, sheetName string, headings []string, rows []ExcelExporter) error {
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}

	for rowNo, row := range rows {
		for col, value := range row.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNo+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
