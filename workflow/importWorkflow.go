package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/production_backend/fakturownia"
	"bitbucket.org/mmdatafocus/production_backend/models"
	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ImportMonth pulls the month's invoices and RWs and builds production docs from
// sales out of the product warehouse. Remote reads happen first; everything local
// is written in one transaction so a failed import leaves no half month behind.
func (r *Runner) ImportMonth(ctx context.Context, monthId int, report *StepReport) error {
	db := r.DB.WithContext(ctx)
	month, err := loadMonth(db, monthId)
	if err != nil {
		return err
	}

	invoices, err := r.Invoicing.ListInvoices(ctx, month.DateFrom(), month.DateTo())
	if err != nil {
		return err
	}
	fresh, err := newInvoicesOnly(db, invoices)
	if err != nil {
		return err
	}
	report.Stats["invoices_skipped"] = len(invoices) - len(fresh)

	productIds, err := r.balanceProducts(db, month.ID, fresh)
	if err != nil {
		return err
	}
	balances, err := r.fetchBalances(ctx, productIds)
	if err != nil {
		return err
	}

	rws, err := r.Invoicing.ListWarehouseIssues(ctx, month.DateFrom(), month.DateTo())
	if err != nil {
		return err
	}

	classifiedAt := r.now()
	return db.Transaction(func(tx *gorm.DB) error {
		for _, invoice := range fresh {
			if err := r.importInvoice(tx, month, invoice, report); err != nil {
				return err
			}
		}
		if err := importRws(tx, month, rws, report); err != nil {
			return err
		}
		return classifyMonth(tx, month.ID, balances, classifiedAt, report)
	})
}

func newInvoicesOnly(db *gorm.DB, invoices []fakturownia.Invoice) ([]fakturownia.Invoice, error) {
	if len(invoices) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(invoices))
	for _, invoice := range invoices {
		ids = append(ids, invoice.Id)
	}
	var known []int64
	if err := db.Model(&models.Invoice{}).Where("fakturownia_id IN ?", ids).Pluck("fakturownia_id", &known).Error; err != nil {
		return nil, err
	}
	knownSet := make(map[int64]struct{}, len(known))
	for _, id := range known {
		knownSet[id] = struct{}{}
	}

	var fresh []fakturownia.Invoice
	for _, invoice := range invoices {
		if _, ok := knownSet[invoice.Id]; ok {
			continue
		}
		fresh = append(fresh, invoice)
	}
	return fresh, nil
}

func (r *Runner) drivesProduction(invoice fakturownia.Invoice) bool {
	return invoice.WarehouseId != nil && *invoice.WarehouseId == r.Options.ProductWarehouseId && invoice.Oid != ""
}

// balanceProducts lists the external ids of every product the month produces:
// products already on its production positions plus those sold from the product
// warehouse on new invoices.
func (r *Runner) balanceProducts(db *gorm.DB, monthId int, fresh []fakturownia.Invoice) ([]int64, error) {
	var known []int64
	err := db.Model(&models.ProductionPosition{}).
		Joins("JOIN production_docs ON production_docs.id = production_positions.production_doc_id").
		Joins("JOIN products ON products.id = production_positions.product_id").
		Where("production_docs.month_id = ?", monthId).
		Distinct().
		Order("products.fakturownia_id").
		Pluck("products.fakturownia_id", &known).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(known))
	productIds := make([]int64, 0, len(known))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		productIds = append(productIds, id)
	}
	for _, id := range known {
		add(id)
	}
	for _, invoice := range fresh {
		if !r.drivesProduction(invoice) {
			continue
		}
		for _, position := range invoice.Positions {
			if position.ProductId != nil {
				add(*position.ProductId)
			}
		}
	}
	return productIds, nil
}

// fetchBalances snapshots the stock balance once per product.
func (r *Runner) fetchBalances(ctx context.Context, productIds []int64) (map[int64]decimal.Decimal, error) {
	balances := make(map[int64]decimal.Decimal, len(productIds))
	for _, productId := range productIds {
		balance, err := r.Invoicing.GetProductStockBalance(ctx, productId)
		if err != nil {
			return nil, err
		}
		balances[productId] = balance
	}
	return balances, nil
}

func (r *Runner) importInvoice(tx *gorm.DB, month *models.Month, remote fakturownia.Invoice, report *StepReport) error {
	externalId := strconv.FormatInt(remote.Id, 10)
	date, err := utils.ParseDate(remote.IssueDate)
	if err != nil {
		report.warn("invoice", externalId, issueInvalidDate, fmt.Sprintf("invoice %s has invalid issue date %q", remote.Number, remote.IssueDate), nil)
		return nil
	}

	invoice := models.Invoice{
		FakturowniaId: remote.Id,
		Date:          date,
		MonthId:       month.ID,
		Number:        remote.Number,
		OrderId:       remote.Oid,
		Buyer:         remote.BuyerName,
		WarehouseId:   utils.DereferencePtr(remote.WarehouseId),
		Value:         remote.PriceNet,
		Currency:      remote.Currency,
		ExchangeRate:  exchangeRateFor(remote, report),
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return fmt.Errorf("create invoice %s: %w", remote.Number, err)
	}
	report.count("invoices")

	var doc *models.ProductionDoc
	if r.drivesProduction(remote) {
		if doc, err = getOrCreateProductionDoc(tx, month.ID, remote.Oid, report); err != nil {
			return err
		}
	} else if remote.WarehouseId != nil && *remote.WarehouseId == r.Options.ProductWarehouseId {
		report.warn("invoice", externalId, issueMissingOrder, fmt.Sprintf("invoice %s from the product warehouse has no order number", remote.Number), nil)
	}

	for _, line := range remote.Positions {
		if line.ProductId == nil {
			report.warn("invoice_position", externalId, issueMissingProduct, fmt.Sprintf("invoice %s line %q has no product", remote.Number, line.Name), line)
			continue
		}
		product, err := models.UpsertProduct(tx, *line.ProductId, line.Name)
		if err != nil {
			return err
		}

		position := models.InvoicePosition{
			InvoiceId:  invoice.ID,
			ProductId:  product.ID,
			Quantity:   line.Quantity,
			Price:      line.PriceNet,
			TotalPrice: models.NetTotal(line.TotalPriceNet, line.Discount),
		}
		if doc != nil {
			productionPosition, err := getOrCreateProductionPosition(tx, doc.ID, product.ID, report)
			if err != nil {
				return err
			}
			position.ProductionPositionId = &productionPosition.ID
		}
		if err := tx.Create(&position).Error; err != nil {
			return err
		}
		report.count("invoice_positions")
	}
	return nil
}

// exchangeRateFor stores a missing or zero invoice rate as 1 and reports the substitution.
func exchangeRateFor(remote fakturownia.Invoice, report *StepReport) decimal.Decimal {
	if remote.ExchangeRate.IsPositive() {
		return remote.ExchangeRate
	}
	report.warn("invoice", strconv.FormatInt(remote.Id, 10), issueMissingRate,
		fmt.Sprintf("invoice %s has exchange rate %s, stored as 1", remote.Number, remote.ExchangeRate.String()),
		map[string]string{"currency": remote.Currency})
	return decimal.NewFromInt(1)
}

func getOrCreateProductionDoc(tx *gorm.DB, monthId int, orderNumber string, report *StepReport) (*models.ProductionDoc, error) {
	var doc models.ProductionDoc
	err := tx.Where("month_id = ? AND order_number = ?", monthId, orderNumber).Take(&doc).Error
	if err == nil {
		return &doc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	doc = models.ProductionDoc{MonthId: monthId, OrderNumber: orderNumber}
	if err := tx.Create(&doc).Error; err != nil {
		return nil, err
	}
	report.count("production_docs")
	return &doc, nil
}

func getOrCreateProductionPosition(tx *gorm.DB, docId int, productId int, report *StepReport) (*models.ProductionPosition, error) {
	var position models.ProductionPosition
	err := tx.Where("production_doc_id = ? AND product_id = ?", docId, productId).Take(&position).Error
	if err == nil {
		return &position, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	position = models.ProductionPosition{ProductionDocId: docId, ProductId: productId}
	if err := tx.Create(&position).Error; err != nil {
		return nil, err
	}
	report.count("production_positions")
	return &position, nil
}

// importRws upserts the month's RWs by external id and links new ones to docs.
// A doc that already has an RW keeps it.
func importRws(tx *gorm.DB, month *models.Month, remotes []fakturownia.WarehouseDocument, report *StepReport) error {
	var docs []*models.ProductionDoc
	if err := tx.Where("month_id = ?", month.ID).Order("id").Find(&docs).Error; err != nil {
		return err
	}

	for _, remote := range remotes {
		rw, err := upsertRw(tx, month.ID, remote, report)
		if err != nil {
			return err
		}

		match := MatchRwToDoc(rw, docs)
		if match.Doc == nil {
			continue
		}
		if match.Ambiguous() {
			others := make([]string, 0, len(match.Others))
			for _, doc := range match.Others {
				others = append(others, doc.OrderNumber)
			}
			report.warn("rw", strconv.FormatInt(remote.Id, 10), issueAmbiguousRwLink,
				fmt.Sprintf("RW %s matches several orders, linked to %s", rw.Number, match.Doc.OrderNumber),
				map[string]interface{}{"description": rw.DescriptionText(), "also_matching": others})
		}
		if match.Doc.RwId != nil {
			continue
		}
		if err := tx.Model(match.Doc).Update("rw_id", rw.ID).Error; err != nil {
			return err
		}
		match.Doc.RwId = &rw.ID
		report.count("rw_links")
	}
	return nil
}

func upsertRw(tx *gorm.DB, monthId int, remote fakturownia.WarehouseDocument, report *StepReport) (*models.RW, error) {
	description := utils.NilIfEmpty(remote.Description)

	var rw models.RW
	err := tx.Where("fakturownia_id = ?", remote.Id).Take(&rw).Error
	if err == nil {
		if err := tx.Model(&rw).Updates(map[string]interface{}{
			"description": description,
			"month_id":    monthId,
		}).Error; err != nil {
			return nil, err
		}
		rw.Description = description
		rw.MonthId = &monthId
		return &rw, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fakturowniaId := remote.Id
	rw = models.RW{
		FakturowniaId: &fakturowniaId,
		Number:        remote.Number,
		IssueDate:     remote.IssueDate,
		Description:   description,
		MonthId:       &monthId,
	}
	if err := tx.Create(&rw).Error; err != nil {
		return nil, fmt.Errorf("create rw %s: %w", remote.Number, err)
	}
	report.count("rws")
	return &rw, nil
}

// classifyMonth writes the balance snapshot onto every position of the month and
// re-evaluates the flags. Once the ERP status of a doc has been checked its flags
// belong to the ERP: only positions not yet registered there are classified.
func classifyMonth(tx *gorm.DB, monthId int, balances map[int64]decimal.Decimal, classifiedAt time.Time, report *StepReport) error {
	var docs []*models.ProductionDoc
	err := tx.
		Preload("ProductionPositions", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("ProductionPositions.Product").
		Where("month_id = ?", monthId).
		Order("id").
		Find(&docs).Error
	if err != nil {
		return err
	}

	for _, doc := range docs {
		for _, position := range doc.ProductionPositions {
			if position.Product != nil {
				if balance, ok := balances[position.Product.FakturowniaId]; ok {
					position.Balance = balance
				}
			}
		}

		erpOwned := doc.StatusCheckedAt != nil
		if erpOwned {
			for _, position := range doc.ProductionPositions {
				if position.OdooId == nil {
					position.SetDoNotProduce()
				}
			}
			report.Stats["docs_erp_owned"]++
		} else {
			ClassifyProductionDoc(doc)
		}

		for _, position := range doc.ProductionPositions {
			if err := tx.Model(position).Updates(map[string]interface{}{
				"balance":        position.Balance,
				"do_not_produce": position.DoNotProduce,
			}).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(doc).Updates(map[string]interface{}{
			"do_not_produce": doc.DoNotProduce,
			"classified_at":  classifiedAt,
		}).Error; err != nil {
			return err
		}
		report.Stats["docs_classified"]++
		if !doc.DoNotProduce {
			report.Stats["docs_to_produce"]++
		}
	}
	return nil
}
