package models

import (
	"bitbucket.org/mmdatafocus/production_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()

	return db.AutoMigrate(
		&Month{}, &Product{},
		&Invoice{}, &InvoicePosition{},
		&RW{}, &ProductionDoc{}, &ProductionPosition{},
		&SyncRun{}, &SyncError{},
		&IdempotencyKey{},
	)
}
