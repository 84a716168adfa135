package models

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrDuplicate    = errors.New("duplicate record")
	ErrInvalidMonth = errors.New("invalid month")
)

// IsDuplicateKeyErr reports a MySQL unique-constraint violation (1062).
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
