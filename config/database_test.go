package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMysqlDSN(t *testing.T) {
	assert.Equal(t,
		"prod:secret@tcp(db.internal:3306)/production?multiStatements=true&parseTime=true&loc=UTC&charset=utf8mb4",
		mysqlDSN("prod", "secret", "db.internal", "3306", "production"))

	assert.Equal(t,
		"prod:secret@unix(/cloudsql/proj:europe-central2:prod)/production?multiStatements=true&parseTime=true&loc=UTC&charset=utf8mb4",
		mysqlDSN("prod", "secret", "/cloudsql/proj:europe-central2:prod", "", "production"))
}

func TestBackoffIsCapped(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 16*time.Second, backoff(4))
	assert.Equal(t, 30*time.Second, backoff(5))
	assert.Equal(t, 30*time.Second, backoff(12))
}

func TestIntFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", " 25 ")
	assert.Equal(t, 25, intFromEnv("DB_MAX_OPEN_CONNS", 10))

	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	assert.Equal(t, 10, intFromEnv("DB_MAX_OPEN_CONNS", 10))
}
