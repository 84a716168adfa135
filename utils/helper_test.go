package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-29", FormatDate(EndOfMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))))
	assert.Equal(t, "2023-12-31", FormatDate(EndOfMonth(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC))))
	assert.Equal(t, "2024-04-01", FormatDate(StartOfMonth(time.Date(2024, 4, 30, 15, 0, 0, 0, time.UTC))))
}

func TestParseDecimal(t *testing.T) {
	d, err := ParseDecimal(" 120.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("120.5")))

	_, err = ParseDecimal("")
	assert.Error(t, err)
	_, err = ParseDecimal("12,5")
	assert.Error(t, err)
}

func TestPointerHelpers(t *testing.T) {
	assert.Nil(t, NilIfEmpty(""))
	assert.Equal(t, "ZW-1", *NilIfEmpty("ZW-1"))
	assert.Equal(t, 7, DereferencePtr[int](nil, 7))
	n := 3
	assert.Equal(t, 3, DereferencePtr(&n))
}
