package odoo

import (
	"time"

	"bitbucket.org/mmdatafocus/production_backend/utils"
	"github.com/shopspring/decimal"
)

// Odoo serialises every empty field as boolean false, so readers have to
// tell "false" apart from a real value.

func stringValue(v interface{}) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func boolValue(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func intValue(v interface{}) *int {
	switch n := v.(type) {
	case int64:
		i := int(n)
		return &i
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	}
	return nil
}

func decimalValue(v interface{}) decimal.NullDecimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(n))
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(n))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(n)))
	case string:
		if d, err := utils.ParseDecimal(n); err == nil {
			return decimal.NewNullDecimal(d)
		}
	}
	return decimal.NullDecimal{}
}

// idOrFalse writes an unset reference as false.
func idOrFalse(id *int64) interface{} {
	if id == nil {
		return false
	}
	return *id
}

func dateOrFalse(t *time.Time) interface{} {
	if t == nil {
		return false
	}
	return t.Format("2006-01-02")
}

func stringOrFalse(s string) interface{} {
	if s == "" {
		return false
	}
	return s
}
