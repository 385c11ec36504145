package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// MaxMoney is the largest amount a NUMERIC(10,2) money column holds.
var MaxMoney = decimal.RequireFromString("99999999.99")

// NumericToDecimal converts a NUMERIC column to a decimal. NULL and
// unreadable values are zero.
func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	s, ok := val.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DecimalToNumeric stores d with two decimal places.
func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// FormatNumeric renders a money column as a fixed two-place string.
func FormatNumeric(n pgtype.Numeric) string {
	return NumericToDecimal(n).StringFixed(2)
}
