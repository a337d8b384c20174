package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Decimal converts a NUMERIC column to decimal. NULL and unparsable values
// become zero.
func Decimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Numeric converts a money amount to NUMERIC with two decimal places.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// Text returns a valid pgtype.Text for non-empty s and NULL otherwise.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
