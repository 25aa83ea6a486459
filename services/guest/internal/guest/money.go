package guest

import "github.com/shopspring/decimal"

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// toAmount rounds to cents.
func toAmount(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func lineTotal(unitPrice float64, quantity int) decimal.Decimal {
	return money(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}
