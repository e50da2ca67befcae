package integration

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

func round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

func monetary(qty, unit decimal.Decimal) decimal.Decimal {
	return round2(qty.Mul(unit))
}

func vatOf(net, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	return round2(net.Mul(rate).Div(hundred))
}
