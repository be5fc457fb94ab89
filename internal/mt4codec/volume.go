package mt4codec

import "github.com/shopspring/decimal"

// centiLotFactor is the server's fixed-point scale: wire volumes are lots
// multiplied by 100.
var centiLotFactor = decimal.NewFromInt(100)

// LotsToCentiLots converts a decimal lot size into the server's centi-lot
// integer encoding. Using decimal here instead of float64 avoids the
// rounding drift a naive `lots*100` would accumulate across repeated
// conversions for odd lot sizes like 0.03.
func LotsToCentiLots(lots decimal.Decimal) int32 {
	return int32(lots.Mul(centiLotFactor).Round(0).IntPart())
}

// CentiLotsToLots converts the server's integer centi-lot volume back
// into a decimal lot size.
func CentiLotsToLots(centiLots int32) decimal.Decimal {
	return decimal.NewFromInt(int64(centiLots)).Div(centiLotFactor)
}
