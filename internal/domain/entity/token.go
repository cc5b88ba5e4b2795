package entity

// TokenInfo holds the details of a fungible token carried on a chain.
type TokenInfo struct {
	Address  string `json:"address" yaml:"address"`
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
	// ChainID is checked against the owning chain when loading token files.
	ChainID uint64 `json:"chainId,omitempty" yaml:"chainId,omitempty"`
}

// symbolPrecision is the display precision used when summing across chains.
var symbolPrecision = map[string]int32{
	"ETH":  18,
	"BTC":  8,
	"WBTC": 8,
	"SOL":  9,
	"ADA":  6,
}

// DefaultSymbolPrecision applies to any symbol without a fixed convention.
const DefaultSymbolPrecision int32 = 8

// SymbolPrecision returns the fixed number of decimals a portfolio total for
// symbol is rendered with.
func SymbolPrecision(symbol string) int32 {
	if p, ok := symbolPrecision[symbol]; ok {
		return p
	}
	return DefaultSymbolPrecision
}
