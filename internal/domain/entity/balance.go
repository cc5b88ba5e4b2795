package entity

// Asset is the balance of one symbol held at one address on one chain.
// Balance is an exact decimal string at the symbol's canonical decimals.
type Asset struct {
	Chain   ChainConfig `json:"chain"`
	Symbol  string      `json:"symbol"`
	Balance string      `json:"balance"`
}

// PortfolioEntry is the cross-chain total of one symbol.
// Breakdown is keyed by chain display name.
type PortfolioEntry struct {
	Symbol    string            `json:"symbol"`
	Total     string            `json:"total"`
	Breakdown map[string]string `json:"breakdown"`
}

// Portfolio maps a symbol to its aggregated entry.
type Portfolio map[string]PortfolioEntry

// RefreshResult is one full refresh pass: the portfolio and the per-chain asset
// lists it was computed from, keyed by chain ID.
type RefreshResult struct {
	Portfolio Portfolio          `json:"portfolio"`
	AssetsMap map[string][]Asset `json:"assetsMap"`
	Errors    []PortfolioError   `json:"errors,omitempty"`
}
