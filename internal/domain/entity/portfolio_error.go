package entity

// PortfolioError records a per-chain failure that was recovered locally during
// derivation or balance refresh. It is reported alongside results, never instead of them.
type PortfolioError struct {
	ChainID       string `json:"chainId"`
	NetworkName   string `json:"networkName"`
	WalletAddress string `json:"walletAddress,omitempty"`
	TokenSymbol   string `json:"tokenSymbol,omitempty"`
	Message       string `json:"message"`
}
