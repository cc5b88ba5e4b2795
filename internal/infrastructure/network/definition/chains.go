package networkdefinition

import "multichain_wallet/internal/domain/entity"

// Predefined chains, in display order.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.ChainConfig{
		ID:      "ethereum",
		Name:    "Ethereum",
		Kind:    entity.KindEVM,
		RPC:     "https://ethereum-rpc.publicnode.com",
		Path:    "m/44'/60'/0'/0",
		ChainID: 1,
		Native:  entity.NativeCurrency{Name: "Ethereum", Symbol: "ETH", Decimals: 18},
		Tokens: []entity.TokenInfo{
			{Address: "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", Name: "Wrapped Bitcoin", Symbol: "WBTC", Decimals: 8, ChainID: 1},
			{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Name: "Wrapped Ethereum", Symbol: "WETH", Decimals: 18, ChainID: 1},
		},
	}
	BNB = entity.ChainConfig{
		ID:      "bnb",
		Name:    "BNB",
		Kind:    entity.KindEVM,
		RPC:     "https://bsc.publicnode.com",
		Path:    "m/44'/60'/0'/0",
		ChainID: 56,
		Native:  entity.NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
		Tokens: []entity.TokenInfo{
			{Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Name: "Wrapped BNB", Symbol: "WBNB", Decimals: 18, ChainID: 56},
			{Address: "0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c", Name: "Bitcoin BEP20", Symbol: "BTCB", Decimals: 18, ChainID: 56},
		},
	}
	Polygon = entity.ChainConfig{
		ID:      "polygon",
		Name:    "Polygon",
		Kind:    entity.KindEVM,
		RPC:     "https://polygon-rpc.com/",
		Path:    "m/44'/60'/0'/0",
		ChainID: 137,
		Native:  entity.NativeCurrency{Name: "MATIC", Symbol: "MATIC", Decimals: 18},
		Tokens: []entity.TokenInfo{
			{Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Name: "Wrapped MATIC", Symbol: "WMATIC", Decimals: 18, ChainID: 137},
			{Address: "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6", Name: "Wrapped Bitcoin", Symbol: "WBTC", Decimals: 8, ChainID: 137},
		},
	}
	Bitcoin = entity.ChainConfig{
		ID:     "bitcoin",
		Name:   "Bitcoin",
		Kind:   entity.KindBitcoin,
		RPC:    "https://blockstream.info/api",
		Path:   "m/44'/0'/0'/0",
		Native: entity.NativeCurrency{Name: "Bitcoin", Symbol: "BTC", Decimals: 8},
	}
	Solana = entity.ChainConfig{
		ID:     "solana",
		Name:   "Solana",
		Kind:   entity.KindSolana,
		RPC:    "https://api.mainnet-beta.solana.com",
		Path:   "m/44'/501'/0'/0",
		Native: entity.NativeCurrency{Name: "Solana", Symbol: "SOL", Decimals: 9},
	}
	Cardano = entity.ChainConfig{
		ID:     "cardano",
		Name:   "Cardano",
		Kind:   entity.KindCardano,
		RPC:    "https://cardano-mainnet.blockfrost.io/api/v0",
		Path:   "m/1852'/1815'/0'/0",
		Native: entity.NativeCurrency{Name: "Cardano", Symbol: "ADA", Decimals: 6},
	}
)

// DefaultSafeFactory is the counterfactual smart-account factory used when a
// chain enables smart accounts without naming one.
const DefaultSafeFactory = "0x75cf11467937ce3f2f357ce24ffc3dbf8fd5c226"

// allKnownDefinitions lists the built-in chains in registry order.
func allKnownDefinitions() []entity.ChainConfig {
	return []entity.ChainConfig{Ethereum, BNB, Polygon, Bitcoin, Solana, Cardano}
}

// KnownChains returns a copy of the built-in chains before any override.
func KnownChains() []entity.ChainConfig {
	return allKnownDefinitions()
}
