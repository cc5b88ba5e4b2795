package port

import "multichain_wallet/internal/domain/entity"

// TokenProvider supplies extra token lists for chains, keyed by chain ID.
type TokenProvider interface {
	GetTokensByChain(chains []entity.ChainConfig) (map[string][]entity.TokenInfo, error)
}
