package port

import (
	"context"

	"multichain_wallet/internal/domain/entity"
)

// WalletDeriver turns a seed into one wallet per registered chain.
type WalletDeriver interface {
	// Derive returns wallets in registry order. Chains that fail are omitted.
	Derive(ctx context.Context, seed []byte) ([]entity.WalletInfo, []entity.PortfolioError)
	// DeriveFromPassphrase derives the seed, derives the wallets and wipes the seed.
	DeriveFromPassphrase(ctx context.Context, passphrase string) ([]entity.WalletInfo, []entity.PortfolioError, error)
}

// FingerprintStore keeps the fingerprints of registered passphrases.
type FingerprintStore interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, fingerprint string) error
}

// WalletProvider supplies the watched wallets refreshed in the background.
type WalletProvider interface {
	GetWallets() ([]entity.WalletInfo, error)
}
