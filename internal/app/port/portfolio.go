package port

import (
	"context"

	"multichain_wallet/internal/domain/entity"
)

// BalanceFetcher returns the assets held at one address.
type BalanceFetcher interface {
	// Fetch returns an empty list for an address that is invalid for the chain.
	Fetch(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error)
}

// PortfolioService aggregates balances across wallets.
type PortfolioService interface {
	Aggregate(ctx context.Context, wallets []entity.WalletInfo) entity.Portfolio
	RefreshNow(ctx context.Context, wallets []entity.WalletInfo) entity.RefreshResult
}
