package provider

import (
	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/infrastructure/walletloader"
)

type walletProviderImpl struct {
	walletFilePath string
	registry       port.ChainRegistry
	logger         port.Logger
}

// NewWalletProvider creates a WalletProvider over the watch list at filePath.
func NewWalletProvider(filePath string, registry port.ChainRegistry, logger port.Logger) port.WalletProvider {
	return &walletProviderImpl{walletFilePath: filePath, registry: registry, logger: logger}
}

// GetWallets loads the watch list and resolves each entry against the registry.
// Entries for unknown or disabled chains are skipped. The result carries no keys.
func (p *walletProviderImpl) GetWallets() ([]entity.WalletInfo, error) {
	p.logger.Debug("Loading wallets from file", "path", p.walletFilePath)
	watched, err := walletloader.LoadWatchList(p.walletFilePath)
	if err != nil {
		p.logger.Error("Failed to load wallets", "path", p.walletFilePath, "error", err)
		return nil, err
	}

	wallets := make([]entity.WalletInfo, 0, len(watched))
	for _, w := range watched {
		chain, ok := p.registry.ByID(w.ChainID)
		if !ok {
			p.logger.Warn("Skipping wallet on unknown chain", "chain", w.ChainID, "address", w.Address)
			continue
		}
		wallets = append(wallets, entity.WalletInfo{Chain: chain, Address: w.Address})
	}
	p.logger.Info("Wallets loaded successfully", "count", len(wallets), "path", p.walletFilePath)
	return wallets, nil
}
