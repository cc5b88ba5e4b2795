package provider

import (
	"sync"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/infrastructure/tokenloader"
)

type tokenProviderImpl struct {
	tokenDir    string
	tokenFiles  map[string]string // chain ID -> file
	logger      port.Logger
	mu          sync.Mutex
	tokensCache map[string][]entity.TokenInfo
}

// NewTokenProvider creates a TokenProvider reading from tokenDir and the
// per-chain files in tokenFiles.
func NewTokenProvider(tokenDir string, tokenFiles map[string]string, logger port.Logger) port.TokenProvider {
	return &tokenProviderImpl{
		tokenDir:   tokenDir,
		tokenFiles: tokenFiles,
		logger:     logger,
	}
}

// GetTokensByChain loads token definitions for chains.
// It caches the results after the first successful load.
func (p *tokenProviderImpl) GetTokensByChain(chains []entity.ChainConfig) (map[string][]entity.TokenInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tokensCache != nil {
		p.logger.Debug("Returning cached tokens by chain")
		return p.tokensCache, nil
	}

	p.logger.Debug("Loading tokens from disk", "directory", p.tokenDir)
	tokens, err := tokenloader.LoadTokens(p.tokenDir, p.tokenFiles, chains, p.logger)
	if err != nil {
		p.logger.Error("Failed to load tokens", "directory", p.tokenDir, "error", err)
		return nil, err
	}

	p.tokensCache = tokens
	p.logger.Info("Tokens loaded and cached successfully", "total_chains_with_tokens", len(tokens))
	return tokens, nil
}
