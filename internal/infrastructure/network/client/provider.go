package client

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/infrastructure/configloader"
)

// clientProvider implements port.ClientProvider. Clients are created on first
// use and cached by chain ID for the life of the process.
type clientProvider struct {
	mu                sync.Mutex
	evm               map[string]port.EVMClient
	bitcoin           map[string]port.BitcoinClient
	solana            map[string]port.SolanaClient
	cardano           map[string]port.CardanoClient
	log               port.Logger
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
	limiter           *rate.Limiter
	blockfrostKey     string
}

// NewClientProvider creates a provider configured from cfg. One rate limiter is
// shared by every REST indexer client.
func NewClientProvider(cfg *configloader.Config, log port.Logger) port.ClientProvider {
	return &clientProvider{
		evm:               make(map[string]port.EVMClient),
		bitcoin:           make(map[string]port.BitcoinClient),
		solana:            make(map[string]port.SolanaClient),
		cardano:           make(map[string]port.CardanoClient),
		log:               log,
		connectionTimeout: time.Duration(cfg.Performance.ConnectionTimeoutSeconds) * time.Second,
		rpcCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
		limiter:           rate.NewLimiter(rate.Limit(cfg.Indexer.RateLimit), cfg.Indexer.BurstLimit),
		blockfrostKey:     cfg.Indexer.BlockfrostProjectID,
	}
}

func checkKind(chain entity.ChainConfig, want entity.ChainKind) error {
	if chain.Kind != want {
		return entity.NewError(entity.CodeUnsupportedChainKind, "get client", chain.Kind,
			fmt.Errorf("chain %s is %s, not %s", chain.ID, chain.Kind, want))
	}
	return nil
}

func (p *clientProvider) EVM(chain entity.ChainConfig) (port.EVMClient, error) {
	if err := checkKind(chain, entity.KindEVM); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.evm[chain.ID]; ok {
		return c, nil
	}
	p.log.Info("Creating new EVM client", "chain", chain.ID, "rpc", chain.RPC)
	c, err := NewEVMClient(chain, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.log.Error("Failed to create EVM client", "chain", chain.ID, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", chain.ID, err)
	}
	p.evm[chain.ID] = c
	return c, nil
}

func (p *clientProvider) Bitcoin(chain entity.ChainConfig) (port.BitcoinClient, error) {
	if err := checkKind(chain, entity.KindBitcoin); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.bitcoin[chain.ID]; ok {
		return c, nil
	}
	p.log.Info("Creating new Esplora client", "chain", chain.ID, "rpc", chain.RPC)
	c := NewBitcoinClient(chain, p.rpcCallTimeout, p.limiter)
	p.bitcoin[chain.ID] = c
	return c, nil
}

func (p *clientProvider) Solana(chain entity.ChainConfig) (port.SolanaClient, error) {
	if err := checkKind(chain, entity.KindSolana); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.solana[chain.ID]; ok {
		return c, nil
	}
	p.log.Info("Creating new Solana client", "chain", chain.ID, "rpc", chain.RPC)
	c := NewSolanaClient(chain, p.rpcCallTimeout)
	p.solana[chain.ID] = c
	return c, nil
}

func (p *clientProvider) Cardano(chain entity.ChainConfig) (port.CardanoClient, error) {
	if err := checkKind(chain, entity.KindCardano); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cardano[chain.ID]; ok {
		return c, nil
	}
	if p.blockfrostKey == "" {
		p.log.Warn("Blockfrost project id is not set, requests will be rejected", "chain", chain.ID)
	}
	p.log.Info("Creating new Blockfrost client", "chain", chain.ID, "rpc", chain.RPC)
	c := NewCardanoClient(chain, p.blockfrostKey, p.rpcCallTimeout, p.limiter)
	p.cardano[chain.ID] = c
	return c, nil
}
