package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/patrickmn/go-cache"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/utils"
)

// BalanceServiceImpl implements port.BalanceFetcher.
type BalanceServiceImpl struct {
	clients      port.ClientProvider
	logger       port.Logger
	cardanoCache *cache.Cache
}

var _ port.BalanceFetcher = (*BalanceServiceImpl)(nil)

// NewBalanceService creates a fetcher. Cardano results are cached per address for cardanoTTL.
func NewBalanceService(clients port.ClientProvider, logger port.Logger, cardanoTTL time.Duration) *BalanceServiceImpl {
	return &BalanceServiceImpl{
		clients:      clients,
		logger:       logger,
		cardanoCache: cache.New(cardanoTTL, 2*cardanoTTL),
	}
}

// Fetch returns the assets held at address. An address that does not fit the
// chain's grammar yields an empty list without any network call.
func (s *BalanceServiceImpl) Fetch(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error) {
	if !ValidateAddress(chain.Kind, address) {
		s.logger.Warn("Invalid address for chain, returning no assets", "chain", chain.ID, "address", address)
		return []entity.Asset{}, nil
	}

	//exhaustive:enforce
	switch chain.Kind {
	case entity.KindEVM:
		return s.fetchEVM(ctx, chain, address)
	case entity.KindBitcoin:
		return s.fetchBitcoin(ctx, chain, address)
	case entity.KindSolana:
		return s.fetchSolana(ctx, chain, address)
	case entity.KindCardano:
		return s.fetchCardano(ctx, chain, address)
	default:
		return nil, entity.UnsupportedKind("fetch balance", chain.Kind)
	}
}

func nativeAsset(chain entity.ChainConfig, amount *big.Int) entity.Asset {
	return entity.Asset{Chain: chain, Symbol: chain.Native.Symbol, Balance: utils.FormatUnits(amount, chain.Native.Decimals)}
}

func (s *BalanceServiceImpl) fetchEVM(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error) {
	client, err := s.clients.EVM(chain)
	if err != nil {
		return nil, err
	}

	tokens := make([]entity.TokenInfo, 0, len(chain.Tokens))
	for _, t := range chain.Tokens {
		if !common.IsHexAddress(t.Address) {
			s.logger.Warn("Skipping token with invalid address", "chain", chain.ID, "symbol", t.Symbol, "address", t.Address)
			continue
		}
		tokens = append(tokens, t)
	}

	native, tokenBalances, err := client.Balances(ctx, address, tokens)
	if err != nil {
		s.logger.Error("Failed to fetch evm balances", "chain", chain.ID, "address", address, "error", err)
		return nil, err
	}

	assets := make([]entity.Asset, 0, len(tokenBalances)+1)
	assets = append(assets, nativeAsset(chain, native))
	for _, tb := range tokenBalances {
		switch {
		case tb.NoCode:
			s.logger.Warn("No contract code at token address, skipping", "chain", chain.ID, "symbol", tb.Token.Symbol, "address", tb.Token.Address)
		case tb.Err != nil:
			s.logger.Warn("Failed to read token balance", "chain", chain.ID, "symbol", tb.Token.Symbol, "error", tb.Err)
			assets = append(assets, entity.Asset{Chain: chain, Symbol: tb.Token.Symbol, Balance: utils.FormatUnits(nil, tb.Token.Decimals)})
		default:
			assets = append(assets, entity.Asset{Chain: chain, Symbol: tb.Token.Symbol, Balance: utils.FormatUnits(tb.Balance, tb.Token.Decimals)})
		}
	}
	return assets, nil
}

func (s *BalanceServiceImpl) fetchBitcoin(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error) {
	client, err := s.clients.Bitcoin(chain)
	if err != nil {
		return nil, err
	}
	sats, err := client.AddressBalance(ctx, address)
	if err != nil {
		s.logger.Warn("Failed to fetch bitcoin balance, reporting zero", "chain", chain.ID, "address", address, "error", err)
		sats = 0
	}
	return []entity.Asset{nativeAsset(chain, big.NewInt(sats))}, nil
}

func (s *BalanceServiceImpl) fetchSolana(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error) {
	client, err := s.clients.Solana(chain)
	if err != nil {
		return nil, err
	}
	lamports, err := client.Balance(ctx, solana.MustPublicKeyFromBase58(address))
	if err != nil {
		s.logger.Warn("Failed to fetch solana balance, reporting zero", "chain", chain.ID, "address", address, "error", err)
		lamports = 0
	}
	return []entity.Asset{nativeAsset(chain, new(big.Int).SetUint64(lamports))}, nil
}

func (s *BalanceServiceImpl) fetchCardano(ctx context.Context, chain entity.ChainConfig, address string) ([]entity.Asset, error) {
	cacheKey := chain.ID + ":" + strings.ToLower(address)
	if cached, ok := s.cardanoCache.Get(cacheKey); ok {
		if assets, ok := cached.([]entity.Asset); ok {
			s.logger.Debug("Returning cached cardano balance", "address", address)
			return assets, nil
		}
	}

	client, err := s.clients.Cardano(chain)
	if err != nil {
		return nil, err
	}
	utxos, err := client.AddressUTXOs(ctx, address)
	if err != nil {
		if errors.Is(err, port.ErrUpstreamStatus) {
			s.logger.Warn("Indexer rejected cardano balance request, caching zero", "address", address, "error", err)
			assets := []entity.Asset{nativeAsset(chain, big.NewInt(0))}
			s.cardanoCache.SetDefault(cacheKey, assets)
			return assets, nil
		}
		s.logger.Warn("Failed to fetch cardano balance, reporting zero", "address", address, "error", err)
		return []entity.Asset{nativeAsset(chain, nil)}, nil
	}

	total := new(big.Int)
	for _, u := range utxos {
		total.Add(total, new(big.Int).SetUint64(u.Lovelace))
	}
	assets := []entity.Asset{nativeAsset(chain, total)}
	s.cardanoCache.SetDefault(cacheKey, assets)
	return assets, nil
}
