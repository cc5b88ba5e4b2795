package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/metrics"
	"multichain_wallet/internal/pkg/seed"
)

const smartAccountFactoryABI = `[{"inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],"name":"getAddress","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

var (
	factoryABI     abi.ABI
	factoryABIOnce sync.Once
)

func parsedFactoryABI() abi.ABI {
	factoryABIOnce.Do(func() {
		var err error
		factoryABI, err = abi.JSON(strings.NewReader(smartAccountFactoryABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse smart account factory ABI: %v", err))
		}
	})
	return factoryABI
}

// WalletDeriverImpl implements port.WalletDeriver.
type WalletDeriverImpl struct {
	registry              port.ChainRegistry
	clients               port.ClientProvider
	logger                port.Logger
	maxConcurrentRoutines int
}

var _ port.WalletDeriver = (*WalletDeriverImpl)(nil)

// NewWalletDeriver creates a deriver over every chain in registry. clients is
// only used for smart-account lookups and may be nil when none are configured.
func NewWalletDeriver(registry port.ChainRegistry, clients port.ClientProvider, logger port.Logger, maxRoutines int) *WalletDeriverImpl {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &WalletDeriverImpl{registry: registry, clients: clients, logger: logger, maxConcurrentRoutines: maxRoutines}
}

// DeriveFromPassphrase derives the seed, derives every wallet and wipes the seed.
func (d *WalletDeriverImpl) DeriveFromPassphrase(ctx context.Context, passphrase string) ([]entity.WalletInfo, []entity.PortfolioError, error) {
	s, err := seed.Derive(passphrase)
	if err != nil {
		return nil, nil, err
	}
	defer seed.Wipe(s)
	wallets, errs := d.Derive(ctx, s)
	return wallets, errs, nil
}

// Derive returns one wallet per chain in registry order. A chain that fails is
// logged, reported and left out.
func (d *WalletDeriverImpl) Derive(ctx context.Context, s []byte) ([]entity.WalletInfo, []entity.PortfolioError) {
	chains := d.registry.All()
	slots := make([]*entity.WalletInfo, len(chains))
	failures := make([]error, len(chains))

	eg := new(errgroup.Group)
	eg.SetLimit(d.maxConcurrentRoutines)
	for i, chain := range chains {
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failures[i] = fmt.Errorf("panic while deriving: %v", r)
				}
			}()
			w, err := d.deriveChain(ctx, chain, s)
			if err != nil {
				failures[i] = err
				return nil
			}
			slots[i] = &w
			return nil
		})
	}
	_ = eg.Wait()

	wallets := make([]entity.WalletInfo, 0, len(chains))
	var errs []entity.PortfolioError
	for i, chain := range chains {
		if failures[i] != nil {
			d.logger.Error("Failed to derive wallet for chain, skipping", "chain", chain.ID, "error", failures[i])
			errs = append(errs, entity.PortfolioError{ChainID: chain.ID, NetworkName: chain.Name, Message: failures[i].Error()})
			continue
		}
		wallets = append(wallets, *slots[i])
	}
	metrics.DerivedChains.Set(float64(len(wallets)))
	d.logger.Info("Wallets derived", "count", len(wallets), "failed", len(errs))
	return wallets, errs
}

func (d *WalletDeriverImpl) deriveChain(ctx context.Context, chain entity.ChainConfig, s []byte) (entity.WalletInfo, error) {
	var (
		address, key string
		err          error
	)
	//exhaustive:enforce
	switch chain.Kind {
	case entity.KindEVM:
		address, key, err = deriveEVM(s, chain.Path)
	case entity.KindBitcoin:
		address, key, err = deriveBitcoin(s, chain.Path)
	case entity.KindSolana:
		address, key, err = deriveSolana(s, chain.Path)
	case entity.KindCardano:
		address, key, err = deriveCardano(s, chain.Path)
	default:
		err = entity.UnsupportedKind("derive", chain.Kind)
	}
	if err != nil {
		return entity.WalletInfo{}, err
	}

	w := entity.WalletInfo{Chain: chain, Address: address, PrivateKey: key}
	if chain.Kind == entity.KindEVM && chain.SmartAccount != nil {
		if sa, ok := d.smartAccountAddress(ctx, chain, address); ok {
			w.EOAAddress = address
			w.Address = sa
		}
	}
	return w, nil
}

// smartAccountAddress asks the factory for the counterfactual address of owner.
// It reports false when the call fails or the factory answers with its own
// address or the zero address.
func (d *WalletDeriverImpl) smartAccountAddress(ctx context.Context, chain entity.ChainConfig, owner string) (string, bool) {
	if d.clients == nil {
		return "", false
	}
	factory := common.HexToAddress(chain.SmartAccount.FactoryAddress)
	fabi := parsedFactoryABI()
	data, err := fabi.Pack("getAddress", common.HexToAddress(owner), new(big.Int).SetUint64(chain.SmartAccount.Salt))
	if err != nil {
		d.logger.Warn("Failed to pack smart account call, using EOA", "chain", chain.ID, "error", err)
		return "", false
	}

	client, err := d.clients.EVM(chain)
	if err != nil {
		d.logger.Warn("No client for smart account lookup, using EOA", "chain", chain.ID, "error", err)
		return "", false
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data})
	if err != nil {
		d.logger.Warn("Smart account factory call failed, using EOA", "chain", chain.ID, "error", err)
		return "", false
	}
	unpacked, err := fabi.Unpack("getAddress", out)
	if err != nil || len(unpacked) == 0 {
		d.logger.Warn("Smart account factory returned garbage, using EOA", "chain", chain.ID, "error", err)
		return "", false
	}
	addr, ok := unpacked[0].(common.Address)
	if !ok || addr == factory || addr == (common.Address{}) {
		d.logger.Warn("Smart account factory returned a degenerate address, using EOA", "chain", chain.ID, "address", addr.Hex())
		return "", false
	}
	return addr.Hex(), true
}
