package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/pkg/metrics"
	"multichain_wallet/internal/pkg/utils"
)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	fetcher               port.BalanceFetcher
	logger                port.Logger
	maxConcurrentRoutines int
}

var _ port.PortfolioService = (*PortfolioServiceImpl)(nil)

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
func NewPortfolioService(fetcher port.BalanceFetcher, l port.Logger, maxRoutines int) *PortfolioServiceImpl {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioServiceImpl{fetcher: fetcher, logger: l, maxConcurrentRoutines: maxRoutines}
}

// Aggregate fetches every wallet and merges the assets by symbol.
func (s *PortfolioServiceImpl) Aggregate(ctx context.Context, wallets []entity.WalletInfo) entity.Portfolio {
	return s.RefreshNow(ctx, wallets).Portfolio
}

// RefreshNow is one full refresh pass. A wallet whose fetch fails contributes
// no assets and an entry in Errors.
func (s *PortfolioServiceImpl) RefreshNow(ctx context.Context, wallets []entity.WalletInfo) entity.RefreshResult {
	defer metrics.ObserveRefresh(time.Now())

	perWallet := make([][]entity.Asset, len(wallets))
	failures := make([]error, len(wallets))

	eg := new(errgroup.Group)
	eg.SetLimit(s.maxConcurrentRoutines)
	for i, w := range wallets {
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failures[i] = fmt.Errorf("panic while fetching: %v", r)
				}
			}()
			assets, err := s.fetcher.Fetch(ctx, w.Chain, w.Address)
			if err != nil {
				failures[i] = err
				return nil
			}
			perWallet[i] = assets
			return nil
		})
	}
	_ = eg.Wait()

	result := entity.RefreshResult{AssetsMap: make(map[string][]entity.Asset)}
	var all []entity.Asset
	for i, w := range wallets {
		if failures[i] != nil {
			s.logger.Error("Error fetching balances for wallet", "chain", w.Chain.ID, "address", w.Address, "error", failures[i])
			result.Errors = append(result.Errors, entity.PortfolioError{
				ChainID:       w.Chain.ID,
				NetworkName:   w.Chain.Name,
				WalletAddress: w.Address,
				Message:       failures[i].Error(),
			})
			continue
		}
		result.AssetsMap[w.Chain.ID] = append(result.AssetsMap[w.Chain.ID], perWallet[i]...)
		all = append(all, perWallet[i]...)
	}

	result.Portfolio = AggregateAssets(s.logger, all)
	s.logger.Info("Portfolio refresh complete", "wallets", len(wallets), "symbols", len(result.Portfolio), "errors", len(result.Errors))
	return result
}

// AggregateAssets merges assets by symbol. Each chain's share is summed and
// rounded to the symbol precision; the total is the exact sum of those shares.
// Symbols whose total is not positive are dropped.
func AggregateAssets(logger port.Logger, assets []entity.Asset) entity.Portfolio {
	bySymbol := make(map[string]map[string]decimal.Decimal)
	for _, a := range assets {
		v, err := utils.ParseDecimal(a.Balance)
		if err != nil {
			logger.Warn("Skipping asset with unparsable balance", "chain", a.Chain.ID, "symbol", a.Symbol, "balance", a.Balance)
			continue
		}
		if bySymbol[a.Symbol] == nil {
			bySymbol[a.Symbol] = make(map[string]decimal.Decimal)
		}
		bySymbol[a.Symbol][a.Chain.Name] = bySymbol[a.Symbol][a.Chain.Name].Add(v)
	}

	portfolio := make(entity.Portfolio)
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		precision := entity.SymbolPrecision(sym)
		total := decimal.Zero
		breakdown := make(map[string]string)
		for chainName, sum := range bySymbol[sym] {
			share := sum.Round(precision)
			if !share.IsPositive() {
				continue
			}
			breakdown[chainName] = share.StringFixed(precision)
			total = total.Add(share)
		}
		if !total.IsPositive() {
			continue
		}
		portfolio[sym] = entity.PortfolioEntry{
			Symbol:    sym,
			Total:     total.StringFixed(precision),
			Breakdown: breakdown,
		}
	}
	return portfolio
}
