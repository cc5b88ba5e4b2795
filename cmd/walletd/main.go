package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"multichain_wallet/internal/app/port"
	"multichain_wallet/internal/app/provider"
	"multichain_wallet/internal/app/service"
	"multichain_wallet/internal/domain/entity"
	"multichain_wallet/internal/infrastructure/configloader"
	"multichain_wallet/internal/infrastructure/fingerprintstore"
	clientprovider "multichain_wallet/internal/infrastructure/network/client"
	networkdefinition "multichain_wallet/internal/infrastructure/network/definition"
	"multichain_wallet/internal/infrastructure/restapi"
	"multichain_wallet/internal/pkg/logger"
	"multichain_wallet/internal/pkg/metrics"
	"multichain_wallet/internal/pkg/utils"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.Init(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync() //nolint:errcheck

	appLogger := logger.NewSlogAdapter()
	logger.Info("Wallet service starting", "config", cfgPath, "logLevel", cfg.Logging.Level)

	metrics.MustRegisterMetrics()

	registry := networkdefinition.NewChainRegistry(appLogger, buildOverrides(cfg, appLogger))
	clients := clientprovider.NewClientProvider(cfg, appLogger)

	deriver := service.NewWalletDeriver(registry, clients, appLogger, cfg.Performance.MaxConcurrentRoutines)
	balances := service.NewBalanceService(clients, appLogger, time.Duration(cfg.Indexer.CacheTTLSeconds)*time.Second)
	portfolioService := service.NewPortfolioService(balances, appLogger, cfg.Performance.MaxConcurrentRoutines)
	fees := service.NewFeeService(clients, appLogger)
	txs := service.NewTxService(clients, appLogger)

	store, closeStore, err := fingerprintstore.New(ctx, cfg.Fingerprints, appLogger)
	if err != nil {
		logger.Fatal("Failed to open fingerprint store", "driver", cfg.Fingerprints.Driver, "error", err)
	}
	walletService := service.NewWalletService(balances, fees, txs, store, appLogger)

	walletHandler := restapi.NewWalletHandler(registry, deriver, fees, walletService, walletService, appLogger)
	portfolioHandler := restapi.NewPortfolioHandler(portfolioService, registry, appLogger)
	router := restapi.SetupRouter(walletHandler, portfolioHandler, logger.FromZap(zapLogger.Named("http")))

	if cfg.Refresh.WalletsFile != "" {
		wallets := provider.NewWalletProvider(cfg.Refresh.WalletsFile, registry, appLogger)
		interval := time.Duration(cfg.Refresh.IntervalSeconds) * time.Second
		go runRefresh(ctx, wallets, portfolioService, portfolioHandler, interval, appLogger)
	} else {
		logger.Info("No watch list configured, background refresh disabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server forced to shutdown", "error", err)
	}
	if err := closeStore(shutdownCtx); err != nil {
		logger.Error("Failed to close fingerprint store", "error", err)
	}
	logger.Info("Wallet service stopped")
}

// buildOverrides merges the configured chain overrides with the extra token
// lists found under the tokens directory.
func buildOverrides(cfg *configloader.Config, log port.Logger) []networkdefinition.Override {
	tokenFiles := make(map[string]string)
	for _, c := range cfg.Chains {
		if c.TokensFile != "" {
			tokenFiles[strings.ToLower(c.ID)] = c.TokensFile
		}
	}

	tokens := map[string][]entity.TokenInfo{}
	if cfg.TokensDir != "" || len(tokenFiles) > 0 {
		loaded, err := provider.NewTokenProvider(cfg.TokensDir, tokenFiles, log).GetTokensByChain(networkdefinition.KnownChains())
		if err != nil {
			log.Warn("Failed to load token lists, using built-in tokens only", "error", err)
		} else {
			tokens = loaded
		}
	}

	overrides := make([]networkdefinition.Override, 0, len(cfg.Chains)+len(tokens))
	configured := make(map[string]struct{}, len(cfg.Chains))
	for _, c := range cfg.Chains {
		id := strings.ToLower(c.ID)
		configured[id] = struct{}{}
		o := networkdefinition.Override{
			ID:          id,
			RPC:         c.RPC,
			Disabled:    c.Disabled,
			ExtraTokens: tokens[id],
		}
		if c.SmartAccount != nil {
			o.SmartAccount = &entity.SmartAccountConfig{
				FactoryAddress: c.SmartAccount.FactoryAddress,
				Salt:           c.SmartAccount.Salt,
			}
		}
		overrides = append(overrides, o)
	}
	for id, list := range tokens {
		if _, ok := configured[id]; ok || len(list) == 0 {
			continue
		}
		overrides = append(overrides, networkdefinition.Override{ID: id, ExtraTokens: list})
	}
	return overrides
}

// runRefresh aggregates the watch list every interval and publishes the result.
func runRefresh(
	ctx context.Context,
	wallets port.WalletProvider,
	portfolio port.PortfolioService,
	handler *restapi.PortfolioHandler,
	interval time.Duration,
	log port.Logger,
) {
	refresh := func() {
		list, err := wallets.GetWallets()
		if err != nil {
			log.Error("Failed to load watch list", "error", err)
			return
		}
		start := time.Now()
		res := portfolio.RefreshNow(ctx, list)
		handler.Publish(res)
		log.Info("Portfolio refreshed", "wallets", len(list), "assets", len(res.Portfolio), "errors", len(res.Errors), "took", time.Since(start))
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
