package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xueqianLu/dappdash/internal/chain/eth"
	"github.com/xueqianLu/dappdash/internal/config"
	"github.com/xueqianLu/dappdash/internal/dapp"
	"github.com/xueqianLu/dappdash/internal/format"
	"github.com/xueqianLu/dappdash/internal/handler"
	"github.com/xueqianLu/dappdash/internal/logger"
	"github.com/xueqianLu/dappdash/internal/metrics"
	"github.com/xueqianLu/dappdash/internal/middleware"
	"github.com/xueqianLu/dappdash/internal/server"
	"github.com/xueqianLu/dappdash/internal/signer"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("dappd stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize components
	keyManager, err := signer.NewKeyManager(ctx, cfg.KeyManager, log.Named("keys"))
	if err != nil {
		return fmt.Errorf("failed to create key manager: %w", err)
	}
	ethSigner := signer.NewSigner(keyManager)

	backend, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Network.RPCURL, err)
	}
	defer backend.Close()

	m := metrics.New()
	client, err := eth.NewClient(backend, ethSigner, log.Named("chain"), m)
	if err != nil {
		return err
	}
	lib := dapp.NewLib(cfg, client)
	formatter := format.NewFormatter(cfg.IPFS)

	// Setup routes
	router := server.NewRouter(server.Routes{
		Health:        handler.NewHealthHandler(),
		Metrics:       m.Handler(),
		Accounts:      handler.NewAccountsHandler(ethSigner, log),
		CreateAccount: handler.NewCreateAccountHandler(ethSigner, log),
		ListActions:   handler.NewListActionsHandler(),
		Action:        handler.NewActionHandler(lib, formatter, log.Named("actions"), m),
	},
		middleware.NewAuthMiddleware(cfg.Auth.APIKey, cfg.Auth.APISecret, log.Named("auth")),
		middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, m),
	)

	// Start server
	srv := server.NewServer(router, cfg.Server, cfg.Network.CallTimeout)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("rpc", cfg.Network.RPCURL),
			zap.Int("accounts", len(ethSigner.Accounts())))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
