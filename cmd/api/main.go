package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/attid/MyMTLWalletBot-sub000/internal/adapters/balance"
	"github.com/attid/MyMTLWalletBot-sub000/internal/adapters/notifiers"
	"github.com/attid/MyMTLWalletBot-sub000/internal/adapters/upstream"
	"github.com/attid/MyMTLWalletBot-sub000/internal/config"
	"github.com/attid/MyMTLWalletBot-sub000/internal/dedup"
	"github.com/attid/MyMTLWalletBot-sub000/internal/infra/eventbus"
	"github.com/attid/MyMTLWalletBot-sub000/internal/infra/httpserver"
	"github.com/attid/MyMTLWalletBot-sub000/internal/infra/repository"
	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/nonce"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
	"github.com/attid/MyMTLWalletBot-sub000/internal/services"
	"github.com/attid/MyMTLWalletBot-sub000/internal/signing"
)

// storeProvider is satisfied by both the Mongo stores and the test-mode
// no-op stores.
type storeProvider interface {
	Wallets() ports.WalletStore
	Filters() ports.FilterStore
	Subscriptions() ports.SubscriptionStore
	Notifications() ports.NotificationLog
	Close(ctx context.Context) error
}

// openStores dials Mongo, unless test mode forbids outbound activity.
func openStores(ctx context.Context, cfg config.Config) (storeProvider, error) {
	if cfg.TestMode {
		return repository.NewNoop(), nil
	}
	return repository.NewMongo(ctx, cfg.MongoURI, cfg.DatabaseName)
}

// newNotifier builds the delivery channel. In test mode the Telegram
// token is withheld so the bot API is never contacted.
func newNotifier(cfg config.Config) (ports.Notifier, error) {
	if cfg.TestMode {
		return notifiers.NewTelegramNotifier("")
	}
	return notifiers.NewTelegramNotifier(cfg.TelegramBotToken)
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	var signer *signing.Signer
	if cfg.ServiceSecretKey != "" {
		var err error
		signer, err = signing.NewSigner(cfg.ServiceSecretKey)
		if err != nil {
			logger.L.Error("invalid SERVICE_SECRET_KEY", "error", err)
			os.Exit(1)
		}
	} else if cfg.AuthToken == "" {
		logger.L.Warn("neither SERVICE_SECRET_KEY nor NOTIFIER_AUTH_TOKEN configured, outbound requests will be unauthenticated")
	}

	client := upstream.NewClient(cfg.NotifierBaseURL, signer, cfg.AuthToken)
	nonces := nonce.NewManager(client)

	stores, err := openStores(context.Background(), cfg)
	if err != nil {
		logger.L.Error("failed to connect to mongo", "uri", cfg.MongoURI, "error", err)
		os.Exit(1)
	}

	bus := eventbus.NewInMemoryEventBus()
	seen := dedup.New(cfg.DedupCap)

	notifier, err := newNotifier(cfg)
	if err != nil {
		logger.L.Error("failed to create telegram notifier", "error", err)
		os.Exit(1)
	}

	engine := services.NewFanoutEngine(
		bus,
		seen,
		stores.Wallets(),
		stores.Filters(),
		services.NewTextRenderer(),
		notifier,
		balance.New(),
		stores.Notifications(),
	)

	reactionURL := strings.TrimRight(cfg.WebhookPublicURL, "/") + "/webhook"
	synchronizer := services.NewSynchronizer(stores.Subscriptions(), client, nonces, reactionURL, cfg.SyncBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.Run(ctx)

	srv := httpserver.NewServer(cfg, bus, client, synchronizer, nonces)
	if cfg.TestMode {
		logger.L.Info("test mode: listener and outbound calls disabled")
		<-ctx.Done()
	} else {
		if _, err := client.CounterpartyKey(ctx); err != nil {
			logger.L.Warn("could not prefetch counterparty key, webhooks will be accepted unverified until it is available", "error", err)
		}
		go func() {
			if err := srv.Start(); err != nil {
				logger.L.Error("server stopped", "error", err)
			}
		}()
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.L.Error("graceful shutdown error", "error", err)
	}
	if err := stores.Close(shutdownCtx); err != nil {
		logger.L.Error("stores disconnect error", "error", err)
	}
}
