package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"poolwatch/internal/chain"
	"poolwatch/internal/config"
	"poolwatch/internal/monitor"
	"poolwatch/internal/notify"
	"poolwatch/internal/probe"
	"poolwatch/internal/store"
	"poolwatch/internal/store/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "poolwatch",
		Short:        "DEX pool discovery and liquidity monitor",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pool monitor",
		RunE:  runMonitor,
	}

	runCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	runCmd.Flags().String("token", "", "target token address")
	runCmd.Flags().String("token-symbol", "TOKEN", "target token display symbol")
	runCmd.Flags().String("factory", "", "DEX factory address (defaults to Uniswap V3)")
	runCmd.Flags().String("min-liquidity", "1000", "liquidity threshold for tradeable pools")
	runCmd.Flags().Duration("poll-interval", 12*time.Second, "delay between monitor ticks")
	runCmd.Flags().Duration("recheck-interval", 30*time.Second, "delay between liquidity rechecks")
	runCmd.Flags().Duration("error-cooldown", 30*time.Second, "cooldown after a failed tick")
	runCmd.Flags().Int("max-workers", 5, "concurrent liquidity recheck workers")
	runCmd.Flags().Uint64("chunk-size", 1000, "blocks per event query")
	runCmd.Flags().Duration("chunk-delay", 100*time.Millisecond, "delay between block chunks")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty runs with in-memory state)")
	runCmd.Flags().String("metrics-addr", ":8000", "metrics listen address")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().String("discord-webhook", "", "Discord webhook URL")
	runCmd.Flags().String("telegram-token", "", "Telegram bot token")
	runCmd.Flags().String("telegram-chat-id", "", "Telegram chat id")
	runCmd.Flags().String("smtp-host", "smtp.gmail.com", "SMTP host")
	runCmd.Flags().Int("smtp-port", 587, "SMTP port")
	runCmd.Flags().String("sender-email", "", "notification sender address")
	runCmd.Flags().String("receiver-emails", "", "notification recipients (comma-separated)")
	runCmd.Flags().String("email-password", "", "SMTP password")

	root.AddCommand(runCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics",
		RunE:  runStats,
	}

	statsCmd.Flags().String("pg-dsn", "", "Postgres DSN")

	root.AddCommand(statsCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader, err := chain.NewReader(chainClient, chain.ReaderConfig{
		Factory: common.HexToAddress(cfg.FactoryAddress),
	}, logger)
	if err != nil {
		return err
	}

	poolStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	prober, err := probe.NewLiquidityProbe(reader, cfg.MinLiquidityValue)
	if err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg, poolStore, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	metrics := monitor.NewMetrics(registry)

	scanner, err := monitor.NewDiscoveryScanner(monitor.ScannerConfig{
		TargetToken: cfg.TokenAddress,
		ChunkSize:   cfg.ChunkSize,
		ChunkDelay:  cfg.ChunkDelay,
	}, reader, prober, poolStore, dispatcher, metrics, logger)
	if err != nil {
		return err
	}

	rechecker, err := monitor.NewTradeabilityRechecker(monitor.RecheckerConfig{
		MaxWorkers: cfg.MaxWorkers,
	}, prober, poolStore, dispatcher, metrics, logger)
	if err != nil {
		return err
	}

	loop, err := monitor.NewMonitorLoop(monitor.LoopConfig{
		TargetToken:     cfg.TokenAddress,
		TokenSymbol:     cfg.TokenSymbol,
		Threshold:       cfg.MinLiquidityValue,
		PollInterval:    cfg.PollInterval,
		RecheckInterval: cfg.RecheckInterval,
		ErrorCooldown:   cfg.ErrorCooldown,
	}, scanner, rechecker, reader, poolStore, metrics, logger)
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return loop.Run(ctx)
	})
	group.Go(func() error {
		return serveMetrics(ctx, cfg.MetricsAddr, registry, logger)
	})

	return group.Wait()
}

func runStats(cmd *cobra.Command, _ []string) error {
	dsn, _ := cmd.Flags().GetString("pg-dsn")
	if dsn == "" {
		dsn = os.Getenv("POOLWATCH_PG_DSN")
	}
	if dsn == "" {
		return fmt.Errorf("pg-dsn is required for stats")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pgStore, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer pgStore.Close()

	stats, err := pgStore.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("total pools:              %d\n", stats.TotalPools)
	fmt.Printf("tradeable pools:          %d\n", stats.TradeablePools)
	fmt.Printf("successful notifications: %d\n", stats.SuccessfulNotifications)
	fmt.Printf("failed notifications:     %d\n", stats.FailedNotifications)
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.PGDSN == "" {
		logger.Warn("no pg-dsn configured, state will not survive restart")
		return store.NewMemoryStore(), func() {}, nil
	}
	pgStore, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return pgStore, pgStore.Close, nil
}

func buildDispatcher(cfg config.Config, poolStore store.Store, logger *zap.Logger) (*notify.Dispatcher, error) {
	renderer := notify.Renderer{
		TokenSymbol:  cfg.TokenSymbol,
		TokenAddress: cfg.TokenAddress,
		Threshold:    cfg.MinLiquidityValue,
	}

	var primary notify.Sender
	if cfg.EmailEnabled() {
		primary = notify.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SenderEmail, cfg.EmailPassword, cfg.ReceiverEmails)
	}

	var others []notify.Sender
	if cfg.DiscordWebhook != "" {
		others = append(others, notify.NewDiscordSender(cfg.DiscordWebhook))
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		others = append(others, notify.NewTelegramSender(cfg.TelegramToken, cfg.TelegramChatID))
	}

	if primary == nil && len(others) == 0 {
		logger.Warn("no notification channels configured, milestones will only be logged")
	}

	return notify.NewDispatcher(renderer.Render, primary, others, poolStore, notify.DispatcherConfig{}, logger)
}

func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
