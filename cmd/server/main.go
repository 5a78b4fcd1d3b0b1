package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/0xPuncker/evm-indexer/internal/api"
	"github.com/0xPuncker/evm-indexer/internal/chain"
	"github.com/0xPuncker/evm-indexer/internal/config"
	"github.com/0xPuncker/evm-indexer/internal/notifications"
	"github.com/0xPuncker/evm-indexer/internal/poller"
	indexer "github.com/0xPuncker/evm-indexer/pkg/config"
	"github.com/dimiro1/banner"
	"github.com/joho/godotenv"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

const bannerText = `
{{ .Title "EVM Indexer" "" 0 }}
{{ .AnsiBackground.BrightBlue }}{{ .AnsiColor.White }}
{{ .AnsiReset }}
`

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Printf("No .env or .env.local file found. Using environment variables.\n")
		}
	}

	banner.Init(colorable.NewColorableStdout(), true, true, strings.NewReader(bannerText))

	configPath := flag.String("config", "config/config.json", "path to service config file")
	indexerPath := flag.String("indexer", "", "path to chains/contracts YAML (overrides the service config)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05-07:00",
	})
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *indexerPath != "" {
		cfg.Indexer.Path = *indexerPath
	}

	if redacted, err := cfg.Redacted(); err == nil {
		logger.WithFields(logrus.Fields{
			"port":          redacted.Server.Port,
			"poller":        redacted.Poller.Interval,
			"probeAttempts": redacted.Probe.Attempts,
			"slackWebhook":  redacted.Slack.WebhookURL,
		}).Info("Service config")
	}

	path := cfg.IndexerConfigPath()
	if path == "" {
		logger.Infof("No indexer config file found, using built-in %s/%s", indexer.DefaultChainName, indexer.DefaultContractName)
	} else {
		logger.Infof("Loading indexer config from %s", path)
	}

	indexerCfg, err := indexer.Load(path)
	if err != nil {
		logger.Fatalf("Failed to load indexer config: %v", err)
	}
	logConfig(logger, indexerCfg.Redacted())

	if err := indexerCfg.Validate(); err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			logger.Error(line)
		}
		logger.Fatal("Invalid indexer config")
	}

	opts, err := monitorOptions(cfg.Probe)
	if err != nil {
		logger.Fatalf("Invalid probe config: %v", err)
	}
	monitor := chain.NewMonitor(indexerCfg, logger, opts)
	defer monitor.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, status := range monitor.ProbeAll(ctx) {
		if !status.Healthy {
			logger.Warnf("Preflight: chain %s is unhealthy: %s", status.Name, status.Error)
			continue
		}
		logger.Infof("Preflight: chain %s (id %d) at block %d", status.Name, status.ConfiguredID, status.HeadBlock)
	}

	var slack *notifications.SlackService
	if cfg.Slack.WebhookURL != "" {
		slack = notifications.NewSlackServiceWithURL(logger, cfg.Slack.WebhookURL)
	} else if slack, err = notifications.NewSlackService(logger); err != nil {
		logger.Warnf("Slack notifications disabled: %v", err)
	}
	var notifier *notifications.NotificationService
	if slack != nil {
		notifier = notifications.NewNotificationService(slack)
	}

	handler, err := api.NewHandler(monitor, notifier, logger, cfg)
	if err != nil {
		logger.Fatalf("Failed to create API handler: %v", err)
	}

	interval, err := time.ParseDuration(cfg.Poller.Interval)
	if err != nil {
		logger.Fatalf("Invalid poller interval: %v", err)
	}

	var alerter poller.Alerter
	if notifier.Enabled() {
		alerter = notifier
	}
	p := poller.New(monitor, alerter, logger, interval)
	go p.Start(ctx)

	startupNotifier := notifications.NewStartupNotifier(monitor, notifier, logger)
	go func() {
		if err := startupNotifier.NotifyStartup(ctx); err != nil {
			logger.Warnf("Startup notification failed: %v", err)
		}
	}()

	if err := handler.Scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	srv, err := api.NewServer(handler, cfg.Server)
	if err != nil {
		logger.Fatalf("Invalid server config: %v", err)
	}

	if err := api.Serve(ctx, srv, logger); err != nil {
		logger.Errorf("%v", err)
	}

	logger.Info("Shutting down...")
	p.Stop()
	handler.Scheduler.Stop()
	logger.Info("Server stopped")
}

func monitorOptions(probe config.ProbeConfig) (chain.Options, error) {
	opts := chain.DefaultOptions()
	opts.Attempts = probe.Attempts
	opts.Concurrency = probe.Concurrency

	var err error
	if opts.RetryDelay, err = config.Duration(probe.RetryDelay, opts.RetryDelay); err != nil {
		return opts, err
	}
	if opts.Timeout, err = config.Duration(probe.Timeout, opts.Timeout); err != nil {
		return opts, err
	}
	if opts.CacheTTL, err = config.Duration(probe.CacheTTL, opts.CacheTTL); err != nil {
		return opts, err
	}
	return opts, nil
}

func logConfig(logger *logrus.Logger, cfg *indexer.Config) {
	for _, name := range cfg.ChainNames() {
		c, _ := cfg.Chain(name)
		logger.WithFields(logrus.Fields{
			"id":  c.ID,
			"rpc": c.RPC,
		}).Infof("Chain %s", name)
	}
	for _, name := range cfg.ContractNames() {
		c, _ := cfg.Contract(name)
		logger.WithFields(logrus.Fields{
			"chain":      c.Chain,
			"abi":        c.ABIName(),
			"address":    c.Address,
			"startBlock": c.StartBlock,
		}).Infof("Contract %s", name)
	}
}
