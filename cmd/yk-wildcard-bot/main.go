package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/config"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns/providers"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/metrics"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/server"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/telegram"
	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/wizard"
)

var Version = "dev"

func main() {
	opts := zap.Options{
		Development: true,
	}
	opts.BindFlags(flag.CommandLine)
	debug := flag.Bool("debug", false, "log every Telegram API request and response")
	flag.Parse()

	log.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	if err := run(signals.SetupSignalHandler(), *debug); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, debug bool) error {
	setupLog := log.Log.WithName("setup")

	setupLog.Info("starting yk-wildcard-bot", "version", Version)

	token, err := config.LoadBotToken()
	if err != nil {
		setupLog.Error(err, "refusing to start")
		return err
	}

	cfg, err := config.LoadBotConfig()
	if err != nil {
		return fmt.Errorf("unable to load bot config: %w", err)
	}
	setupLog.Info("loaded bot config", "provider", cfg.Provider, "workers", cfg.Workers, "http_addr", cfg.HTTPAddr)

	domains, err := config.LoadDefaultDomainMap()
	if err != nil {
		return fmt.Errorf("unable to load domain map: %w", err)
	}
	setupLog.Info("loaded domain map", "domains", len(domains.Domains()))

	dnsProvider, err := dns.NewProvider(cfg.Provider, log.Log.WithName("dns-"+cfg.Provider), cfg.Settings)
	if err != nil {
		return fmt.Errorf("unable to create DNS provider: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	wiz := &wizard.Wizard{
		DNS:      dnsProvider,
		Sessions: wizard.NewStore(),
		Domains:  domains,
		Metrics:  metrics.NewRecorder(reg),
		Log:      log.Log.WithName("wizard"),
	}

	if err := telegram.SetLibraryLogger(log.Log.WithName("telegram-api")); err != nil {
		return fmt.Errorf("unable to set telegram logger: %w", err)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("unable to connect to telegram: %w", err)
	}
	api.Debug = debug
	setupLog.Info("authorized on telegram", "bot", api.Self.UserName)

	bot := &telegram.Bot{
		API:     api,
		Wizard:  wiz,
		Log:     log.Log.WithName("telegram"),
		Workers: cfg.Workers,
	}
	srv := &server.Server{
		Addr:     cfg.HTTPAddr,
		Gatherer: reg,
		Ready:    bot.Ready,
		Log:      log.Log.WithName("http"),
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := api.GetUpdatesChan(updateCfg)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		api.StopReceivingUpdates()
		return nil
	})
	g.Go(func() error { return bot.Run(ctx, updates) })

	setupLog.Info("bot started polling")
	if err := g.Wait(); err != nil {
		return fmt.Errorf("bot exited with error: %w", err)
	}
	setupLog.Info("bot stopped")
	return nil
}
