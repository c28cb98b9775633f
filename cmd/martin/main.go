// Command martin runs the MARTIN trading orchestrator: the snapshot
// worker and orchestration loop (spec §5) plus a small operational CLI
// surface (§6: pause/resume/status/report/settings). Grounded on the
// teacher's cmd/scanner/main.go flag-driven dispatch (setupLogger,
// signal.NotifyContext shutdown, -config/-once style flags).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/martin/config"
	"github.com/alejandrodnm/martin/internal/adapters/clobauth"
	"github.com/alejandrodnm/martin/internal/adapters/marketdata"
	"github.com/alejandrodnm/martin/internal/adapters/notify"
	martinconfig "github.com/alejandrodnm/martin/internal/config"
	"github.com/alejandrodnm/martin/internal/domain"
	"github.com/alejandrodnm/martin/internal/executor"
	"github.com/alejandrodnm/martin/internal/ledger"
	"github.com/alejandrodnm/martin/internal/metrics"
	"github.com/alejandrodnm/martin/internal/orchestrator"
	"github.com/alejandrodnm/martin/internal/ports"
	"github.com/alejandrodnm/martin/internal/snapshot"
	"github.com/alejandrodnm/martin/internal/ta"
	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one orchestrator cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on, empty disables")

	cmd := flag.String("cmd", "run", "operational command: run|pause|resume|status|report|settings")
	settingKey := flag.String("key", "", "settings key (with -cmd=settings)")
	settingValue := flag.String("value", "", "settings value (with -cmd=settings, empty prints current)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := ledger.Open(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open ledger", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *cmd {
	case "pause":
		runSetPaused(ctx, store, true)
		return
	case "resume":
		runSetPaused(ctx, store, false)
		return
	case "status":
		runStatus(ctx, store)
		return
	case "report":
		runReport(ctx, store)
		return
	case "settings":
		runSettings(ctx, store, *settingKey, *settingValue)
		return
	}

	slog.Info("martin starting",
		"config", *configPath,
		"tick", cfg.TickInterval(),
		"snap", cfg.SnapInterval(),
		"execution_mode", cfg.Execution.Mode,
		"assets", cfg.Trading.Assets,
		"once", *once,
	)

	if *metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, *metricsAddr); err != nil {
				slog.Error("metrics server exited", "err", err)
			}
		}()
	}

	md := marketdata.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	assets := make([]domain.Asset, 0, len(cfg.Trading.Assets))
	for _, a := range cfg.Trading.Assets {
		assets = append(assets, domain.Asset(a))
	}

	warmup := 24 * time.Hour
	snapWorker := snapshot.NewWorker(md, assets, warmup)
	snapWorker.RefreshNow(ctx)
	go snapWorker.Run(ctx, cfg.SnapInterval())

	exec, err := buildExecutor(cfg)
	if err != nil {
		slog.Error("failed to build executor", "err", err)
		os.Exit(1)
	}

	books := buildBooks(ctx, cfg, md)

	deps := orchestrator.Deps{
		Ledger:     store,
		Catalog:    md,
		Snapshots:  snapWorker,
		TA:         ta.NewSMACrossover(9, 21),
		Books:      books,
		Settlement: md,
		Notifier:   notify.NewConsole(),
		Executor:   exec,
	}

	cfgFn := func(ctx context.Context) (martinconfig.Effective, error) {
		settings, err := store.Settings(ctx)
		if err != nil {
			return martinconfig.Effective{}, fmt.Errorf("load settings: %w", err)
		}
		return martinconfig.Resolve(cfg, settings), nil
	}

	o := orchestrator.New(deps, cfgFn)

	if *once {
		if err := o.RunCycle(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := o.Run(ctx, cfg.TickInterval()); err != nil {
		slog.Error("orchestrator exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("martin stopped cleanly")
}

// buildBooks selects the CAP evaluator's price_ticks source per §6's
// books.source surface: the default REST poller (md, already rate
// limited and retrying), or a push-based stream when an operator wants
// tighter CAP-window tick resolution without extra REST polling.
func buildBooks(ctx context.Context, cfg *config.Config, md *marketdata.Client) ports.BookProvider {
	if cfg.Books.Source != "stream" {
		return md
	}
	stream := marketdata.NewStreamBookProvider(cfg.Books.StreamURL)
	go stream.Run(ctx)
	return stream
}

// buildExecutor selects paper or live execution per §6's
// execution.mode surface. Live mode derives CLOB signing credentials
// from MARTIN_WALLET_PRIVATE_KEY — wallet/vault handling itself is out
// of scope (spec §1).
func buildExecutor(cfg *config.Config) (ports.Executor, error) {
	switch cfg.Execution.Mode {
	case "live":
		key := os.Getenv("MARTIN_WALLET_PRIVATE_KEY")
		if key == "" {
			return nil, fmt.Errorf("execution.mode=live requires MARTIN_WALLET_PRIVATE_KEY")
		}
		auth, err := clobauth.NewAuthClient(cfg.API.CLOBBase, key)
		if err != nil {
			return nil, fmt.Errorf("clobauth.NewAuthClient: %w", err)
		}
		return executor.NewLive(auth), nil
	default:
		return executor.NewPaper(decimal.NewFromFloat(cfg.Trading.PriceCap)), nil
	}
}

func runSetPaused(ctx context.Context, store *ledger.SQLite, paused bool) {
	if err := store.PutSetting(ctx, "is_paused", fmt.Sprintf("%t", paused), time.Now().Unix()); err != nil {
		slog.Error("failed to set is_paused", "err", err)
		os.Exit(1)
	}
	fmt.Printf("is_paused=%t\n", paused)
}

func runStatus(ctx context.Context, store *ledger.SQLite) {
	trades, err := store.NonTerminalTrades(ctx)
	if err != nil {
		slog.Error("failed to list trades", "err", err)
		os.Exit(1)
	}
	windows := make(map[int64]domain.MarketWindow, len(trades))
	for _, t := range trades {
		w, err := store.Window(ctx, t.WindowID)
		if err != nil {
			slog.Error("failed to load window", "window_id", t.WindowID, "err", err)
			os.Exit(1)
		}
		windows[t.WindowID] = w
	}
	notify.NewConsole().PrintStatus(trades, windows)
}

func runReport(ctx context.Context, store *ledger.SQLite) {
	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Error("failed to load stats", "err", err)
		os.Exit(1)
	}
	notify.NewConsole().PrintReport(stats)
}

func runSettings(ctx context.Context, store *ledger.SQLite, key, value string) {
	if key == "" {
		settings, err := store.Settings(ctx)
		if err != nil {
			slog.Error("failed to load settings", "err", err)
			os.Exit(1)
		}
		for _, s := range settings {
			fmt.Printf("%s=%s\n", s.Key, s.Value)
		}
		return
	}
	if value == "" {
		settings, err := store.Settings(ctx)
		if err != nil {
			slog.Error("failed to load settings", "err", err)
			os.Exit(1)
		}
		for _, s := range settings {
			if s.Key == key {
				fmt.Println(s.Value)
				return
			}
		}
		fmt.Printf("%s is unset\n", key)
		return
	}
	if err := store.PutSetting(ctx, key, value, time.Now().Unix()); err != nil {
		slog.Error("failed to set setting", "key", key, "err", err)
		os.Exit(1)
	}
	fmt.Printf("%s=%s\n", key, value)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
