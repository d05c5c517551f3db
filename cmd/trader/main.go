package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/Xtley001/front-run-vanilla/internal/book"
	"github.com/Xtley001/front-run-vanilla/internal/bus"
	"github.com/Xtley001/front-run-vanilla/internal/exchange"
	"github.com/Xtley001/front-run-vanilla/internal/execution"
	"github.com/Xtley001/front-run-vanilla/internal/journal"
	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/internal/obs"
	"github.com/Xtley001/front-run-vanilla/internal/ops"
	"github.com/Xtley001/front-run-vanilla/internal/recorder"
	"github.com/Xtley001/front-run-vanilla/internal/risk"
	"github.com/Xtley001/front-run-vanilla/internal/strategy"
	"github.com/Xtley001/front-run-vanilla/internal/trader"
)

const busCapacity = 4096

func main() {
	configPath := flag.String("config", "", "path to TOML config (default: CONFIG_FILE env or config/production.toml)")
	captureDir := flag.String("capture-dir", "", "record the market event stream to this directory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logs.Info("no .env file, using process environment")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logs.Fatalf("load config: %+v", err)
	}
	logs.Infof("starting trader: symbol=%s env=%s log_level=%s",
		cfg.General.Symbol, cfg.General.Environment, cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "front-run-vanilla.trader",
			ServerAddress:   cfg.Profiling.ServerAddress,
			Tags: map[string]string{
				"symbol": cfg.General.Symbol,
				"env":    cfg.General.Environment,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Fatalf("pyroscope start failed: %+v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	creds := ops.CredentialsFromEnv()
	rest, err := exchange.NewRestClient(creds.APIKey, creds.SecretKey, cfg.Exchange.APIEndpoint)
	if err != nil {
		logs.Fatalf("rest client: %+v", err)
	}

	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		jnl, err = journal.Open(journal.Option{
			Host:     cfg.Journal.Host,
			Port:     cfg.Journal.Port,
			User:     cfg.Journal.User,
			Password: os.Getenv("JOURNAL_DB_PASSWORD"),
			Database: cfg.Journal.Database,
		})
		if err != nil {
			logs.Fatalf("open trade journal: %+v", err)
		}
		defer func() {
			if err := jnl.Close(); err != nil {
				logs.Errorf("close trade journal: %+v", err)
			}
		}()
	}

	riskMgr := risk.NewManager(cfg.RiskLimits(), decimal.NewFromFloat(cfg.Risk.InitialEquityUSD))
	positions := risk.NewPositionManager()
	exec := execution.NewEngine(cfg.ExecutionConfig(), rest, riskMgr, positions)
	exec.OnClose(func(t execution.ClosedTrade) {
		if jnl == nil {
			return
		}
		entry := journal.FromTrade(t.Symbol, t.Side, t.EntryPrice, t.ExitPrice,
			t.Quantity, t.PnL, t.Fees, t.EntryTime, t.ExitTime, t.Reason)
		if err := jnl.Record(entry); err != nil {
			logs.Errorf("journal record: %+v", err)
		}
	})

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)
	board := obs.NewStatusBoard(cfg.General.Symbol)

	t := trader.New(cfg.TraderConfig(), trader.Deps{
		Book:       book.New(cfg.General.Symbol),
		Detector:   strategy.NewImbalanceDetector(cfg.Strategy.ImbalanceLevels, cfg.Strategy.ImbalanceWindow, cfg.Strategy.ImbalanceThreshold),
		Flow:       strategy.NewFlowAnalyzer(cfg.Strategy.FlowWindow, cfg.Strategy.FlowTimeWindowMs, cfg.Strategy.FlowThreshold),
		Aggregator: strategy.NewSignalAggregator(cfg.Strategy.PrimaryThreshold, cfg.Strategy.ConfirmingThreshold, cfg.Strategy.MinConfirmingSignals),
		Exec:       exec,
		RiskMgr:    riskMgr,
		Positions:  positions,
		Board:      board,
		Metrics:    metrics,
	})

	queue := bus.NewQueue(busCapacity)
	feed := exchange.NewFeed(cfg.Exchange.WSEndpoint, cfg.General.Symbol,
		&countingPublisher{queue: queue, dropped: metrics.EventsDropped})

	var capture *recorder.Writer
	if *captureDir != "" {
		capture, err = recorder.NewWriter(recorder.DefaultConfig(*captureDir))
		if err != nil {
			logs.Fatalf("capture writer: %+v", err)
		}
		if err := capture.Start(ctx); err != nil {
			logs.Fatalf("capture start: %+v", err)
		}
		defer func() {
			if err := capture.Close(); err != nil {
				logs.Errorf("close capture: %+v", err)
			}
		}()
	}

	var wg sync.WaitGroup

	if cfg.Metrics.Enabled {
		srv := obs.NewServer(cfg.Metrics.BindAddress, board, registry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logs.Errorf("observability server: %+v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		feed.Run(ctx)
		queue.Close()
	}()

	queue.Run(ctx, func(ev *model.MarketEvent) {
		if capture != nil {
			if err := capture.TryAppend(ev); err != nil {
				logs.Warnf("capture append: %+v", err)
			}
		}
		t.HandleEvent(ctx, ev)
	})

	// ctx is done at this point, flatten before exit
	exec.CloseAll(context.Background())
	wg.Wait()

	logs.Infof("shutdown complete: realized_pnl=%s trades=%d dropped_events=%d",
		positions.RealizedPnL(), positions.ClosedTrades(), queue.Dropped())
}

func loadConfig(path string) (ops.Config, error) {
	if path != "" {
		return ops.Load(path)
	}
	return ops.LoadFromEnv()
}

// countingPublisher surfaces bus drops as a metric.
type countingPublisher struct {
	queue   *bus.Queue
	dropped prometheus.Counter
}

func (p *countingPublisher) TryPublish(ev *model.MarketEvent) bool {
	ok := p.queue.TryPublish(ev)
	if !ok {
		p.dropped.Inc()
	}
	return ok
}
