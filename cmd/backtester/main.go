package main

import (
	"context"
	"flag"
	"time"

	"github.com/yanun0323/logs"

	"github.com/Xtley001/front-run-vanilla/internal/backtest"
	"github.com/Xtley001/front-run-vanilla/internal/chaos"
	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/internal/recorder"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "instrument to replay")
	ticks := flag.Int("ticks", 36_000, "number of depth updates to generate (100ms each)")
	seed := flag.Int64("seed", 1, "generator seed")
	replayDir := flag.String("replay-dir", "", "replay a captured session instead of synthetic data")
	chaosDrop := flag.Float64("chaos-drop", 0, "probability of dropping a data event")
	chaosDup := flag.Float64("chaos-duplicate", 0, "probability of duplicating a data event")
	chaosReorder := flag.Int("chaos-reorder", 0, "reorder window size (0 or 1 disables)")
	chaosDelay := flag.Duration("chaos-delay", 0, "max artificial receive delay")
	flag.Parse()

	cfg := backtest.DefaultConfig(*symbol)
	engine := backtest.NewEngine(cfg)

	var faults *chaos.Engine
	if *chaosDrop > 0 || *chaosDup > 0 || *chaosReorder > 1 || *chaosDelay > 0 {
		var err error
		faults, err = chaos.NewEngine(chaos.Config{
			Seed:          *seed,
			DropRate:      *chaosDrop,
			DuplicateRate: *chaosDup,
			ReorderWindow: *chaosReorder,
			MaxDelay:      *chaosDelay,
		})
		if err != nil {
			logs.Errorf("chaos config: %+v", err)
			return
		}
	}

	logs.Infof("backtest start: symbol=%s seed=%d capital=%s chaos=%t replay=%s",
		*symbol, *seed, cfg.InitialCapital, faults != nil, *replayDir)

	process := func(ev *model.MarketEvent) error {
		if faults == nil {
			return engine.Process(ev)
		}
		for _, out := range faults.Process(ev) {
			if err := engine.Process(out); err != nil {
				return err
			}
		}
		return nil
	}

	start := time.Now()
	if *replayDir != "" {
		if err := runCapturedSession(*replayDir, process); err != nil {
			logs.Errorf("replay captured session: %+v", err)
			return
		}
	} else {
		genCfg := backtest.DefaultGeneratorConfig(*symbol)
		genCfg.Seed = *seed
		gen := backtest.NewGenerator(genCfg)
		for i := 0; i < *ticks; i++ {
			for _, ev := range gen.Next() {
				if err := process(ev); err != nil {
					logs.Errorf("process event: %+v", err)
					return
				}
			}
		}
	}
	if faults != nil {
		for _, ev := range faults.Flush() {
			if err := engine.Process(ev); err != nil {
				logs.Errorf("process event: %+v", err)
				return
			}
		}
	}
	elapsed := time.Since(start)

	r := engine.Results()
	logs.Infof("backtest done in %s", elapsed)
	logs.Infof("equity: initial=%s final=%s return=%s (%s%%)",
		cfg.InitialCapital, r.FinalEquity, r.TotalReturn, r.TotalReturnPct.StringFixed(2))
	logs.Infof("trades: total=%d wins=%d losses=%d win_rate=%.1f%% profit_factor=%.2f",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate*100, r.ProfitFactor)
	logs.Infof("extremes: largest_win=%s largest_loss=%s avg_win=%s avg_loss=%s",
		r.LargestWin, r.LargestLoss, r.AverageWin, r.AverageLoss)
	logs.Infof("risk: max_drawdown=%s (%s%%) sharpe=%.2f",
		r.MaxDrawdown, r.MaxDrawdownPct.StringFixed(2), r.SharpeRatio)
}

func runCapturedSession(dir string, process func(*model.MarketEvent) error) error {
	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{Dir: dir})
	if err != nil {
		return err
	}
	return pb.Run(context.Background(), process)
}
