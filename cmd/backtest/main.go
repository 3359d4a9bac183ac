// cmd/backtest imports daily bars and runs backtests, comparisons and
// parameter searches from the command line.
//
// Usage:
//
//	go run ./cmd/backtest import   --db=data/analysis.db --symbol=AAPL --csv=aapl.csv
//	go run ./cmd/backtest run      --db=data/analysis.db --symbol=AAPL --strategy=signal
//	go run ./cmd/backtest compare  --scenario=scenarios/aapl.yaml
//	go run ./cmd/backtest optimize --scenario=scenarios/aapl.yaml --top=10
//	go run ./cmd/backtest runs     --db=data/analysis.db --symbol=AAPL
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"trading-analysisv1/config"
	"trading-analysisv1/internal/backtest"
	"trading-analysisv1/internal/logger"
	"trading-analysisv1/internal/marketdata/csvfeed"
	"trading-analysisv1/internal/model"
	"trading-analysisv1/internal/signal"
	sqlitestore "trading-analysisv1/internal/store/sqlite"
)

const usage = `usage: backtest <command> [flags]

commands:
  import    load a CSV file of daily bars into the store
  run       backtest one configuration
  compare   backtest every configuration in a scenario side by side
  optimize  grid-search position sizing, stop-loss and take-profit
  runs      list journaled runs
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[backtest] interrupted")
		cancel()
	}()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "import":
		err = runImport(ctx, args)
	case "run":
		err = runBacktest(ctx, args)
	case "compare":
		err = runCompare(ctx, args)
	case "optimize":
		err = runOptimize(ctx, args)
	case "runs":
		err = runList(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[backtest] %s: %v", os.Args[1], err)
	}
}

// common holds the flags every command shares.
type common struct {
	db       *string
	logLevel *string
}

func newFlags(name string) (*flag.FlagSet, common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := common{
		db:       fs.String("db", "data/analysis.db", "Path to SQLite database"),
		logLevel: fs.String("log-level", "warn", "Log level (debug, info, warn, error)"),
	}
	return fs, c
}

func (c common) setupLogging() {
	logger.Init("backtest", logger.ParseLevel(*c.logLevel))
}

func runImport(ctx context.Context, args []string) error {
	fs, c := newFlags("import")
	symbol := fs.String("symbol", "", "Symbol the bars belong to")
	csvPath := fs.String("csv", "", "CSV file with date,open,high,low,close,volume columns")
	fs.Parse(args)
	c.setupLogging()

	if *symbol == "" || *csvPath == "" {
		return model.Invalid("flags", "--symbol and --csv are required")
	}
	store, err := sqlitestore.Open(*c.db)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := csvfeed.Import(ctx, store, *symbol, *csvPath)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d bars for %s\n", n, *symbol)
	return nil
}

func runBacktest(ctx context.Context, args []string) error {
	fs, c := newFlags("run")
	symbol := fs.String("symbol", "", "Symbol to backtest")
	csvPath := fs.String("csv", "", "Read bars from this CSV instead of the store")
	strat := fs.String("strategy", "", "Strategy name (default from config)")
	capital := fs.Float64("capital", 0, "Initial capital (0=default)")
	size := fs.Float64("size", 0, "Position size as a fraction of equity (0=default)")
	sl := fs.Float64("sl", 0, "Stop-loss fraction (0=default)")
	tp := fs.Float64("tp", 0, "Take-profit fraction (0=default)")
	record := fs.Bool("record", true, "Journal the run in the store")
	fs.Parse(args)
	c.setupLogging()

	cfg := backtest.DefaultConfig()
	if *strat != "" {
		cfg.Strategy = *strat
	}
	if *capital > 0 {
		cfg.InitialCapital = *capital
	}
	if *size > 0 {
		cfg.PositionSizePct = *size
	}
	if *sl > 0 {
		cfg.StopLossPct = *sl
	}
	if *tp > 0 {
		cfg.TakeProfitPct = *tp
	}

	store, err := sqlitestore.Open(*c.db)
	if err != nil {
		return err
	}
	defer store.Close()

	bars, err := loadBars(ctx, store, *symbol, *csvPath)
	if err != nil {
		return err
	}
	eng, err := backtest.NewEngine(cfg, backtest.Options{})
	if err != nil {
		return err
	}
	res, err := eng.Run(bars)
	if err != nil {
		return err
	}
	fmt.Print(backtest.Report(res))

	if *record {
		return journal(ctx, store, *symbol, eng.StrategyName(), cfg, res)
	}
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs, c := newFlags("compare")
	scenarioPath := fs.String("scenario", "", "Scenario YAML file")
	fs.Parse(args)
	c.setupLogging()

	sc, store, bars, opts, err := openScenario(ctx, *scenarioPath, *c.db)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := backtest.Compare(ctx, bars, sc.Configs, opts)
	if err != nil {
		return err
	}
	fmt.Print(backtest.ComparisonReport(rows))
	return nil
}

func runOptimize(ctx context.Context, args []string) error {
	fs, c := newFlags("optimize")
	scenarioPath := fs.String("scenario", "", "Scenario YAML file")
	top := fs.Int("top", 10, "Show the best N trials (0=all)")
	record := fs.Bool("record", true, "Journal the best trial in the store")
	fs.Parse(args)
	c.setupLogging()

	sc, store, bars, opts, err := openScenario(ctx, *scenarioPath, *c.db)
	if err != nil {
		return err
	}
	defer store.Close()

	grid := backtest.DefaultGrid()
	if sc.Grid != nil {
		grid = *sc.Grid
	}
	start := time.Now()
	res, err := backtest.Optimize(ctx, bars, sc.Base, grid, opts, backtest.OptimizeOptions{
		OnProgress: func(p backtest.Progress) {
			fmt.Fprintf(os.Stderr, "\r[%d/%d] trial %d sharpe %.3f", p.Done, p.Total, p.Trial.Index, p.Trial.Result.SharpeRatio)
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	log.Printf("[backtest] %d trials in %s", len(res.Trials), time.Since(start).Round(time.Millisecond))
	fmt.Print(backtest.OptimizationReport(res, *top))

	if *record && res.Best.Result != nil {
		return journal(ctx, store, sc.Symbol, "optimizer-best", res.Best.Config, res.Best.Result)
	}
	return nil
}

func runList(ctx context.Context, args []string) error {
	fs, c := newFlags("runs")
	symbol := fs.String("symbol", "", "Only runs for this symbol")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	fs.Parse(args)
	c.setupLogging()

	store, err := sqlitestore.Open(*c.db)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, *symbol, *limit)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Backtest Runs")
	t.AppendHeader(table.Row{"ID", "Symbol", "Label", "Period", "Return", "Sharpe", "Max DD", "Trades", "Created"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.Symbol,
			r.Label,
			r.Period.Start.Format(time.DateOnly) + " .. " + r.Period.End.Format(time.DateOnly),
			fmt.Sprintf("%.2f%%", r.TotalReturn*100),
			fmt.Sprintf("%.3f", r.SharpeRatio),
			fmt.Sprintf("%.2f%%", r.MaxDrawdown*100),
			r.TradeCount,
			r.CreatedAt.Local().Format(time.DateTime),
		})
	}
	fmt.Println(t.Render())
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// openScenario loads a scenario and the bars it names, plus engine options
// carrying its custom weights.
func openScenario(ctx context.Context, path, dbPath string) (*config.Scenario, *sqlitestore.Store, []model.PriceBar, backtest.Options, error) {
	var opts backtest.Options
	if path == "" {
		return nil, nil, nil, opts, model.Invalid("flags", "--scenario is required")
	}
	sc, err := config.LoadScenario(path)
	if err != nil {
		return nil, nil, nil, opts, err
	}
	if sc.Weights != nil {
		scfg := signal.DefaultConfig()
		scfg.Weights = *sc.Weights
		if opts.Scorer, err = signal.NewScorer(scfg, nil); err != nil {
			return nil, nil, nil, opts, err
		}
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return nil, nil, nil, opts, err
	}
	bars, err := loadBars(ctx, store, sc.Symbol, sc.Data)
	if err != nil {
		store.Close()
		return nil, nil, nil, opts, err
	}
	return sc, store, bars, opts, nil
}

func loadBars(ctx context.Context, store *sqlitestore.Store, symbol, csvPath string) ([]model.PriceBar, error) {
	if csvPath != "" {
		return csvfeed.ReadFile(csvPath)
	}
	if symbol == "" {
		return nil, model.Invalid("symbol", "required when no CSV is given")
	}
	bars, err := store.Bars(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars stored for %s; run import first", symbol)
	}
	return bars, nil
}

func journal(ctx context.Context, store *sqlitestore.Store, symbol, label string, cfg backtest.Config, res *model.BacktestResult) error {
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	run := model.BacktestRun{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Label:     label,
		Config:    raw,
		Result:    res,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.RecordRun(ctx, run); err != nil {
		return err
	}
	fmt.Printf("journaled run %s\n", run.ID)
	return nil
}
