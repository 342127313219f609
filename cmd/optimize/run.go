package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"portfolioFrontier/internal/config"
	"portfolioFrontier/internal/finance"
	"portfolioFrontier/internal/logger"
	"portfolioFrontier/internal/openai"
	"portfolioFrontier/internal/optimizer"
	"portfolioFrontier/internal/storage"
)

// loadConfig resolves environment, --config and flag values, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("tickers") {
		raw, _ := flags.GetString("tickers")
		cfg.Tickers = nil
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Tickers = append(cfg.Tickers, t)
			}
		}
	}
	if flags.Changed("num-portfolios") {
		cfg.NumPortfolios, _ = flags.GetInt("num-portfolios")
	}
	if flags.Changed("window") {
		cfg.Window, _ = flags.GetString("window")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	return cfg.Validate()
}

func openStore(path string) (*storage.Store, func(), error) {
	if dir := filepath.Dir(path); dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	db, err := storage.OpenSQLite("file:" + path + "?_fk=1")
	if err != nil {
		return nil, nil, err
	}
	if err := storage.InitSchema(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return storage.NewStore(db), func() { db.Close() }, nil
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	start, end, err := finance.ParseWindow(cfg.Window, time.Now())
	if err != nil {
		return err
	}

	store, closeDB, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	var prices finance.PriceProvider = finance.NewYahooClient(log)
	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		prices = finance.NewCachedProvider(prices, store, cfg.PriceCacheTTL, log)
	}
	svc := optimizer.NewService(prices, log, optimizer.WithStore(store))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := svc.Run(ctx, optimizer.Request{
		Tickers: cfg.Tickers,
		Start:   start,
		End:     end,
		Trials:  cfg.NumPortfolios,
		Seed:    cfg.Seed,
		Workers: cfg.Workers,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s: %d portfolios (%d valid) over %d daily returns of %s, seed %d, %s\n",
		out.RunID, out.Results.Len(), out.Results.ValidCount(), out.Rows,
		strings.Join(out.Assets, ", "), out.Seed, out.Duration.Round(time.Millisecond))

	md := finance.AllocationMarkdown(out.Optimal) + "\n" + finance.HoldingMarkdown(out.Prices, out.Optimal)
	rendered, err := finance.RenderTerminal(md, 100)
	if err != nil {
		return err
	}
	fmt.Fprint(w, rendered)

	if err := writeCharts(cmd, out, log); err != nil {
		return err
	}

	if explain, _ := cmd.Flags().GetBool("explain"); explain {
		if cfg.OpenAIKey == "" {
			return fmt.Errorf("--explain needs OPENAI_API_KEY")
		}
		text, err := openai.NewCommentator(cfg.OpenAIKey, cfg.OpenAIModel).Explain(ctx, out.Assets, out.Optimal)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\n", text)
	}
	return nil
}

func writeCharts(cmd *cobra.Command, out *optimizer.Outcome, log zerolog.Logger) error {
	if path, _ := cmd.Flags().GetString("chart"); path != "" {
		img, err := finance.FrontierChart(out.Results, out.Optimal)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		log.Info().Str("path", path).Msg("frontier chart written")
	}

	if path, _ := cmd.Flags().GetString("prices-chart"); path != "" {
		img, err := finance.IndexedPriceChart(out.Prices)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fmt.Errorf("write prices chart: %w", err)
		}
		log.Info().Str("path", path).Msg("price history chart written")
	}

	dir, _ := cmd.Flags().GetString("pie-dir")
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pie dir: %w", err)
	}
	for _, np := range finance.NamedPicks(out.Optimal) {
		img, err := finance.AllocationPie(np.Title, np.Pick.Allocation)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, np.Key+".png")
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fmt.Errorf("write pie chart: %w", err)
		}
		log.Info().Str("path", path).Msg("allocation chart written")
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	store, closeDB, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := store.RecentRuns(limit)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-16s  %8s  %7s  %20s  %s\n", "RUN", "CREATED", "TRIALS", "SHARPE", "SEED", "TICKERS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s  %8d  %7.3f  %20d  %s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Trials,
			r.Optimal.MaxSharpe.Performance.Sharpe, r.Seed, strings.Join(r.Tickers, ","))
	}
	return nil
}
