package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"suggestguard/api"
	"suggestguard/config"
	"suggestguard/models"
	"suggestguard/notify"
	"suggestguard/scraper"
	"suggestguard/scraper/browser"
	"suggestguard/scraper/google"
	"suggestguard/services"
	"suggestguard/storage"
	"suggestguard/utils"
)

const usage = `usage: suggestguard <command> [args]

commands:
  scan [brand-id]                      scan one brand, or every active brand
  estimate [brand-id]                  print query count and expected scan time
  serve                                start the read-only report API
  brands                               list stored brands
  brand add <name> [keyword ...]
  brand update <brand-id> <keyword ...>
  brand activate|deactivate <brand-id>
  campaign create <brand-id> <label> [notes]
  campaign close <campaign-id>
  campaign archive <campaign-id>
  campaign report <campaign-id>
  campaign list [brand-id]
`

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(os.Stdout, cfg.LogLevel)

	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"scan"}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := seedBrand(ctx, cfg, store, logger); err != nil {
		logger.Error("Failed to seed brand: %v", err)
		os.Exit(1)
	}

	switch args[0] {
	case "scan":
		err = runScan(ctx, cfg, store, logger, args[1:])
	case "estimate":
		err = runEstimate(ctx, cfg, store, args[1:])
	case "serve":
		err = runServe(ctx, cfg, store, logger)
	case "brands":
		err = runBrands(ctx, store)
	case "brand":
		err = runBrand(ctx, cfg, store, logger, args[1:])
	case "campaign":
		err = runCampaign(ctx, cfg, store, logger, args[1:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("%s failed: %v", args[0], err)
		os.Exit(1)
	}
}

// seedBrand stores the brand described by BRAND_NAME / BRAND_KEYWORDS so a
// fresh database can be scanned without further setup.
func seedBrand(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger) error {
	if cfg.BrandName == "" {
		return nil
	}
	b, err := services.NewBrandService(store, logger).Seed(ctx, models.Brand{
		Name:     cfg.BrandName,
		Keywords: cfg.BrandKeywords,
		Expand:   cfg.BrandExpand,
		Language: cfg.Language,
		Country:  cfg.Country,
	})
	if err != nil {
		return err
	}
	logger.Debug("[main] Seeded brand %q (%s) with %d keywords", b.Name, b.ID, len(b.Keywords))
	return nil
}

func runScan(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger, args []string) error {
	logger.Info("=== SuggestGuard scan starting ===")
	logger.Info("Config: source %s | workers %d | delay %dms | attempts %d",
		cfg.SourceMode, cfg.MaxConcurrency, cfg.RequestDelayMs, cfg.MaxAttempts)

	source, closeSource, err := newSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	dispatcher, closeAlerts, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAlerts()

	scanner := services.NewScanner(source, store,
		services.NewSentimentClassifier(services.DefaultDictionary()),
		cfg.ScraperOptions(), logger).
		WithAlerts(dispatcher).
		OnProgress(func(done, total int, query string) {
			if done%25 == 0 || done == total {
				logger.Info("[scan] %d/%d queries done", done, total)
			}
		})

	var results []*services.ScanResult
	if len(args) > 0 {
		r, scanErr := scanner.ScanBrandID(ctx, args[0])
		if r != nil {
			results = append(results, r)
		}
		err = scanErr
	} else {
		results, err = scanner.ScanAll(ctx)
	}

	exportResults(cfg, results, logger)
	return err
}

func exportResults(cfg *config.Config, results []*services.ScanResult, logger *utils.Logger) {
	if len(results) == 0 {
		return
	}

	insights := services.NewInsightService(logger)
	reports := storage.NewMarkdownReport(cfg.ReportOutputDir)

	snapshotCSV, err := storage.NewSnapshotCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create snapshot CSV writer: %v", err)
	} else {
		defer snapshotCSV.Close()
	}
	trendCSV, err := storage.NewTrendCSVWriter(cfg.TrendCSVOutputPath)
	if err != nil {
		logger.Error("Failed to create trend CSV writer: %v", err)
	} else {
		defer trendCSV.Close()
	}

	for _, r := range results {
		insights.Print(insights.Generate(r))

		if snapshotCSV != nil {
			if err := snapshotCSV.WriteSnapshot(r.Snapshot); err != nil {
				logger.Error("Snapshot CSV write failed: %v", err)
			}
		}
		if trendCSV != nil {
			if err := trendCSV.WriteTrends(r.Trend); err != nil {
				logger.Error("Trend CSV write failed: %v", err)
			}
		}
		path, err := reports.WriteScan(r.Brand, r.Summary, r.Trend)
		if err != nil {
			logger.Error("Report write failed: %v", err)
			continue
		}
		logger.Info("Report for %q saved to %s", r.Brand.Name, path)
	}
	fmt.Printf("  Done. Snapshots CSV → %s | Trends CSV → %s | Reports → %s\n\n",
		cfg.CSVOutputPath, cfg.TrendCSVOutputPath, cfg.ReportOutputDir)
}

func newSource(cfg *config.Config, logger *utils.Logger) (scraper.Source, func(), error) {
	switch cfg.SourceMode {
	case config.SourceBrowser:
		src, err := browser.New(cfg.BrowserConfig(), logger)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { src.Close() }, nil
	case config.SourceHTTP, "":
		return google.New(cfg.GoogleConfig()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SOURCE_MODE %q", cfg.SourceMode)
	}
}

// newDispatcher wires every configured alert channel. Valkey backs the alert
// log when configured, otherwise repeats are only suppressed within a run.
func newDispatcher(cfg *config.Config, logger *utils.Logger) (*notify.Dispatcher, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var alertLog notify.AlertLog = notify.NewMemoryAlertLog(cfg.ValkeyConfig().TTL)
	if cfg.ValkeyAddr != "" {
		vl, err := notify.NewValkeyAlertLog(cfg.ValkeyConfig())
		if err != nil {
			return nil, nil, fmt.Errorf("valkey alert log: %w", err)
		}
		alertLog = vl
		closers = append(closers, vl.Close)
	}

	var notifiers []notify.Notifier
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhookNotifier(cfg.WebhookURL, logger))
	}
	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.SlackWebhookURL, logger))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notify.NewTelegramNotifier(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, logger))
	}
	if cfg.NATSURL != "" {
		nc, err := notify.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("nats: %w", err)
		}
		notifiers = append(notifiers, notify.NewNATSNotifier(nc, cfg.NATSSubject))
		closers = append(closers, nc.Close)
	}

	d := notify.NewDispatcher(logger, alertLog, notifiers...)
	if d.Len() == 0 {
		logger.Info("[alerts] No alert channel configured")
	}
	return d, closeAll, nil
}

func runEstimate(ctx context.Context, cfg *config.Config, store storage.Store, args []string) error {
	var brands []*models.Brand
	if len(args) > 0 {
		b, err := store.LoadBrand(ctx, args[0])
		if err != nil {
			return err
		}
		brands = append(brands, b)
	} else {
		var err error
		if brands, err = store.ListBrands(ctx, true); err != nil {
			return err
		}
	}

	expander := services.NewTurkishQueryExpander()
	opts := cfg.ScraperOptions()
	for _, b := range brands {
		n := len(expander.Expand(b))
		fmt.Printf("  %-30s %5d queries  ~%v\n", b.Name, n,
			services.EstimateScan(n, opts.Workers, opts.Delay).Round(time.Second))
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger) error {
	campaigns := services.NewCampaignService(store, store, logger)
	srv := api.NewServer(cfg.HTTPAddr, store, campaigns, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[api] Listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("[api] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runBrands(ctx context.Context, store storage.Store) error {
	brands, err := store.ListBrands(ctx, false)
	if err != nil {
		return err
	}
	for _, b := range brands {
		state := "active"
		if !b.Active {
			state = "paused"
		}
		fmt.Printf("  %-20s %-30s %-7s %s\n", b.ID, b.Name, state, strings.Join(b.Keywords, ", "))
	}
	return nil
}

func runBrand(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger, args []string) error {
	if len(args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("brand: expected a subcommand and an argument")
	}
	svc := services.NewBrandService(store, logger)

	switch args[0] {
	case "add":
		b, err := svc.Add(ctx, models.Brand{
			Name:     args[1],
			Keywords: args[2:],
			Expand:   cfg.BrandExpand,
			Language: cfg.Language,
			Country:  cfg.Country,
		})
		if err != nil {
			return err
		}
		fmt.Println(b.ID)
	case "update":
		if len(args) < 3 {
			return errors.New("brand update: expected keywords")
		}
		_, err := svc.Update(ctx, args[1], services.BrandUpdate{Keywords: args[2:]})
		return err
	case "activate", "deactivate":
		_, err := svc.SetActive(ctx, args[1], args[0] == "activate")
		return err
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown brand subcommand %q", args[0])
	}
	return nil
}

func runCampaign(ctx context.Context, cfg *config.Config, store storage.Store, logger *utils.Logger, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing campaign subcommand")
	}
	svc := services.NewCampaignService(store, store, logger)
	need := func(n int) error {
		if len(args) < n+1 {
			return fmt.Errorf("campaign %s: expected %d argument(s)", args[0], n)
		}
		return nil
	}

	switch args[0] {
	case "create":
		if err := need(2); err != nil {
			return err
		}
		var notes string
		if len(args) > 3 {
			notes = strings.Join(args[3:], " ")
		}
		c, err := svc.Create(ctx, args[1], args[2], notes, time.Time{})
		if err != nil {
			return err
		}
		fmt.Println(c.ID)
	case "close":
		if err := need(1); err != nil {
			return err
		}
		_, err := svc.Close(ctx, args[1], time.Time{})
		return err
	case "archive":
		if err := need(1); err != nil {
			return err
		}
		return svc.Archive(ctx, args[1])
	case "report":
		if err := need(1); err != nil {
			return err
		}
		r, err := svc.Report(ctx, args[1])
		if err != nil {
			return err
		}
		path, err := storage.NewMarkdownReport(cfg.ReportOutputDir).WriteCampaign(r)
		if err != nil {
			return err
		}
		os.Stdout.Write(storage.RenderCampaignMarkdown(r))
		logger.Info("Campaign report saved to %s", path)
	case "list":
		var brand string
		if len(args) > 1 {
			brand = args[1]
		}
		list, err := svc.List(ctx, brand, false)
		if err != nil {
			return err
		}
		for _, c := range list {
			state := "ongoing"
			if !c.Ongoing() {
				state = "closed " + c.EndedAt.Format(time.DateOnly)
			}
			fmt.Printf("  %s  %-12s %-30s started %s, %s\n",
				c.ID, c.BrandID, c.Label, c.StartedAt.Format(time.DateOnly), state)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown campaign subcommand %q", args[0])
	}
	return nil
}
