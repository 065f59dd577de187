// gproverlay — geopolitical risk event detection and portfolio overlay.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/gproverlay/api"
	"github.com/seenimoa/gproverlay/internal/advisory"
	"github.com/seenimoa/gproverlay/internal/config"
	"github.com/seenimoa/gproverlay/internal/detect"
	"github.com/seenimoa/gproverlay/internal/fetch"
	"github.com/seenimoa/gproverlay/internal/ingest"
	"github.com/seenimoa/gproverlay/internal/logging"
	"github.com/seenimoa/gproverlay/internal/overlay"
	"github.com/seenimoa/gproverlay/internal/store"
	"github.com/seenimoa/gproverlay/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gproverlay",
	Short: "gproverlay — GPR event detection and portfolio exposure advisory",
	Long: `gproverlay reads the Caldara & Iacoviello daily Geopolitical Risk index,
detects risk events (spikes, episodes, regimes), overlays them on a fund's
industry exposures, and produces advisory reports and holdings shortlists.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		log = logging.New(cfg.Logging)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(holdingsCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gproverlay %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Detect Command ---

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect GPR risk events in the daily series",
	RunE: func(cmd *cobra.Command, args []string) error {
		points, err := loadSeries(cmd)
		if err != nil {
			return err
		}

		dcfg := cfg.Detector
		dcfg.IncludeRegimes, _ = cmd.Flags().GetBool("include-regimes")
		events, err := detect.New(dcfg, log).Detect(points)
		if err != nil {
			return err
		}

		if raw, _ := cmd.Flags().GetString("for-date"); raw != "" {
			target, err := models.ParseDay(raw)
			if err != nil {
				return fmt.Errorf("invalid --for-date: %w", err)
			}
			event, err := detect.SelectForDate(events, target)
			if err != nil {
				return err
			}
			return writeOutput(cmd, event)
		}
		return writeOutput(cmd, events)
	},
}

func init() {
	detectCmd.Flags().String("gpr", "", "GPR daily CSV path (default from config)")
	detectCmd.Flags().String("for-date", "", "select the single most relevant event for this date (YYYY-MM-DD)")
	detectCmd.Flags().Bool("include-regimes", false, "also detect episodes and regimes")
	detectCmd.Flags().String("out", "", "write JSON output to this file instead of stdout")
}

// --- Report Command ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate an advisory report for a portfolio and a target date",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := loadReportInputs(cmd)
		if err != nil {
			return err
		}
		report, _, err := buildAdvisory(cmd, inputs)
		if err != nil {
			return err
		}
		return writeOutput(cmd, report)
	},
}

func init() {
	addReportFlags(reportCmd)
}

// --- Holdings Command ---

var holdingsCmd = &cobra.Command{
	Use:   "holdings",
	Short: "Generate per-industry holdings shortlists for an event",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := loadReportInputs(cmd)
		if err != nil {
			return err
		}
		report, _, err := buildAdvisory(cmd, inputs)
		if err != nil {
			return err
		}

		var criteria []models.Criterion
		if path, _ := cmd.Flags().GetString("criteria"); path != "" {
			criteria, err = ingest.LoadCriteria(path)
			if err != nil {
				return err
			}
		}

		mode, _ := cmd.Flags().GetString("mode")
		perIndustry, _ := cmd.Flags().GetInt("per-industry")
		doc := advisory.BuildShortlists(inputs.snapshot, report.ImpactProfile,
			advisory.Mode(mode), perIndustry, criteria)
		return writeOutput(cmd, doc)
	},
}

func init() {
	addReportFlags(holdingsCmd)
	holdingsCmd.Flags().String("mode", string(advisory.ModeVulnerable), "shortlist mode: vulnerable, resilient, all")
	holdingsCmd.Flags().Int("per-industry", advisory.DefaultPerIndustry, "top holdings kept per industry")
	holdingsCmd.Flags().String("criteria", "", "criteria JSON path for criteria_matches")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the GPR dataset and store it locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		pageURL := cfg.Fetch.DatasetPageURL
		if override, _ := cmd.Flags().GetString("url"); override != "" {
			pageURL = override
		}
		fetcher := fetch.NewGPRFetcher(pageURL, timeout(), log)
		points, err := fetcher.Refresh(ctx)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.UpsertDailyPoints(ctx, points); err != nil {
			return err
		}
		latest, _, err := st.LatestDate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Stored %d GPR daily points in %s (latest %s)\n", len(points), cfg.Store.Path, latest)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("url", "", "dataset page URL override")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		points, err := st.LoadDailyPoints(ctx)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			points, err = ingest.LoadGPRCSV(cfg.Inputs.GPRCSV, log)
			if err != nil {
				return fmt.Errorf("no stored GPR history and no loadable CSV: %w", err)
			}
			if err := st.UpsertDailyPoints(ctx, points); err != nil {
				return err
			}
		}

		srv, err := api.NewServer(cfg, points, st, log)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting gproverlay API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Shared helpers ---

type reportInputs struct {
	points   []models.DailyPoint
	snapshot models.PortfolioSnapshot
	betas    overlay.BetaTable
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("gpr", "", "GPR daily CSV path (default from config)")
	cmd.Flags().String("portfolio", "", "portfolio holdings CSV path (default from config)")
	cmd.Flags().String("betas", "", "industry reference table CSV path (default from config)")
	cmd.Flags().String("fund", "", "restrict a multi-fund CSV to this fund name")
	cmd.Flags().String("as-of", "", "restrict a multi-snapshot CSV to this as-of date")
	cmd.Flags().String("for-date", "", "target date for event selection (YYYY-MM-DD, required)")
	cmd.Flags().Bool("include-regimes", false, "also consider episodes and regimes")
	cmd.Flags().String("manual-peak", "", "override the detected event with a manual peak date")
	cmd.Flags().String("manual-start", "", "manual event start date")
	cmd.Flags().String("manual-end", "", "manual event end date")
	cmd.Flags().String("out", "", "write JSON output to this file instead of stdout")
}

// loadReportInputs reads the GPR series, the portfolio snapshot and the
// optional reference table concurrently.
func loadReportInputs(cmd *cobra.Command) (*reportInputs, error) {
	gprPath, _ := cmd.Flags().GetString("gpr")
	if gprPath == "" {
		gprPath = cfg.Inputs.GPRCSV
	}
	portfolioPath, _ := cmd.Flags().GetString("portfolio")
	if portfolioPath == "" {
		portfolioPath = cfg.Inputs.PortfolioCSV
	}
	if portfolioPath == "" {
		return nil, fmt.Errorf("a portfolio CSV is required (--portfolio or inputs.portfolio_csv)")
	}
	betasPath, _ := cmd.Flags().GetString("betas")
	if betasPath == "" {
		betasPath = cfg.Inputs.BetaTableCSV
	}

	filter := ingest.PortfolioFilter{}
	filter.FundName, _ = cmd.Flags().GetString("fund")
	filter.AsOfDate, _ = cmd.Flags().GetString("as-of")

	inputs := &reportInputs{}
	var g errgroup.Group
	g.Go(func() error {
		var err error
		inputs.points, err = ingest.LoadGPRCSV(gprPath, log)
		return err
	})
	g.Go(func() error {
		var err error
		inputs.snapshot, err = ingest.LoadPortfolioCSV(portfolioPath, filter, log)
		return err
	})
	if betasPath != "" {
		g.Go(func() error {
			var err error
			inputs.betas, err = ingest.LoadBetaTable(betasPath)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// buildAdvisory selects (or manually constructs) the event and produces the
// advisory report and impact profile.
func buildAdvisory(cmd *cobra.Command, inputs *reportInputs) (models.AdvisoryReport, models.ImpactProfile, error) {
	dcfg := cfg.Detector
	dcfg.IncludeRegimes, _ = cmd.Flags().GetBool("include-regimes")
	detector := detect.New(dcfg, log)

	var event models.Event
	if manualPeak, _ := cmd.Flags().GetString("manual-peak"); manualPeak != "" {
		peak, err := models.ParseDay(manualPeak)
		if err != nil {
			return models.AdvisoryReport{}, models.ImpactProfile{}, fmt.Errorf("invalid --manual-peak: %w", err)
		}
		start, end := peak, peak
		if raw, _ := cmd.Flags().GetString("manual-start"); raw != "" {
			if start, err = models.ParseDay(raw); err != nil {
				return models.AdvisoryReport{}, models.ImpactProfile{}, fmt.Errorf("invalid --manual-start: %w", err)
			}
		}
		if raw, _ := cmd.Flags().GetString("manual-end"); raw != "" {
			if end, err = models.ParseDay(raw); err != nil {
				return models.AdvisoryReport{}, models.ImpactProfile{}, fmt.Errorf("invalid --manual-end: %w", err)
			}
		}
		event, err = detector.ManualEvent(inputs.points, peak, start, end)
		if err != nil {
			return models.AdvisoryReport{}, models.ImpactProfile{}, err
		}
	} else {
		raw, _ := cmd.Flags().GetString("for-date")
		if raw == "" {
			return models.AdvisoryReport{}, models.ImpactProfile{}, fmt.Errorf("--for-date is required (or use --manual-peak)")
		}
		target, err := models.ParseDay(raw)
		if err != nil {
			return models.AdvisoryReport{}, models.ImpactProfile{}, fmt.Errorf("invalid --for-date: %w", err)
		}
		events, err := detector.Detect(inputs.points)
		if err != nil {
			return models.AdvisoryReport{}, models.ImpactProfile{}, err
		}
		event, err = detect.SelectForDate(events, target)
		if err != nil {
			return models.AdvisoryReport{}, models.ImpactProfile{}, err
		}
	}

	exposures := overlay.ComputeIndustryExposure(inputs.snapshot, inputs.betas, log)
	profile := overlay.ComputeEventImpact(event, exposures, log)
	report := advisory.BuildReport(inputs.snapshot, profile)
	return report, report.ImpactProfile, nil
}

func writeOutput(cmd *cobra.Command, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	raw = append(raw, '\n')

	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		log.Info().Str("path", out).Msg("wrote output")
		return nil
	}
	_, err = os.Stdout.Write(raw)
	return err
}

func loadSeries(cmd *cobra.Command) ([]models.DailyPoint, error) {
	path, _ := cmd.Flags().GetString("gpr")
	if path == "" {
		path = cfg.Inputs.GPRCSV
	}
	return ingest.LoadGPRCSV(path, log)
}

func timeout() time.Duration {
	return time.Duration(cfg.Fetch.TimeoutSec) * time.Second
}
