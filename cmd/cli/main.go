package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/logfile"
	"github.com/wadjakorntonsri/go-beacon/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-beacon/pkg/config"
	"github.com/wadjakorntonsri/go-beacon/pkg/core/domain"
	"github.com/wadjakorntonsri/go-beacon/pkg/logger"
)

const usage = "expected 'report', 'export' or 'import' subcommands"

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	if err := run(context.Background(), os.Args[1], os.Args[2:], cfg, loc, os.Stdout, log); err != nil {
		log.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

func run(ctx context.Context, cmd string, args []string, cfg *config.Config, loc *time.Location, out io.Writer, log zerolog.Logger) error {
	switch cmd {
	case "report":
		fs := flag.NewFlagSet("report", flag.ContinueOnError)
		logPath := fs.String("log", cfg.LogFile, "visit log to analyze; empty reports what -db already holds")
		dbURL := fs.String("db", cfg.ReportDatabaseURL, "report database DSN (sqlite or libsql URL)")
		limit := fs.Int("limit", 10, "entries per top list")
		asJSON := fs.Bool("json", false, "print the report as JSON")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return doReport(ctx, *logPath, *dbURL, *limit, *asJSON, loc, out, log)
	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		logPath := fs.String("log", cfg.LogFile, "visit log to export")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return doExport(*logPath, loc, out, log)
	case "import":
		fs := flag.NewFlagSet("import", flag.ContinueOnError)
		file := fs.String("file", "", "JSON file to import")
		dbURL := fs.String("db", cfg.ReportDatabaseURL, "report database DSN (sqlite or libsql URL)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *file == "" {
			fs.PrintDefaults()
			return fmt.Errorf("-file is required")
		}
		return doImport(ctx, *file, *dbURL, loc, log)
	default:
		return fmt.Errorf("unknown subcommand %q: %s", cmd, usage)
	}
}

func loadLog(path string, loc *time.Location, log zerolog.Logger) ([]domain.Visit, error) {
	res, err := logfile.ReadFile(path, loc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if res.Malformed > 0 {
		log.Warn().Int("lines", res.Malformed).Str("file", path).Msg("skipped malformed lines")
	}
	if res.Ambiguous > 0 {
		log.Warn().Int("lines", res.Ambiguous).Str("file", path).Msg("lines with separators inside fields, url/referrer/user agent may be misattributed")
	}
	return res.Visits, nil
}

func doReport(ctx context.Context, logPath, dbURL string, limit int, asJSON bool, loc *time.Location, out io.Writer, log zerolog.Logger) error {
	if logPath == "" && sqlite.IsInMemory(dbURL) {
		return errors.New("nothing to report: pass -log or a persistent -db")
	}

	repo, err := sqlite.NewVisitRepository(dbURL)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer repo.Close()
	repo.SetLocation(loc)

	// Repeated reports over the same log give the same totals.
	if logPath != "" {
		visits, err := loadLog(logPath, loc, log)
		if err != nil {
			return err
		}
		if err := repo.ReplaceVisits(ctx, visits); err != nil {
			return fmt.Errorf("load visits: %w", err)
		}
	}

	stats, err := repo.GetStats(ctx, limit)
	if err != nil {
		return fmt.Errorf("aggregate visits: %w", err)
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stats)
	}
	return printReport(out, stats)
}

func printReport(out io.Writer, stats *domain.VisitStats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total visits\t%d\n", stats.TotalVisits)

	fmt.Fprintln(tw, "\nTop URLs\t")
	for _, e := range stats.TopURLs {
		fmt.Fprintf(tw, "  %s\t%d\n", e.Key, e.Count)
	}

	fmt.Fprintln(tw, "\nTop referrers\t")
	for _, e := range stats.TopReferrers {
		fmt.Fprintf(tw, "  %s\t%d\n", e.Key, e.Count)
	}

	fmt.Fprintln(tw, "\nDaily visits\t")
	for _, d := range stats.DailyVisits {
		fmt.Fprintf(tw, "  %s\t%d\n", d.Date, d.Count)
	}
	return tw.Flush()
}

func doExport(logPath string, loc *time.Location, out io.Writer, log zerolog.Logger) error {
	visits, err := loadLog(logPath, loc, log)
	if err != nil {
		return err
	}
	if visits == nil {
		visits = []domain.Visit{}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(visits)
}

func doImport(ctx context.Context, filename, dbURL string, loc *time.Location, log zerolog.Logger) error {
	if sqlite.IsInMemory(dbURL) {
		return fmt.Errorf("refusing to import into in-memory database %q: pass a persistent -db", dbURL)
	}

	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer file.Close()

	var visits []domain.Visit
	if err := json.NewDecoder(file).Decode(&visits); err != nil {
		return fmt.Errorf("decode %s: %w", filename, err)
	}

	repo, err := sqlite.NewVisitRepository(dbURL)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer repo.Close()
	repo.SetLocation(loc)

	if err := repo.RecordVisits(ctx, visits); err != nil {
		return fmt.Errorf("import visits: %w", err)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("imported", len(visits)).Int64("total", total).Msg("import finished")
	return nil
}
