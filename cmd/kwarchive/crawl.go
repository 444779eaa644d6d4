package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/kwarchive/internal/config"
	"github.com/nao1215/kwarchive/internal/crawler"
	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/log"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/report"
	"github.com/nao1215/kwarchive/internal/tor"
)

// summaryFileName is the Markdown summary written into every run directory.
const summaryFileName = "summary.md"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <keyword>",
		Short: "Search the configured sources and archive every result",
		Long: `Crawl searches every enabled source for the keyword, walks all result
pages, drops duplicate links and archives each article.

Output is written to <output>/Result_<keyword>_<unix>/<source>/ and holds
one document per article, an attachments/ directory and the run ledger.

Press Ctrl+C once to stop after the current article; press it again to
abort immediately.

Examples:
  # Crawl every enabled source
  kwarchive crawl 央行

  # Crawl one source into a specific directory as HTML documents
  kwarchive crawl --source pbc -o ./archive --format html 利率

  # Limit the crawl and print a JSON summary
  kwarchive crawl --max-pages 3 --summary json 货币政策

  # Route all traffic through a running Tor daemon
  kwarchive crawl --tor-proxy 127.0.0.1:9050 keyword`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	// Source selection
	cmd.Flags().StringSliceP("source", "s", nil,
		"Sources to crawl (default: every enabled source)")
	cmd.Flags().StringP("config", "c", "",
		"Sources file path (default: .kwarchive in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Root directory of the run output")
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Document format: markdown or html")
	cmd.Flags().String("summary", config.DefaultSummaryFormat,
		"Summary format printed when the crawl ends: text, markdown or json")
	cmd.Flags().Bool("no-ledger", false,
		"Do not write the SQLite run ledger")
	cmd.Flags().Bool("probe-exif", false,
		"Record EXIF capture time and camera of JPEG images in the ledger")

	// Crawl behavior flags
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of result pages per source")
	cmd.Flags().Duration("min-delay", config.DefaultMinDelay,
		"Minimum pause between requests")
	cmd.Flags().Duration("max-delay", config.DefaultMaxDelay,
		"Maximum pause between requests")
	cmd.Flags().IntP("retries", "r", config.DefaultRetries,
		"Retries for each page and article")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("parallel", config.DefaultParallel,
		"Number of sources crawled concurrently")
	cmd.Flags().Float64("max-rps", 0,
		"Global requests-per-second ceiling (0 disables it)")
	cmd.Flags().String("user-agent", "",
		"Override the User-Agent header")

	// Tor connection flags
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route all traffic through it")
	cmd.Flags().String("tor-proxy", "",
		"Route all traffic through an existing SOCKS5 proxy (e.g., "+config.DefaultTorProxyAddress+")")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return runCrawl(ctx, cancel, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Sources, err = flags.GetStringSlice("source"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if cfg.SummaryFormat, err = flags.GetString("summary"); err != nil {
		return nil, err
	}
	if cfg.NoLedger, err = flags.GetBool("no-ledger"); err != nil {
		return nil, err
	}
	if cfg.ProbeImageMeta, err = flags.GetBool("probe-exif"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.MinDelay, err = flags.GetDuration("min-delay"); err != nil {
		return nil, err
	}
	if cfg.MaxDelay, err = flags.GetDuration("max-delay"); err != nil {
		return nil, err
	}
	if cfg.Retries, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Parallel, err = flags.GetInt("parallel"); err != nil {
		return nil, err
	}
	if cfg.MaxRPS, err = flags.GetFloat64("max-rps"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Tor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorProxyAddress, err = flags.GetString("tor-proxy"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.JSONLog = getBoolFlag(cmd, "log-json")

	cfg.SourcesFile, _, err = loadSources(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Keyword = args[0]
	}
	return cfg, nil
}

// runCrawl executes the crawl. cancel aborts in-flight requests and is
// wired to the second interrupt.
func runCrawl(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	sources, err := cfg.SourcesFile.Select(cfg.Sources)
	if err != nil {
		return err
	}

	transport, stopTor, err := setupTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopTor()

	runDir := crawler.RunDir(cfg.OutputDir, cfg.Keyword, time.Now())
	runner, err := newRunner(cfg, sources, runDir, transport, logger)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"keyword", cfg.Keyword,
		"sources", len(sources),
		"output", runDir,
		"tor", cfg.Tor || cfg.TorProxyAddress != "",
	)

	stopSignals := handleSignals(ctx, cancel, runner, logger)
	defer stopSignals()

	summaries, runErr := runner.Run(ctx, cfg.Keyword)

	if err := writeRunSummary(runDir, summaries); err != nil {
		logger.Warn("failed to write run summary", "error", err)
	}
	if err := printSummary(out, cfg.SummaryFormat, cfg.Verbose, summaries); err != nil {
		return err
	}
	return runErr
}

// newRunner builds one session per source. limiter is shared so that
// --max-rps bounds the whole run.
func newRunner(cfg *config.Config, sources []config.SourceConfig, runDir string, transport http.RoundTripper, logger *slog.Logger) (*crawler.Runner, error) {
	limiter := fetch.NewLimiter(cfg.MaxRPS)
	sink := log.NewSlogSink(logger)

	sessions := make([]*crawler.Session, 0, len(sources))
	for _, sc := range sources {
		client := fetch.New(crawler.FetcherOptions(cfg, sc, limiter, transport)...)
		src, err := crawler.NewSource(sc, client)
		if err != nil {
			return nil, err
		}
		opts, err := crawler.SessionOptions(cfg, sc, crawler.SourceDir(runDir, sc.Name))
		if err != nil {
			return nil, err
		}
		opts = append(opts, crawler.WithSink(sink.With("source", sc.Name)))
		sessions = append(sessions, crawler.NewSession(src, opts...))
	}

	return crawler.NewRunner(sessions,
		crawler.WithConcurrency(cfg.Parallel),
		crawler.WithRunnerSink(sink),
	), nil
}

// setupTransport returns the Tor transport requested by cfg, or nil for
// direct connections. The returned func stops an embedded daemon.
func setupTransport(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.RoundTripper, func(), error) {
	noop := func() {}

	switch {
	case cfg.TorProxyAddress != "":
		p, err := tor.NewProxy(cfg.TorProxyAddress)
		if err != nil {
			return nil, noop, err
		}
		if err := p.Check(ctx); err != nil {
			return nil, noop, fmt.Errorf("tor proxy check failed (make sure Tor is running at %s): %w", p.Address(), err)
		}
		logger.Info("tor proxy connection verified", "address", p.Address())
		return p.Transport(), noop, nil

	case cfg.Tor:
		logger.Info("starting embedded Tor daemon, this may take 1-3 minutes")
		embedded := tor.NewEmbeddedTor(tor.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := embedded.Start(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		stop := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		p, err := embedded.Proxy()
		if err != nil {
			stop()
			return nil, noop, err
		}
		logger.Info("embedded Tor daemon started", "socksAddr", p.Address())
		return p.Transport(), stop, nil

	default:
		return nil, noop, nil
	}
}

// handleSignals stops the runner on the first SIGINT/SIGTERM and cancels
// ctx on the second. The returned func releases the signal handler.
func handleSignals(ctx context.Context, cancel context.CancelFunc, runner *crawler.Runner, logger *slog.Logger) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigCh:
		case <-done:
			return
		case <-ctx.Done():
			return
		}
		logger.Warn("received shutdown signal, stopping after the current article (repeat to abort)")
		runner.Stop()

		select {
		case <-sigCh:
		case <-done:
			return
		case <-ctx.Done():
			return
		}
		logger.Warn("received second shutdown signal, aborting")
		cancel()
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// writeRunSummary stores a Markdown summary next to the source directories.
func writeRunSummary(runDir string, summaries []*model.CrawlSummary) error {
	if _, err := os.Stat(runDir); err != nil {
		// Nothing was written, e.g. every session failed during setup.
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	f, err := os.OpenFile(filepath.Join(runDir, summaryFileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = report.NewMarkdownWriter(f, report.WithMarkdownVersion(getVersion())).Write(nonNil(summaries)...)
	return err
}

// printSummary writes summaries to out in format.
func printSummary(out io.Writer, format string, verbose bool, summaries []*model.CrawlSummary) error {
	w, err := report.NewWriter(format, out, getVersion(), verbose)
	if err != nil {
		return err
	}
	_, err = w.Write(nonNil(summaries)...)
	return err
}

func nonNil(summaries []*model.CrawlSummary) []*model.CrawlSummary {
	out := make([]*model.CrawlSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
