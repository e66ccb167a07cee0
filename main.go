package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-categorizer/internal/api"
	"github.com/insightdelivered/statement-categorizer/internal/classifier"
	"github.com/insightdelivered/statement-categorizer/internal/config"
	"github.com/insightdelivered/statement-categorizer/internal/extractor"
	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/metrics"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
	"github.com/insightdelivered/statement-categorizer/internal/pipeline"
	"github.com/insightdelivered/statement-categorizer/internal/writer"
)

const version = "1.0.0"

func main() {
	// CLI flags; each overrides the matching environment setting when given
	issuerFlag := flag.String("issuer", "", "Issuer: bradesco, nubank or auto (env ISSUER)")
	dirFlag := flag.String("dir", "", "Directory of statement PDFs (env STATEMENT_DIR)")
	holderFlag := flag.String("holder", "", "Cardholder name as printed on the statement (env HOLDER_NAME)")
	fallbackFlag := flag.String("fallback", "", "Fallback classifier: ollama, gemini or none (env FALLBACK_PROVIDER)")
	outputFlag := flag.String("output", "", "Output CSV file path (defaults to stdout)")
	headerFlag := flag.Bool("header", true, "Include run metadata rows in CSV")
	popplerFlag := flag.Bool("poppler", false, "Fall back to pdftotext for PDFs the built-in reader cannot open")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of processing files")
	staticFlag := flag.String("static", "", "Directory of static files to serve with --serve")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Credit Card Statement Categorizer

Extracts transactions from Bradesco and Nubank credit card statement PDFs
and assigns each one a spending category, using keyword rules first and
an optional language-model fallback for the rest.

Usage:
  statement-categorizer [flags] [statement.pdf ...]
  statement-categorizer --serve

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Categorize every PDF in a directory
  statement-categorizer --issuer=nubank --holder="MARIA SILVA" --dir=./faturas/nubank

  # Specific files, rules only, CSV to a file
  statement-categorizer --fallback=none --output=gastos.csv 2024-01.pdf 2024-02.pdf

  # HTTP API on SERVER_PORT (default 8080)
  statement-categorizer --serve

Supported Issuers:
  bradesco  - Bradesco (DD/MM dates, current year assumed)
  nubank    - Nubank (DD MMM dates, year taken from the YYYY-MM in the file name)
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-categorizer v%s\n", version)
		os.Exit(0)
	}
	if *helpFlag {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	overrideString(&cfg.Issuer, *issuerFlag)
	overrideString(&cfg.StatementDir, *dirFlag)
	overrideString(&cfg.HolderName, *holderFlag)
	overrideString(&cfg.FallbackProvider, strings.ToLower(*fallbackFlag))
	if err := cfg.Validate(); err != nil {
		fatalf("Configuration error: %v\n", err)
	}

	log := logger.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewPipeline(reg)

	cls, err := newClassifier(ctx, cfg, m)
	if err != nil {
		fatalf("Classifier setup failed: %v\n", err)
	}
	source := extractor.PDFSource{Poppler: *popplerFlag}

	if *serveFlag {
		h := &api.Handler{
			Config:     cfg,
			Classifier: cls,
			Source:     source,
			Metrics:    m,
			Gatherer:   reg,
			Logger:     log,
			StaticDir:  *staticFlag,
		}
		if err := serve(ctx, h, cfg.ServerPort, log); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	paths := flag.Args()
	if len(paths) == 0 {
		if cfg.StatementDir == "" {
			flag.Usage()
			os.Exit(0)
		}
		paths, err = extractor.ListPDFs(cfg.StatementDir)
		if err != nil {
			fatalf("%v\n", err)
		}
		if len(paths) == 0 {
			fatalf("No PDF files found in %s\n", cfg.StatementDir)
		}
	}

	result, err := run(ctx, cfg, cls, source, m, paths)
	if err != nil {
		if result == nil || !errors.Is(err, context.Canceled) {
			fatalf("%v\n", err)
		}
		log.Warn().Err(err).Int("documents", len(result.Documents)).Msg("run interrupted, writing partial results")
	}

	w := &writer.CSVWriter{IncludeHeader: *headerFlag}
	if *outputFlag == "" || *outputFlag == "-" {
		err = w.Write(os.Stdout, result)
	} else {
		err = w.WriteToFile(*outputFlag, result)
	}
	if err != nil {
		fatalf("CSV write failed: %v\n", err)
	}

	printSummary(result)
}

func run(ctx context.Context, cfg *config.Config, cls *classifier.Classifier, source extractor.PDFSource, m *metrics.Pipeline, paths []string) (*models.RunResult, error) {
	log := logger.FromContext(ctx)

	issuer, err := parser.ParseIssuer(cfg.Issuer)
	if err != nil {
		return nil, err
	}
	if issuer == "" {
		issuer, err = detectIssuer(source, paths)
		if err != nil {
			return nil, err
		}
		log.Info().Str("issuer", string(issuer)).Msg("auto-detected issuer")
	}

	profile, err := cfg.Profile(issuer)
	if err != nil {
		return nil, err
	}
	if cfg.HolderName == "" {
		base, _ := parser.Builtin(issuer)
		if base.NeedsHolder() {
			log.Warn().Str("issuer", string(issuer)).Msg("HOLDER_NAME is not set; anchors that use the cardholder name are treated as missing")
		}
	}

	driver := pipeline.NewDriver(profile, cls, pipeline.WithSource(source), pipeline.WithMetrics(m))
	return driver.RunFiles(ctx, paths)
}

// detectIssuer reads files until one identifies its issuer.
func detectIssuer(source pipeline.TextSource, paths []string) (models.IssuerType, error) {
	var lastErr error
	for _, p := range paths {
		pages, err := source.Pages(p)
		if err != nil {
			lastErr = err
			continue
		}
		issuer, err := parser.AutoDetect(pages)
		if err == nil {
			return issuer, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("auto-detection failed: %w", lastErr)
}

func newClassifier(ctx context.Context, cfg *config.Config, m *metrics.Pipeline) (*classifier.Classifier, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}

	opts := []classifier.Option{
		classifier.WithTimeout(cfg.FallbackTimeout),
		classifier.WithRateLimit(cfg.FallbackRate),
		classifier.WithMetrics(m),
	}

	switch cfg.FallbackProvider {
	case config.ProviderGemini:
		g, err := classifier.NewGeminiClient(ctx, cfg.Secrets.GeminiAPIKey, cfg.GeminiBaseURL)
		if err != nil {
			return nil, err
		}
		model := cfg.FallbackModel
		if model == "" {
			model = classifier.DefaultGeminiModel
		}
		opts = append(opts, classifier.WithFallback(g, model))
	case config.ProviderOllama:
		opts = append(opts, classifier.WithFallback(classifier.NewOllamaClient(cfg.OllamaHost, cfg.FallbackTimeout), cfg.FallbackModel))
	}

	return classifier.New(rules, opts...)
}

func serve(ctx context.Context, h *api.Handler, port string, log zerolog.Logger) error {
	app := fiber.New(fiber.Config{
		BodyLimit:             32 << 20,
		DisableStartupMessage: true,
	})
	h.RegisterRoutes(app)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	log.Info().Str("port", port).Str("version", version).Msg("listening")
	return app.Listen(":" + port)
}

func printSummary(result *models.RunResult) {
	for _, doc := range result.Documents {
		if doc.Err != "" {
			fmt.Fprintf(os.Stderr, "  %s: FAILED (%s)\n", doc.Name, doc.Err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %s: %d extracted, %d excluded, %d rejected, %d duplicates, %d admitted\n",
			doc.Name, doc.Extracted, doc.Excluded, doc.Rejected, doc.Duplicates, doc.Admitted)
	}

	if len(result.Transactions) == 0 {
		fmt.Fprintln(os.Stderr, "  Warning: No transactions found. Check the issuer and the cardholder name used for anchors.")
		return
	}

	fmt.Fprintf(os.Stderr, "\n  %-14s %6s %14s\n", "CATEGORY", "COUNT", "TOTAL (R$)")
	for _, t := range pipeline.Totals(result.Transactions) {
		fmt.Fprintf(os.Stderr, "  %-14s %6d %14s\n", t.Category, t.Count, t.Total.StringFixed(2))
	}
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
