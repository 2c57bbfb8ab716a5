package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/finbrief/statement-ingest/internal/extract"
	"github.com/finbrief/statement-ingest/internal/ingest"
	"github.com/finbrief/statement-ingest/internal/logger"
)

// Parses a local statement file and prints the canonical CSV. Useful for
// previewing what an upload would ingest without touching GCS or BigQuery.
func main() {
	log := logger.New()

	var (
		filePath = flag.String("file", "", "Path to a statement file (csv, txt, xlsx, xls, pdf)")
		timeout  = flag.Duration("timeout", 10*time.Minute, "Upper bound on remote extraction time")
		quiet    = flag.Bool("quiet", false, "Suppress progress output")
	)
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to read file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	extractor, err := extract.NewGeminiExtractor(ctx, os.Getenv("GEMINI_MODEL"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extractor")
	}

	svc := ingest.NewService(ingest.Params{
		Session:        extract.NewSession(extractor, logger.WithComponent(log, "extract")),
		Log:            log,
		ExtractTimeout: *timeout,
	})

	var sink extract.Sink = extract.Discard
	if !*quiet {
		sink = extract.SinkFunc(func(e extract.Event) {
			switch e.Type {
			case extract.EventProgress:
				log.Info().
					Str("stage", e.Stage).
					Int("percent", e.Percent).
					Msg(e.Message)
			case extract.EventError:
				log.Error().Msg(e.Message)
			}
		})
	}

	fileName := filepath.Base(*filePath)
	result, err := svc.ParseFile(ctx, fileName, data, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	log.Info().
		Str("parser_type", result.ParserType).
		Int("transactions", len(result.Transactions)).
		Msg("Parse completed")

	fmt.Println(result.CSVText)
}
