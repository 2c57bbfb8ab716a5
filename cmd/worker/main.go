package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finbrief/statement-ingest/internal/config"
	"github.com/finbrief/statement-ingest/internal/extract"
	"github.com/finbrief/statement-ingest/internal/gcs"
	infraBQ "github.com/finbrief/statement-ingest/internal/infra/bigquery"
	"github.com/finbrief/statement-ingest/internal/ingest"
	"github.com/finbrief/statement-ingest/internal/jobs"
	"github.com/finbrief/statement-ingest/internal/jobs/inmemory"
	"github.com/finbrief/statement-ingest/internal/logger"
)

// Standalone statement-processing worker. The in-memory queue only sees
// jobs published within this process; swap it for Cloud Tasks or Pub/Sub
// before running workers separately from the API.
func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger repository")
	}
	defer repo.Close()

	store, err := gcs.NewStore(ctx, cfg.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer store.Close()

	extractor, err := extract.NewGeminiExtractor(ctx, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extractor")
	}

	svc := ingest.NewService(ingest.Params{
		Storage:         store,
		Repo:            repo,
		Session:         extract.NewSession(extractor, logger.WithComponent(log, "extract")),
		Log:             logger.WithComponent(log, "ingest"),
		ExtractTimeout:  cfg.ExtractTimeout,
		DefaultCurrency: cfg.DefaultCurrency,
	})

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 0, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		parseJob, ok := job.(*jobs.ParseStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("document_id", parseJob.DocumentID).
			Str("gcs_uri", parseJob.GCSURI).
			Msg("Processing parse job")

		count, err := svc.ProcessStatement(ctx, parseJob.DocumentID, parseJob.GCSURI, parseJob.FileName)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", parseJob.JobID).
				Str("document_id", parseJob.DocumentID).
				Msg("Statement processing failed")
			return err
		}
		parseJob.RowCount = count

		log.Info().
			Str("job_id", parseJob.JobID).
			Str("document_id", parseJob.DocumentID).
			Int("rows", count).
			Msg("Statement processing completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := jobQueue.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Worker exited")
}
