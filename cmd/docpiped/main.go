package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fintrack-io/docpipe/internal/async"
	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/contacts"
	"github.com/fintrack-io/docpipe/internal/entity"
	"github.com/fintrack-io/docpipe/internal/export"
	"github.com/fintrack-io/docpipe/internal/extract"
	"github.com/fintrack-io/docpipe/internal/llm/gemini"
	"github.com/fintrack-io/docpipe/internal/orchestrator"
	"github.com/fintrack-io/docpipe/internal/registry"
	"github.com/fintrack-io/docpipe/internal/repository"
)

func main() {
	var (
		documentFlag = flag.String("document", "", "document id to process")
		tenantFlag   = flag.String("tenant", "", "tenant id owning the document")
		exportFlag   = flag.String("export", "", "write a run-audit XLSX for the tenant to this path and exit")
		workersFlag  = flag.Int("workers", 1, "worker pool size for batch processing")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger, *documentFlag, *tenantFlag, *exportFlag, *workersFlag); err != nil {
		logger.Error("docpiped.failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, documentArg, tenantArg, exportPath string, workers int) error {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, pool, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repository.Close(db, pool, logger)

	if err := repository.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	if err := repository.Migrate(ctx, db, logger); err != nil {
		return err
	}

	documents := repository.NewDocumentRepository(db, logger)
	contactsRepo := repository.NewContactRepository(db, logger)
	extractions := repository.NewExtractionRepository(db, logger)
	indexer := repository.NewIndexerRepository(db, documents, logger)
	runs := repository.NewRunRepository(db, logger)

	if exportPath != "" {
		tenantID, err := uuid.Parse(tenantArg)
		if err != nil {
			return fmt.Errorf("parse tenant id: %w", err)
		}
		data, err := export.NewService(runs, logger).ExportRunAuditXLSX(ctx, tenantID, nil, nil)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportPath, data, 0o644); err != nil {
			return err
		}
		logger.Info("docpiped.export.ok", "path", exportPath, "bytes", len(data))
		return nil
	}

	sessions, err := gemini.NewFactory(ctx, gemini.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, logger)
	if err != nil {
		return fmt.Errorf("create session factory: %w", err)
	}

	vision := extract.NewVision(sessions, logger)
	collab := orchestrator.Collaborators{
		Images:        documents,
		Parsed:        documents,
		Contacts:      contactsRepo,
		LegalEntities: registry.NewClient(logger),
		Store:         extractions,
		Indexer:       indexer,
		Classify:      vision.ClassifyFunc(),
		Extractors:    vision.Extractors(),
		Describe:      vision.DescribeFunc(),
		Keywords:      vision.KeywordsFunc(),
	}
	policy := contacts.NewPolicy(contacts.ParseVariant(cfg.Orchestrator.LinkPolicy))
	orch := orchestrator.New(orchestrator.Config{Autonomy: cfg.Orchestrator.Autonomy},
		sessions, collab, policy, logger)

	documentID, err := uuid.Parse(documentArg)
	if err != nil {
		return fmt.Errorf("parse document id: %w", err)
	}
	tenantID, err := uuid.Parse(tenantArg)
	if err != nil {
		return fmt.Errorf("parse tenant id: %w", err)
	}

	var queue async.Queue = async.NewRunQueue(orch, runs, logger, async.WithWorkers(workers))
	if err := queue.Enqueue(ctx, async.Job{
		DocumentID:  documentID,
		TenantID:    tenantID,
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	return printLatestRun(ctx, runs, extractions, contactsRepo, tenantID, documentID, logger)
}

// openDatabase picks the backend from the DSN: postgres:// DSNs go through
// pgx, anything else is treated as a SQLite path.
func openDatabase(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repository.DB, *pgxpool.Pool, error) {
	dsn := cfg.Database.DSN
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return repository.Open(ctx, repository.Config{
			DSN:              dsn,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	db, err := repository.OpenSQLite(dsn, logger)
	return db, nil, err
}

func printLatestRun(ctx context.Context, runs repository.RunRepository, extractions repository.ExtractionRepository, directory repository.ContactRepository, tenantID, documentID uuid.UUID, logger *slog.Logger) error {
	all, err := runs.ListRuns(ctx, tenantID, nil, nil)
	if err != nil || len(all) == 0 {
		return err
	}
	last := all[len(all)-1]

	summary := struct {
		*entity.Run
		LinkedContact *entity.Contact `json:"linkedContact,omitempty"`
	}{Run: last}
	summary.LinkedContact = resolveLinkedContact(ctx, extractions, directory, documentID, logger)

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	logger.Info("docpiped.run.done", "run_id", last.ID, "result", last.Result)
	return nil
}

// resolveLinkedContact resolves the stored contact link against the
// directory so the summary shows the contact, not just its id. A stale or
// unparsable link is logged and skipped, never fatal.
func resolveLinkedContact(ctx context.Context, extractions repository.ExtractionRepository, directory repository.ContactRepository, documentID uuid.UUID, logger *slog.Logger) *entity.Contact {
	ext, err := extractions.GetLatestExtraction(ctx, documentID)
	if err != nil || ext.ContactID == "" {
		return nil
	}
	contactID, err := uuid.Parse(ext.ContactID)
	if err != nil {
		logger.Warn("docpiped.run.linked_contact_unparsable", "contact_id", ext.ContactID)
		return nil
	}
	contact, err := directory.GetContact(ctx, contactID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Warn("docpiped.run.linked_contact_missing", "contact_id", contactID)
		}
		return nil
	}
	return contact
}
