package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/flashcards/internal/api"
	"github.com/example/flashcards/internal/config"
	"github.com/example/flashcards/internal/consistency"
	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/internal/importer"
	"github.com/example/flashcards/internal/logger"
	"github.com/example/flashcards/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	cmd, args := "serve", []string{}
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}
	switch cmd {
	case "serve", "import", "reconcile":
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err := run(cfg, lg, cmd, args); err != nil {
		lg.Error("Command failed", "command", cmd, "error", err)
		lg.Sync()
		os.Exit(1)
	}
	lg.Sync()
}

func printUsage() {
	fmt.Println(`flashcards - flashcard item graph service

Usage: flashcards <command> [options]

Commands:
  serve               Run the JSON API and the reconciliation scheduler (default)
  import [-lang xx] <file>
                      Import categories, terms, contexts and flashcards from a .yaml or .xlsx file
  reconcile           Repair the environment edges once and exit

Configuration is read from the environment and an optional .env file.`)
}

func run(cfg *config.Config, lg *logger.Logger, cmd string, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := database.Connect(cfg.Database); err != nil {
		return err
	}
	defer database.Close()

	env, err := environment.Open(ctx, cfg, database.DB)
	if err != nil {
		return fmt.Errorf("failed to open %s environment: %w", cfg.EnvironmentBackend, err)
	}
	defer env.Close()

	categories := database.NewCategoryRepository(database.NewEdgeMirror(env))

	var relations consistency.RelationSyncer
	if cfg.SyncItemRelations {
		relations = database.NewItemRepository()
	}
	reconciler := consistency.New(categories, env, relations, lg.With("component", "reconciler"))

	switch cmd {
	case "import":
		return runImport(ctx, cfg, lg, categories, args)
	case "reconcile":
		report, err := reconciler.Repair(ctx)
		if err != nil {
			return err
		}
		lg.Info("Reconciliation finished",
			"missing_children", len(report.MissingChildren),
			"stale_children", len(report.StaleChildren),
			"missing_parents", len(report.MissingParents),
			"stale_parents", len(report.StaleParents),
			"relations_added", report.RelationsAdded,
			"relations_removed", report.RelationsRemoved,
		)
		return nil
	default:
		return serve(ctx, cfg, lg, categories, reconciler)
	}
}

func runImport(ctx context.Context, cfg *config.Config, lg *logger.Logger, categories *database.CategoryRepository, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	lang := fs.String("lang", cfg.DefaultLang, "language of rows without one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("import expects exactly one file")
	}

	im := importer.New(categories, lg.With("component", "importer"))
	result, err := im.ImportFile(ctx, importer.ImportConfig{FilePath: fs.Arg(0), DefaultLang: *lang})
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		lg.Warn("Import row failed", "error", e)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, lg *logger.Logger, categories *database.CategoryRepository, reconciler *consistency.Reconciler) error {
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.RouterConfig{
		Handler:      api.NewHandler(categories, cfg.DefaultLang, lg.With("component", "api")),
		AllowOrigins: cfg.AllowOrigins,
		Log:          lg.With("component", "http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sched := scheduler.New(reconciler, cfg.ReconcileInterval, lg.With("component", "scheduler"))
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() {
		lg.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		lg.Info("Shutting down")
	}

	// Give in-flight requests time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	lg.Info("Stopped successfully")
	return nil
}
