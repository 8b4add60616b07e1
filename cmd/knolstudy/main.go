package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knolstudy/internal/config"
	"github.com/conorfennell/knolstudy/internal/filestore"
	"github.com/conorfennell/knolstudy/internal/flashcards"
	"github.com/conorfennell/knolstudy/internal/importer"
	"github.com/conorfennell/knolstudy/internal/quiz"
	"github.com/conorfennell/knolstudy/internal/sessions"
	"github.com/conorfennell/knolstudy/internal/storage"
	"github.com/conorfennell/knolstudy/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	flags := pflag.CommandLine
	config.RegisterFlags(flags)
	importSource := flags.String("import", "", "Import a markdown directory or git URL into a new flashcard set and exit")
	importTitle := flags.String("title", "", "Title for the set created by --import")
	pflag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *importSource, *importTitle); err != nil {
		logger.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, importSource, importTitle string) error {
	// 2. Open the stores
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database opened successfully", "path", cfg.DB.Path)

	quizStore, err := filestore.Open(filepath.Join(cfg.Data.Dir, "quizzes"))
	if err != nil {
		return err
	}
	setStore, err := filestore.Open(filepath.Join(cfg.Data.Dir, "flashcards"))
	if err != nil {
		return err
	}

	banks := quiz.NewBanks(quizStore, logger)
	engine := quiz.NewEngine(banks, db, logger)
	engine.SessionSize = cfg.Quiz.SessionSize
	sets := flashcards.NewSets(setStore, flashcards.NewScheduler(db, nil), logger)
	imp := importer.New(sets, cfg.Repos.Dir, logger)

	// 3. One-shot import
	if importSource != "" {
		set, report, err := imp.Import(ctx, importSource, importTitle)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d cards into %q (%s): %d parsed, %d duplicates, %d errors.\n",
			report.Added, set.Title, set.ID, report.Parsed, report.Duplicates, len(report.Errors))
		if len(report.Errors) > 0 {
			fmt.Println("\nErrors:")
			for _, e := range report.Errors {
				fmt.Printf("- %s\n", e)
			}
		}
		return nil
	}

	// 4. Serve the API
	var live sessions.Store = sessions.NewMemory()
	if cfg.Redis.Addr != "" {
		rs, err := sessions.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rs.Close()
		live = rs
		logger.Info("Keeping quiz sessions in redis", "addr", cfg.Redis.Addr)
	}

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: web.NewServer(web.Deps{
			Banks:       banks,
			Engine:      engine,
			Generator:   quiz.NewGenerator(banks),
			Sessions:    live,
			Sets:        sets,
			Importer:    imp.WithLocalRoot(cfg.Import.Root),
			History:     db,
			ReviewLimit: cfg.Flashcards.ReviewLimit,
		}, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server is starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("HTTP server exited properly")
	return nil
}
