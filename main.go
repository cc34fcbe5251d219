package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tracker/src/api"
	apicontrollers "tracker/src/api/controllers"
	apihandlers "tracker/src/api/handlers"
	"tracker/src/clients/feed"
	"tracker/src/config"
	"tracker/src/database"
	"tracker/src/registry"
	"tracker/src/repositories"
	"tracker/src/services"
	"tracker/src/utils"
	"tracker/src/worker"
	workercontrollers "tracker/src/worker/controllers"
	workerhandlers "tracker/src/worker/handlers"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig("./settings", os.Getenv("ENV"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error while loading config:", err)
		os.Exit(1)
	}
	logger := utils.NewLoggerFromSettings(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:]); err != nil {
		logger.WithError(err).Error("Couldn't run")
		os.Exit(1)
	}
}

type app struct {
	db        *sql.DB
	registry  *registry.Registry
	holdings  repositories.HoldingRepository
	runLog    repositories.RunLogRepository
	ingestion *services.IngestionService
	query     *services.QueryService
}

func newApp(cfg *config.Config) (*app, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("building source registry: %w", err)
	}
	db, driver, err := database.SetupDB(cfg)
	if err != nil {
		return nil, err
	}

	holdings := repositories.NewHoldingRepository(db, driver)
	runLog := repositories.NewRunLogRepository(db, driver)
	normalizer := services.NewNormalizerService(feed.NewClient(cfg.Ingestion.HTTPTimeout), nil)
	return &app{
		db:        db,
		registry:  reg,
		holdings:  holdings,
		runLog:    runLog,
		ingestion: services.NewIngestionService(reg, normalizer, holdings, runLog, nil),
		query:     services.NewQueryService(holdings),
	}, nil
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.db.Close()
	ctx = utils.WithLogger(ctx, logger)

	switch serviceType := config.ServiceType(strings.ToUpper(string(cfg.Service.Type))); serviceType {
	case config.API:
		if err := a.holdings.Initialize(ctx); err != nil {
			return err
		}
		controller := apicontrollers.NewHoldingsController(a.registry, a.query, services.NewExportService(), a.runLog)
		server := api.NewServer(apihandlers.NewHandler(controller, logger))
		return serve(ctx, api.NewHTTPServer(server, cfg.Service.Port), logger)

	case config.WORKER:
		controller := workercontrollers.NewController(a.ingestion, logger)
		if err := controller.ScheduleIngestion(cfg.Ingestion.Schedule); err != nil {
			return fmt.Errorf("scheduling ingestion %q: %w", cfg.Ingestion.Schedule, err)
		}
		defer controller.StopSchedule()
		server := worker.NewServer(workerhandlers.NewHandler(controller))
		return serve(ctx, worker.NewHTTPServer(server, cfg.Service.Port), logger)

	case config.INGEST:
		summary := a.ingestion.Run(ctx, upper(args))
		if err := printJSON(summary); err != nil {
			return err
		}
		if len(summary.Succeeded)+len(summary.Skipped) == 0 && len(summary.Failed) > 0 {
			return errors.New("every ETF failed to ingest")
		}
		return nil

	case config.REPORT:
		return report(ctx, a, upper(args))

	default:
		return fmt.Errorf("unknown service type %q", serviceType)
	}
}

// report prints the store statistics followed by the latest top holdings of each ETF.
func report(ctx context.Context, a *app, codes []string) error {
	if err := a.holdings.Initialize(ctx); err != nil {
		return err
	}
	stats, err := a.query.DatabaseStats(ctx)
	if err != nil {
		return err
	}
	if err := printJSON(stats); err != nil {
		return err
	}

	if len(codes) == 0 {
		codes = a.registry.Codes()
	}
	for _, code := range codes {
		top, err := a.query.TopN(ctx, code, 10, nil)
		if err != nil {
			return err
		}
		if err := printJSON(map[string]interface{}{"etf_code": code, "top_holdings": top}); err != nil {
			return err
		}
	}
	return nil
}

func serve(ctx context.Context, httpServer *http.Server, logger *logrus.Logger) error {
	errC := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Starting server")

		// "ListenAndServe always returns a non-nil error. After Shutdown or Close, the returned error is
		// ErrServerClosed."
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func upper(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}
