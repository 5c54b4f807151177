// main package for the lingocast worker
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/lingocast/internal/config"
	"github.com/book-expert/lingocast/internal/httpapi"
	"github.com/book-expert/lingocast/internal/worker"
	"github.com/book-expert/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	flagConfig     = "config"
	flagConfigDesc = "Path to a TOML configuration file (defaults to the central configurator)"
	bootstrapLog   = "lingocast-bootstrap.log"
	serviceLog     = "lingocast.log"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func loadConfig(path string, log *logger.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	return config.Load(log)
}

func run(configPath string) error {
	// 1. Create a temporary logger for the bootstrap process
	bootLog, err := setupLogger(os.TempDir(), bootstrapLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() {
		_ = bootLog.Close()
	}()

	bootLog.Info("Bootstrap logger created.")

	// 2. Load configuration
	cfg, err := loadConfig(configPath, bootLog)
	if err != nil {
		bootLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	log, err := setupLogger(cfg.Paths.BaseLogsDir, serviceLog)
	if err != nil {
		bootLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	for _, warning := range cfg.Warnings() {
		log.Warn("%s", warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Wire collaborators
	app, err := wire(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	gin.SetMode(gin.ReleaseMode)

	group, groupCtx := errgroup.WithContext(ctx)

	server := httpapi.NewServer(cfg.HTTP.Addr, httpapi.NewRouter(app.pipeline, log), log)
	group.Go(func() error {
		serveErr := server.Run(groupCtx)
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}

		return serveErr
	})

	if app.natsConnection != nil {
		natsWorker := worker.NewNatsWorker(app.natsConnection, cfg.NATS.JobSubject, app.pipeline, 0, log)
		group.Go(func() error {
			return natsWorker.Run(groupCtx)
		})
	}

	log.System("LingoCast initialized. HTTP on %s, storage %s, episodes %s", cfg.HTTP.Addr, cfg.Storage.Backend, cfg.Episodes.Backend)

	err = group.Wait()
	if err != nil {
		log.Error("Service stopped with error: %v", err)

		return err
	}

	log.System("LingoCast stopped.")

	return nil
}

func main() {
	configPath := flag.String(flagConfig, "", flagConfigDesc)
	flag.Parse()

	err := run(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
