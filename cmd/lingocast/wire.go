package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/book-expert/lingocast/internal/config"
	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/episode"
	"github.com/book-expert/lingocast/internal/objectstore"
	"github.com/book-expert/lingocast/internal/pipeline"
	"github.com/book-expert/lingocast/internal/publisher"
	"github.com/book-expert/lingocast/internal/story"
	"github.com/book-expert/lingocast/internal/tts"
	"github.com/book-expert/lingocast/internal/worker"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

// application holds the long-lived collaborators and what must be released
// on shutdown.
type application struct {
	pipeline       *pipeline.Pipeline
	natsConnection *nats.Conn
	closers        []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func wire(ctx context.Context, cfg *config.Config, log *logger.Logger) (*application, error) {
	app := &application{}

	if cfg.NATS.Enabled() {
		natsConnection, err := nats.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}

		app.natsConnection = natsConnection
		app.closers = append(app.closers, natsConnection.Close)
	}

	composer := story.NewComposer(story.Options{
		TemplatePath: cfg.Story.TemplatePath,
		OutputDir:    cfg.Paths.OutputDir,
		InputName:    cfg.Story.InputFileName,
		Padding:      story.PolicyFor(cfg.Story.PadWordsTo, cfg.Story.PaddingWords),
	}, log)

	invoker := tts.New(tts.Config{
		Executable:              cfg.TTS.Executable,
		Script:                  cfg.TTS.Script,
		WorkDir:                 cfg.TTS.WorkDir,
		AudioExtension:          cfg.TTS.AudioExtension,
		UseStructuredTranscript: cfg.TTS.UseStructuredTranscript,
		Timeout:                 time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
	}, tts.ExecRunner{}, log)

	objects := buildObjectStore(cfg, app.natsConnection, log)

	episodes, closeEpisodes := buildEpisodeStore(ctx, cfg, log)
	if closeEpisodes != nil {
		app.closers = append(app.closers, closeEpisodes)
	}

	var notifier core.Notifier
	if app.natsConnection != nil {
		notifier = worker.NewEventNotifier(app.natsConnection, cfg.NATS.AudioPublishedSubject)
	}

	app.pipeline = pipeline.New(
		composer,
		invoker,
		publisher.New(objects, log),
		episode.NewRecorder(episodes, log),
		pipeline.Options{
			FallbackAudioURL: cfg.Storage.FallbackAudioURL,
			Notifier:         notifier,
			Now:              time.Now,
		},
		log,
	)

	return app, nil
}

// buildObjectStore returns nil when the selected backend cannot be set up;
// uploads then fail per job with core.ErrUploadNotConfigured.
func buildObjectStore(cfg *config.Config, natsConnection *nats.Conn, log *logger.Logger) core.ObjectStore {
	switch cfg.Storage.Backend {
	case config.BackendS3:
		sess, err := session.NewSession(awsConfig(cfg.S3.Region, cfg.S3.Endpoint, true))
		if err != nil {
			log.Error("S3 storage disabled: %v", err)

			return nil
		}

		return objectstore.NewS3Store(s3.New(sess), cfg.Storage.Bucket, cfg.S3.Region, cfg.Storage.PublicBaseURL)

	case config.BackendNATS:
		if natsConnection == nil {
			return nil
		}

		jetstreamContext, err := natsConnection.JetStream()
		if err != nil {
			log.Error("NATS object storage disabled: %v", err)

			return nil
		}

		store, err := objectstore.NewNatsObjectStore(jetstreamContext, cfg.NATS.ObjectStoreBucket, cfg.Storage.PublicBaseURL)
		if err != nil {
			log.Error("NATS object storage disabled: %v", err)

			return nil
		}

		return store

	default:
		store, err := objectstore.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Storage.Bucket, nil)
		if err != nil {
			return nil
		}

		return store
	}
}

// buildEpisodeStore returns nil when the selected backend cannot be set up;
// episodes are then skipped per job with a warning.
func buildEpisodeStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (core.EpisodeStore, func()) {
	switch cfg.Episodes.Backend {
	case config.BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return nil, nil
		}

		store, err := episode.OpenPostgres(ctx, cfg.Postgres.DSN, cfg.Episodes.Table)
		if err != nil {
			log.Error("Postgres episode store disabled: %v", err)

			return nil, nil
		}

		return store, closeLogged(store.Close, log)

	case config.BackendSQLite:
		if cfg.SQLite.Path == "" {
			return nil, nil
		}

		store, err := episode.OpenSQLite(ctx, filepath.Clean(cfg.SQLite.Path), cfg.Episodes.Table)
		if err != nil {
			log.Error("SQLite episode store disabled: %v", err)

			return nil, nil
		}

		return store, closeLogged(store.Close, log)

	case config.BackendDynamoDB:
		sess, err := session.NewSession(awsConfig(cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint, false))
		if err != nil {
			log.Error("DynamoDB episode store disabled: %v", err)

			return nil, nil
		}

		return episode.NewDynamoStore(dynamodb.New(sess), cfg.Episodes.Table), nil

	default:
		store, err := episode.NewSupabaseStore(cfg.Supabase.URL, cfg.Supabase.ServiceKey, cfg.Episodes.Table, nil)
		if err != nil {
			return nil, nil
		}

		return store, nil
	}
}

func awsConfig(region, endpoint string, pathStyle bool) *aws.Config {
	awsCfg := aws.NewConfig()
	if region != "" {
		awsCfg = awsCfg.WithRegion(region)
	}

	if endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(endpoint).WithS3ForcePathStyle(pathStyle)
	}

	return awsCfg
}

func closeLogged(closeFn func() error, log *logger.Logger) func() {
	return func() {
		err := closeFn()
		if err != nil {
			log.Warn("Failed to close episode store: %v", err)
		}
	}
}
