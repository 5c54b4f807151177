// Package config provides the configuration structure for the lingocast worker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Storage and episode backend names.
const (
	BackendSupabase = "supabase"
	BackendS3       = "s3"
	BackendNATS     = "nats"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

const (
	defaultHTTPAddr       = ":5000"
	defaultAudioExtension = ".mp3"
	defaultBucket         = "podcasts"
	defaultEpisodesTable  = "episodes"
	defaultInputFileName  = "input.txt"
	outputDirName         = "lingocast_output"
	defaultJobSubject     = "lingocast.jobs"
	defaultAudioSubject   = "lingocast.audio.published"
)

// DefaultPaddingWords fill short word lists when padding is enabled.
var DefaultPaddingWords = []string{
	"effortless", "consistent", "ubiquitous", "meticulous", "scrutinize", "peculiar",
}

// ErrUnknownBackend indicates a backend name that no component implements.
var ErrUnknownBackend = errors.New("unknown backend")

// HTTPConfig holds the inbound HTTP endpoint settings.
type HTTPConfig struct {
	Addr string `toml:"addr" env:"LINGOCAST_HTTP_ADDR"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"                     env:"NATS_URL"`
	JobSubject            string `toml:"job_subject"`
	AudioPublishedSubject string `toml:"audio_published_subject"`
	ObjectStoreBucket     string `toml:"object_store_bucket"`
}

// Enabled reports whether a NATS connection is wanted at all.
func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// TTSServiceConfig holds the external synthesis program settings.
type TTSServiceConfig struct {
	Executable              string `toml:"executable"                env:"LINGOCAST_TTS_EXECUTABLE"`
	Script                  string `toml:"script"                    env:"LINGOCAST_TTS_SCRIPT"`
	WorkDir                 string `toml:"work_dir"                  env:"LINGOCAST_TTS_WORK_DIR"`
	AudioExtension          string `toml:"audio_extension"`
	UseStructuredTranscript bool   `toml:"use_structured_transcript"`
	TimeoutSeconds          int    `toml:"timeout_seconds"`
}

// StoryConfig holds the story template settings.
type StoryConfig struct {
	TemplatePath  string   `toml:"template_path"  env:"LINGOCAST_TEMPLATE_PATH"`
	InputFileName string   `toml:"input_file_name"`
	PadWordsTo    int      `toml:"pad_words_to"`
	PaddingWords  []string `toml:"padding_words"`
}

// StorageConfig selects the object storage backend.
type StorageConfig struct {
	Backend          string `toml:"backend"            env:"LINGOCAST_STORAGE_BACKEND"`
	Bucket           string `toml:"bucket"             env:"LINGOCAST_BUCKET"`
	PublicBaseURL    string `toml:"public_base_url"`
	FallbackAudioURL string `toml:"fallback_audio_url"`
}

// EpisodesConfig selects the episode metadata backend.
type EpisodesConfig struct {
	Backend string `toml:"backend" env:"LINGOCAST_EPISODES_BACKEND"`
	Table   string `toml:"table"`
}

// SupabaseConfig holds the Supabase project coordinates.
type SupabaseConfig struct {
	URL        string `toml:"url"         env:"SUPABASE_URL"`
	ServiceKey string `toml:"service_key" env:"SUPABASE_SERVICE_KEY"`
}

// Configured reports whether both URL and credential are present.
func (c SupabaseConfig) Configured() bool {
	return c.URL != "" && c.ServiceKey != ""
}

// S3Config holds the S3 bucket settings.
type S3Config struct {
	Region   string `toml:"region"   env:"AWS_REGION"`
	Endpoint string `toml:"endpoint" env:"LINGOCAST_S3_ENDPOINT"`
}

// PostgresConfig holds the direct database connection.
type PostgresConfig struct {
	DSN string `toml:"dsn" env:"DATABASE_URL"`
}

// DynamoDBConfig holds the DynamoDB table settings.
type DynamoDBConfig struct {
	Region   string `toml:"region"   env:"AWS_REGION"`
	Endpoint string `toml:"endpoint" env:"LINGOCAST_DYNAMODB_ENDPOINT"`
}

// SQLiteConfig holds the local database file.
type SQLiteConfig struct {
	Path string `toml:"path" env:"LINGOCAST_SQLITE_PATH"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir" env:"LINGOCAST_LOGS_DIR"`
	OutputDir   string `toml:"output_dir"    env:"LINGOCAST_OUTPUT_DIR"`
}

// Config is the root configuration structure.
type Config struct {
	HTTP     HTTPConfig       `toml:"http"`
	NATS     NATSConfig       `toml:"nats"`
	TTS      TTSServiceConfig `toml:"tts_service"`
	Story    StoryConfig      `toml:"story"`
	Storage  StorageConfig    `toml:"storage"`
	Episodes EpisodesConfig   `toml:"episodes"`
	Supabase SupabaseConfig   `toml:"supabase"`
	S3       S3Config         `toml:"s3"`
	Postgres PostgresConfig   `toml:"postgres"`
	DynamoDB DynamoDBConfig   `toml:"dynamodb"`
	SQLite   SQLiteConfig     `toml:"sqlite"`
	Paths    PathsConfig      `toml:"paths"`
}

// Load loads the project configuration through the central configurator and
// then applies environment overrides.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile parses a local TOML file and then applies environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	var cfg Config

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	err := ApplyEnv(cfg)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv reads an optional .env file and overlays environment variables on
// top of the file configuration. Unset variables leave file values alone.
func ApplyEnv(cfg *Config) error {
	loadErr := godotenv.Load()
	if loadErr != nil && !errors.Is(loadErr, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env file: %w", loadErr)
	}

	err := env.Parse(cfg)
	if err != nil {
		return fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return nil
}

// ApplyDefaults fills in everything the worker can run without.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}

	if c.TTS.AudioExtension == "" {
		c.TTS.AudioExtension = defaultAudioExtension
	}

	if !strings.HasPrefix(c.TTS.AudioExtension, ".") {
		c.TTS.AudioExtension = "." + c.TTS.AudioExtension
	}

	if c.Story.InputFileName == "" {
		c.Story.InputFileName = defaultInputFileName
	}

	if len(c.Story.PaddingWords) == 0 {
		c.Story.PaddingWords = append([]string(nil), DefaultPaddingWords...)
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSupabase
	}

	if c.Storage.Bucket == "" {
		c.Storage.Bucket = defaultBucket
	}

	if c.NATS.JobSubject == "" {
		c.NATS.JobSubject = defaultJobSubject
	}

	if c.NATS.AudioPublishedSubject == "" {
		c.NATS.AudioPublishedSubject = defaultAudioSubject
	}

	if c.NATS.ObjectStoreBucket == "" {
		c.NATS.ObjectStoreBucket = c.Storage.Bucket
	}

	if c.Episodes.Backend == "" {
		c.Episodes.Backend = BackendSupabase
	}

	if c.Episodes.Table == "" {
		c.Episodes.Table = defaultEpisodesTable
	}

	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = defaultOutputDir()
	}

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = os.TempDir()
	}
}

// Validate rejects configurations that can never work.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSupabase, BackendS3, BackendNATS:
	default:
		return fmt.Errorf("%w: storage backend %q", ErrUnknownBackend, c.Storage.Backend)
	}

	switch c.Episodes.Backend {
	case BackendSupabase, BackendPostgres, BackendDynamoDB, BackendSQLite:
	default:
		return fmt.Errorf("%w: episodes backend %q", ErrUnknownBackend, c.Episodes.Backend)
	}

	if c.Story.PadWordsTo < 0 {
		return fmt.Errorf("story.pad_words_to must be non-negative, got %d", c.Story.PadWordsTo)
	}

	if c.TTS.TimeoutSeconds < 0 {
		return fmt.Errorf("tts_service.timeout_seconds must be non-negative, got %d", c.TTS.TimeoutSeconds)
	}

	return nil
}

// Warnings lists missing pieces that will make individual jobs fail. None of
// them stop the process.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.TTS.Executable == "" {
		warnings = append(warnings, "tts_service.executable is not set; every job will fail at synthesis")
	} else if _, err := os.Stat(c.TTS.Executable); err != nil {
		warnings = append(warnings, fmt.Sprintf("synthesis executable not found at %s", c.TTS.Executable))
	}

	if c.Story.TemplatePath == "" {
		warnings = append(warnings, "story.template_path is not set; every job will fail at composing")
	}

	if c.Storage.Backend == BackendSupabase && !c.Supabase.Configured() {
		warnings = append(warnings, "Supabase credentials are not configured; upload step will fail")
	}

	if c.Storage.Backend == BackendNATS && !c.NATS.Enabled() {
		warnings = append(warnings, "nats.url is not set; upload step will fail")
	}

	if c.Episodes.Backend == BackendSupabase && !c.Supabase.Configured() {
		warnings = append(warnings, "Supabase credentials are not configured; episodes will not be recorded")
	}

	if c.Episodes.Backend == BackendPostgres && c.Postgres.DSN == "" {
		warnings = append(warnings, "postgres.dsn is not set; episodes will not be recorded")
	}

	if c.Episodes.Backend == BackendSQLite && c.SQLite.Path == "" {
		warnings = append(warnings, "sqlite.path is not set; episodes will not be recorded")
	}

	return warnings
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), outputDirName)
	}

	return filepath.Join(home, outputDirName)
}
