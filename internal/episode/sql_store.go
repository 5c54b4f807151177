package episode

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"

	"github.com/book-expert/lingocast/internal/core"
)

// ErrEpisodeNotFound is returned by Get when no record has the id.
var ErrEpisodeNotFound = errors.New("episode not found")

// dialect captures the few places where PostgreSQL and SQLite disagree.
type dialect struct {
	driver      string
	jsonType    string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		driver:   "pgx",
		jsonType: "JSONB",
		placeholder: func(n int) string {
			return fmt.Sprintf("$%d", n)
		},
	}
	sqliteDialect = dialect{
		driver:   "sqlite",
		jsonType: "TEXT",
		placeholder: func(int) string {
			return "?"
		},
	}
)

// SQLStore keeps episodes in a relational table. Words and transcript are
// stored as JSON documents.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
}

// OpenPostgres connects to PostgreSQL and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, table string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", core.ErrConfigurationMissing)
	}

	return open(ctx, postgresDialect, dsn, table)
}

// OpenSQLite opens (or creates) a local database file and makes sure the
// table exists.
func OpenSQLite(ctx context.Context, path, table string) (*SQLStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", core.ErrConfigurationMissing)
	}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return open(ctx, sqliteDialect, path, table)
}

func open(ctx context.Context, d dialect, dsn, table string) (*SQLStore, error) {
	if !validTableName(table) {
		return nil, fmt.Errorf("invalid episodes table name %q", table)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.driver, err)
	}

	if d.driver == sqliteDialect.driver {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLStore{db: db, dialect: d, table: table}

	err = store.ensureSchema(ctx)
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close database: %w", closeErr))
		}

		return nil, err
	}

	return store, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		topic TEXT NOT NULL,
		words %s NOT NULL,
		transcript %s NOT NULL,
		audio_url TEXT NOT NULL
	)`, s.table, s.dialect.jsonType, s.dialect.jsonType))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}

	return nil
}

// Upsert inserts the record or overwrites the row with the same id.
func (s *SQLStore) Upsert(ctx context.Context, record core.EpisodeRecord) error {
	words, err := json.Marshal(record.Words)
	if err != nil {
		return fmt.Errorf("failed to marshal words of %q: %w", record.ID, err)
	}

	transcript, err := json.Marshal(record.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript of %q: %w", record.ID, err)
	}

	p := s.dialect.placeholder
	query := fmt.Sprintf(`INSERT INTO %s (id, title, topic, words, transcript, audio_url)
		VALUES (%s, %s, %s, %s, %s, %s)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title,
			topic=excluded.topic,
			words=excluded.words,
			transcript=excluded.transcript,
			audio_url=excluded.audio_url`,
		s.table, p(1), p(2), p(3), p(4), p(5), p(6))

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Title,
		record.Topic,
		string(words),
		string(transcript),
		record.AudioURL,
	)
	if err != nil {
		return mapSQLError(s.table, err)
	}

	return nil
}

// Get loads one record by id.
func (s *SQLStore) Get(ctx context.Context, id string) (*core.EpisodeRecord, error) {
	query := fmt.Sprintf(`SELECT id, title, topic, words, transcript, audio_url FROM %s WHERE id = %s`,
		s.table, s.dialect.placeholder(1))

	var (
		record     core.EpisodeRecord
		words      string
		transcript string
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Title,
		&record.Topic,
		&words,
		&transcript,
		&record.AudioURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrEpisodeNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load episode %q: %w", id, err)
	}

	err = json.Unmarshal([]byte(words), &record.Words)
	if err != nil {
		return nil, fmt.Errorf("failed to decode words of %q: %w", id, err)
	}

	err = json.Unmarshal([]byte(transcript), &record.Transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transcript of %q: %w", id, err)
	}

	return &record, nil
}

// Count returns the number of stored episodes.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count episodes: %w", err)
	}

	return count, nil
}

func mapSQLError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("%w: table %s does not exist: %w", core.ErrPersistenceFailed, table, err)
		case pgerrcode.InsufficientPrivilege:
			return fmt.Errorf("%w: not allowed to write %s: %w", core.ErrPersistenceFailed, table, err)
		}
	}

	return fmt.Errorf("%w: failed to upsert into %s: %w", core.ErrPersistenceFailed, table, err)
}

func validTableName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
