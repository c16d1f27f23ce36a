package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/markerrig/internal/domain/model"
	"github.com/okian/markerrig/pkg/logger"
)

const defaultBusyTimeout = 5 * time.Second

// SQLiteJournal persists session records in a SQLite file so a session
// can be audited against the recording after the process exits.
type SQLiteJournal struct {
	// mu guards db against Close racing in-flight reads and writes.
	mu          sync.RWMutex
	db          *sql.DB
	busyTimeout time.Duration
	logger      logger.Logger
}

// OpenSQLite opens (or creates) the journal at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteJournal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	j := &SQLiteJournal{
		busyTimeout: defaultBusyTimeout,
		logger:      logger.Get().Named("journal"),
	}
	for _, opt := range opts {
		opt(j)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.Clean(path), j.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	j.db = db

	j.logger.Info(ctx, "session journal opened", logger.String("path", path))
	return j, nil
}

// AppendMarker implements Journal.
func (j *SQLiteJournal) AppendMarker(ctx context.Context, rec model.MarkerRecord) error {
	if err := validateMarker(rec); err != nil {
		return err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return ErrClosed
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO markers (session_id, seq, name, code, sent_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Seq, rec.Name, int(rec.Code), toMillis(rec.SentAt),
	)
	if err != nil {
		return fmt.Errorf("append marker %q: %w", rec.Name, err)
	}
	return nil
}

// AppendTrial implements Journal.
func (j *SQLiteJournal) AppendTrial(ctx context.Context, rec model.TrialRecord) error {
	if err := validateTrial(rec); err != nil {
		return err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return ErrClosed
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trials (session_id, idx, media, category, valence, arousal, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Index, rec.Media, rec.Category, rec.Valence, rec.Arousal,
		toMillis(rec.StartedAt), toMillis(rec.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("append trial %d: %w", rec.Index, err)
	}
	return nil
}

// Markers implements Journal.
func (j *SQLiteJournal) Markers(ctx context.Context, sessionID string) ([]model.MarkerRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, name, code, sent_at FROM markers WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MarkerRecord
	for rows.Next() {
		var (
			rec    model.MarkerRecord
			code   int
			sentAt int64
		)
		if err := rows.Scan(&rec.Seq, &rec.Name, &code, &sentAt); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		rec.SessionID = sessionID
		rec.Code = uint8(code)
		rec.SentAt = fromMillis(sentAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Trials implements Journal.
func (j *SQLiteJournal) Trials(ctx context.Context, sessionID string) ([]model.TrialRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT idx, media, category, valence, arousal, started_at, completed_at
		 FROM trials WHERE session_id = ? ORDER BY idx`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.TrialRecord
	for rows.Next() {
		var (
			rec                    model.TrialRecord
			startedAt, completedAt int64
		)
		if err := rows.Scan(&rec.Index, &rec.Media, &rec.Category, &rec.Valence, &rec.Arousal, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		rec.SessionID = sessionID
		rec.StartedAt = fromMillis(startedAt)
		rec.CompletedAt = fromMillis(completedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Close closes the database handle.
func (j *SQLiteJournal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
