// Package store archives measurement sessions in a local SQLite
// database so completed and partial runs stay queryable after the
// process exits.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/smuctl/internal/logger"
	"codeberg.org/mutker/smuctl/internal/series"
)

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewRepository opens (and if needed creates) the archive database.
func NewRepository(cfg Config) (Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().Str("path", cfg.DBPath).Msg("initializing session archive")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	// WAL keeps readers unblocked while a run is being archived.
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) SaveSeries(ctx context.Context, s *series.Series, outcome string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errFactory.Wrap(ErrStorageAccess, err)
	}
	defer tx.Rollback()

	id := uuid.NewString()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO sessions (
            id, started_at, resource, instrument,
            voltage, compliance, requested, interval_ns, outcome
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		id,
		s.StartedAt.UnixNano(),
		s.Setup.Resource,
		s.Instrument,
		s.Setup.Voltage,
		s.Setup.Compliance,
		s.Setup.Requested,
		int64(s.Setup.Interval),
		outcome,
	)
	if err != nil {
		return "", errFactory.Wrap(ErrStorageAccess, err)
	}

	insert, err := tx.PrepareContext(ctx, `
        INSERT INTO readings (session_id, seq, elapsed_ns, voltage, current)
        VALUES (?, ?, ?, ?, ?)
    `)
	if err != nil {
		return "", errFactory.Wrap(ErrStorageAccess, err)
	}
	defer insert.Close()

	for seq, reading := range s.Readings {
		_, err := insert.ExecContext(ctx, id, seq, int64(reading.Elapsed), reading.Voltage, reading.Current)
		if err != nil {
			return "", errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", errFactory.Wrap(ErrStorageAccess, err)
	}

	logger.Debug().
		Str("session", id).
		Int("readings", s.Len()).
		Str("outcome", outcome).
		Msg("session archived")

	return id, nil
}

func (r *sqliteRepository) LoadSeries(ctx context.Context, id string) (*series.Series, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		startedAt  int64
		intervalNS int64
		instrument sql.NullString
		s          series.Series
	)

	err := r.db.QueryRowContext(ctx, `
        SELECT started_at, resource, instrument, voltage, compliance, requested, interval_ns
        FROM sessions WHERE id = ?
    `, id).Scan(
		&startedAt,
		&s.Setup.Resource,
		&instrument,
		&s.Setup.Voltage,
		&s.Setup.Compliance,
		&s.Setup.Requested,
		&intervalNS,
	)
	if err == sql.ErrNoRows {
		return nil, errFactory.WithData(ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	s.StartedAt = time.Unix(0, startedAt).UTC()
	s.Setup.Interval = time.Duration(intervalNS)
	s.Instrument = instrument.String

	rows, err := r.db.QueryContext(ctx, `
        SELECT elapsed_ns, voltage, current
        FROM readings WHERE session_id = ? ORDER BY seq
    `, id)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			elapsedNS int64
			reading   series.Reading
		)
		if err := rows.Scan(&elapsedNS, &reading.Voltage, &reading.Current); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		reading.Elapsed = time.Duration(elapsedNS)
		s.Readings = append(s.Readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return &s, nil
}

func (r *sqliteRepository) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
        SELECT s.id, s.started_at, s.resource, s.instrument, s.outcome, COUNT(r.seq)
        FROM sessions s
        LEFT JOIN readings r ON r.session_id = s.id
        GROUP BY s.id
        ORDER BY s.started_at DESC
    `)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var (
			info       SessionInfo
			startedAt  int64
			instrument sql.NullString
		)
		if err := rows.Scan(&info.ID, &startedAt, &info.Resource, &instrument, &info.Outcome, &info.Readings); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		info.StartedAt = time.Unix(0, startedAt).UTC()
		info.Instrument = instrument.String
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return sessions, nil
}

func (r *sqliteRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM readings WHERE session_id = ?`, id); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	if affected == 0 {
		return errFactory.WithData(ErrSessionNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Checkpoint WAL and cleanup on close
	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}
