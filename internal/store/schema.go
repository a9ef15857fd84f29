package store

import "database/sql"

// initSchema creates the archive tables. Times and intervals are
// stored as integer nanoseconds so archived series reload exactly.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            started_at INTEGER NOT NULL,
            resource TEXT NOT NULL,
            instrument TEXT,
            voltage REAL NOT NULL,
            compliance REAL NOT NULL,
            requested INTEGER NOT NULL,
            interval_ns INTEGER NOT NULL,
            outcome TEXT NOT NULL
        );

        CREATE TABLE IF NOT EXISTS readings (
            session_id TEXT NOT NULL,
            seq INTEGER NOT NULL,
            elapsed_ns INTEGER NOT NULL,
            voltage REAL NOT NULL,
            current REAL NOT NULL,
            PRIMARY KEY (session_id, seq)
        );
    `)
	if err != nil {
		return errFactory.Wrap(ErrStorageInit, err)
	}

	return nil
}
