// Package sqlite implements the application's persistence ports on an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"neurotwin-backend/application/ports"
	pkgerrors "neurotwin-backend/pkg/errors"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS graph_snapshots (
	patient_id  TEXT PRIMARY KEY,
	graph_id    TEXT NOT NULL,
	request_id  INTEGER NOT NULL,
	payload     BLOB NOT NULL,
	captured_at TIMESTAMP,
	stored_at   TIMESTAMP NOT NULL
);
`

// SnapshotStore keeps the latest accepted graph payload per patient in
// SQLite so a visualization session survives a restart.
type SnapshotStore struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ports.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore opens (creating if needed) the snapshot database at
// dbPath and initializes the schema.
func NewSnapshotStore(dbPath string, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}

	return &SnapshotStore{db: db, logger: logger}, nil
}

// Save upserts the snapshot for its patient, discarding writes older
// than the stored request id so replays cannot regress the store.
func (s *SnapshotStore) Save(ctx context.Context, snapshot ports.GraphSnapshot) error {
	if snapshot.PatientID == "" {
		return pkgerrors.NewGraphValidationError("snapshot patient id is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO graph_snapshots (patient_id, graph_id, request_id, payload, captured_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET
			graph_id    = excluded.graph_id,
			request_id  = excluded.request_id,
			payload     = excluded.payload,
			captured_at = excluded.captured_at,
			stored_at   = excluded.stored_at
		WHERE excluded.request_id > graph_snapshots.request_id`,
		snapshot.PatientID,
		snapshot.GraphID,
		int64(snapshot.RequestID),
		snapshot.Payload,
		nullableTime(snapshot.CapturedAt),
		time.Now().UTC(),
	)
	if err != nil {
		return pkgerrors.NewInternalError("failed to save graph snapshot", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		s.logger.Info("Ignored stale snapshot write",
			zap.String("patientID", snapshot.PatientID),
			zap.Uint64("requestID", snapshot.RequestID),
		)
	}

	return nil
}

// Latest returns the newest snapshot for the patient, or a not-found
// error when none was ever stored.
func (s *SnapshotStore) Latest(ctx context.Context, patientID string) (*ports.GraphSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT patient_id, graph_id, request_id, payload, captured_at, stored_at
		FROM graph_snapshots
		WHERE patient_id = ?`,
		patientID,
	)

	var snapshot ports.GraphSnapshot
	var capturedAt sql.NullTime
	var requestID int64
	err := row.Scan(
		&snapshot.PatientID,
		&snapshot.GraphID,
		&requestID,
		&snapshot.Payload,
		&capturedAt,
		&snapshot.StoredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("snapshot for patient " + patientID)
	}
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to load graph snapshot", err)
	}

	snapshot.RequestID = uint64(requestID)
	if capturedAt.Valid {
		snapshot.CapturedAt = capturedAt.Time
	}

	return &snapshot, nil
}

// Close releases the database handle
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
