// Package ports defines the interfaces the application layer needs
// from infrastructure. Implementations live under infrastructure/.
package ports

import (
	"context"
	"time"
)

// GraphSnapshot is the last accepted graph payload for a patient,
// stored verbatim so a session can be rehydrated after a restart.
type GraphSnapshot struct {
	PatientID  string
	GraphID    string
	RequestID  uint64
	Payload    []byte
	CapturedAt time.Time
	StoredAt   time.Time
}

// SnapshotStore persists the latest accepted graph snapshot per
// patient. Save overwrites any older snapshot for the same patient.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot GraphSnapshot) error
	Latest(ctx context.Context, patientID string) (*GraphSnapshot, error)
	Close() error
}
