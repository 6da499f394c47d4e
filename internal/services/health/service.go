package health

import (
	"context"
	"database/sql"
	"time"
)

const pingTimeout = 2 * time.Second

// Database states reported by Status.
const (
	DatabaseDisabled    = "disabled"
	DatabaseOK          = "ok"
	DatabaseUnreachable = "unreachable"
)

// Status is the health payload.
type Status struct {
	OK       bool   `json:"ok"`
	Storage  string `json:"storage"`
	Database string `json:"database"`
}

// Service encapsulates health-related checks.
type Service struct {
	db      *sql.DB
	storage string
}

// NewService constructs a new health service. db may be nil.
func NewService(db *sql.DB, storage string) *Service {
	return &Service{db: db, storage: storage}
}

// Status reports the storage backend and whether the database answers.
// The site keeps serving defaults without a database, so OK stays true.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true, Storage: s.storage, Database: DatabaseDisabled}
	if s.db == nil {
		return out
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		out.Database = DatabaseUnreachable
		return out
	}
	out.Database = DatabaseOK
	return out
}
