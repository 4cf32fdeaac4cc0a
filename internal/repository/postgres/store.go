package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orms-api/internal/repository"
)

// Store is the PostgreSQL data store. A Store handed to a WithTx callback
// runs every repository call on that transaction.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  bool
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) base() BaseRepository { return NewBaseRepository(s.ext) }

func (s *Store) Patients() repository.PatientRepository { return &patientRepository{s.base()} }
func (s *Store) Visits() repository.VisitRepository { return &visitRepository{s.base()} }
func (s *Store) Bills() repository.BillRepository { return &billRepository{s.base()} }
func (s *Store) Clinical() repository.ClinicalRepository { return &clinicalRepository{s.base()} }
func (s *Store) Reference() repository.ReferenceRepository { return &referenceRepository{s.base()} }
func (s *Store) Users() repository.UserRepository { return &userRepository{s.base()} }
func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepository{s.base()} }

// WithTx executes fn within a transaction. Nested calls join the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.tx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, ext: tx, tx: true}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for the migrator.
func (s *Store) DB() *sqlx.DB {
	return s.db
}
