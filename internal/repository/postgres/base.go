package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orms-api/internal/repository"
)

// BaseRepository provides common functionality for all repositories. db is
// either the pool or the transaction the repository was obtained from.
type BaseRepository struct {
	db sqlx.ExtContext
}

func NewBaseRepository(db sqlx.ExtContext) BaseRepository {
	return BaseRepository{db: db}
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound and wraps anything
// else with the failing action.
func notFound(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// requireRow reports ErrNotFound when an update or delete touched nothing.
func requireRow(res sql.Result, action string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
