package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/orms-api/internal/repository"
)

// buildUpdate renders one parameterized UPDATE for the given changes. Column
// names come from the closed field enums in the repository package.
func buildUpdate[F ~string](table, key string, id any, changes repository.Changes[F]) (string, []any) {
	sets := make([]string, 0, changes.Len())
	args := make([]any, 0, changes.Len()+1)
	changes.Each(func(field F, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", string(field), len(args)))
	})
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		table, strings.Join(sets, ", "), key, len(args))
	return query, args
}

func (r BaseRepository) update(ctx context.Context, query string, args []any, action string) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return requireRow(res, action)
}
