package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mihdan/recrawler/internal/domain/model"
	repo "github.com/mihdan/recrawler/internal/domain/repository"
	"github.com/rs/zerolog"
)

// Ensure LogRepository implements the interface
var _ repo.LogRepository = (*LogRepository)(nil)

// LogRepository is the Postgres-backed append-only dispatch log.
type LogRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewLogRepository creates a new instance of the LogRepository
func NewLogRepository(pool *pgxpool.Pool, logger *zerolog.Logger) *LogRepository {
	return &LogRepository{
		pool:   pool,
		logger: logger.With().Str("layer", "postgres_log_repository").Logger(),
	}
}

// Append persists one dispatch result.
func (r *LogRepository) Append(ctx context.Context, result *model.DispatchResult) error {
	const query = `
		INSERT INTO recrawler_log (created_at, level, search_engine, direction, status_code, message)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		result.CreatedAt,
		string(result.Level),
		string(result.SearchEngine),
		string(result.Direction),
		result.StatusCode,
		result.Message,
	)
	if err != nil {
		r.logger.Err(err).Msg("cannot append dispatch result")
		return fmt.Errorf("postgres: AppendLog failed: %w", err)
	}
	return nil
}

// List returns log records, newest first, optionally filtered by provider.
func (r *LogRepository) List(ctx context.Context, params repo.ListLogsParams) ([]*model.DispatchResult, error) {
	const base = `
		SELECT id, created_at, level, search_engine, direction, status_code, message
		FROM recrawler_log`

	query := base + `
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	args := []any{params.Limit, params.Offset}

	if params.SearchEngine != "" {
		query = base + `
		WHERE search_engine = $3
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
		args = append(args, string(params.SearchEngine))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Err(err).Msg("cannot list dispatch results")
		return nil, fmt.Errorf("postgres: ListLogs failed: %w", err)
	}
	defer rows.Close()

	var results []*model.DispatchResult
	for rows.Next() {
		var record model.DispatchResult
		if err := rows.Scan(
			&record.ID,
			&record.CreatedAt,
			&record.Level,
			&record.SearchEngine,
			&record.Direction,
			&record.StatusCode,
			&record.Message,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan log row: %w", err)
		}
		results = append(results, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate log rows: %w", err)
	}

	return results, nil
}
