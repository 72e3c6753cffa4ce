package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectFlags = `SELECT key, value, updated_at, updated_by FROM feature_flags`

const upsertFlag = `
	INSERT INTO feature_flags (key, value, updated_at, updated_by)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by`

// PostgresRepository stores overrides in the feature_flags table. Values
// are kept as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository on pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

type flagRow struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
	UpdatedBy string    `db:"updated_by"`
}

func (row flagRow) toFlag() (*Flag, error) {
	flag := &Flag{Key: row.Key, UpdatedAt: row.UpdatedAt, UpdatedBy: row.UpdatedBy}
	if err := json.Unmarshal(row.Value, &flag.Value); err != nil {
		return nil, fmt.Errorf("decoding flag %s: %w", row.Key, err)
	}
	return flag, nil
}

// GetFlag implements Repository.
func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	rows, _ := r.pool.Query(ctx, selectFlags+` WHERE key = $1`, key)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[flagRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying flag %s: %w", key, err)
	}
	return row.toFlag()
}

// GetAllFlags implements Repository.
func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, _ := r.pool.Query(ctx, selectFlags)
	all, err := pgx.CollectRows(rows, pgx.RowToStructByName[flagRow])
	if err != nil {
		return nil, fmt.Errorf("querying flags: %w", err)
	}

	flags := make(map[string]*Flag, len(all))
	for _, row := range all {
		flag, err := row.toFlag()
		if err != nil {
			return nil, err
		}
		flags[flag.Key] = flag
	}
	return flags, nil
}

// SetFlags implements Repository. The upserts are sent as one batch inside
// a transaction.
func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	batch := &pgx.Batch{}
	for _, flag := range flags {
		value, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encoding flag %s: %w", flag.Key, err)
		}
		batch.Queue(upsertFlag, flag.Key, value, flag.UpdatedAt, flag.UpdatedBy)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting flags: %w", err)
		}
		return nil
	})
}

// DeleteFlag implements Repository.
func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting flag %s: %w", key, err)
	}
	return nil
}
