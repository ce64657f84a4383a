package usersettings

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps settings in the user_settings table.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, userEntityRef, bucket, key string) (*Setting, error) {
	setting := Setting{Bucket: bucket, Key: key}
	err := s.pool.QueryRow(ctx,
		`SELECT value, updated_at FROM user_settings
		 WHERE user_entity_ref = $1 AND bucket = $2 AND key = $3`,
		userEntityRef, bucket, key,
	).Scan(&setting.Value, &setting.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Set upserts the value and returns the stored row.
func (s *PGStore) Set(ctx context.Context, userEntityRef, bucket, key string, value json.RawMessage) (*Setting, error) {
	setting := Setting{Bucket: bucket, Key: key}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_settings (user_entity_ref, bucket, key, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_entity_ref, bucket, key) DO UPDATE
		 SET value = EXCLUDED.value, updated_at = NOW()
		 RETURNING value, updated_at`,
		userEntityRef, bucket, key, []byte(value),
	).Scan(&setting.Value, &setting.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (s *PGStore) Delete(ctx context.Context, userEntityRef, bucket, key string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_settings WHERE user_entity_ref = $1 AND bucket = $2 AND key = $3`,
		userEntityRef, bucket, key,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
