// Package usersettings stores per-user setting buckets and streams their
// changes to observers.
package usersettings

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user setting not found")

// Setting is one stored value. Value holds arbitrary JSON.
type Setting struct {
	Bucket    string          `json:"bucket"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store persists settings keyed by user entity ref, bucket and key.
type Store interface {
	Get(ctx context.Context, userEntityRef, bucket, key string) (*Setting, error)
	Set(ctx context.Context, userEntityRef, bucket, key string, value json.RawMessage) (*Setting, error)
	Delete(ctx context.Context, userEntityRef, bucket, key string) error
}
