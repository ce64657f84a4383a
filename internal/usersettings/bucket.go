package usersettings

import (
	"context"
	"encoding/json"
	"log"
)

// Bucket is the string valued view of one user's bucket used by the language
// synchronizer.
type Bucket struct {
	svc           *Service
	userEntityRef string
	bucket        string
}

// Observe reports the string stored at key. Values that are not JSON strings
// are reported as present but empty.
func (b *Bucket) Observe(ctx context.Context, key string, fn func(value string, present bool)) (func(), error) {
	return b.svc.Observe(ctx, b.userEntityRef, b.bucket, key, func(setting *Setting) {
		if setting == nil {
			fn("", false)
			return
		}
		var value string
		if err := json.Unmarshal(setting.Value, &value); err != nil {
			log.Printf("WARNING: usersettings: %s/%s is not a string: %v", b.bucket, key, err)
		}
		fn(value, true)
	})
}

func (b *Bucket) Set(ctx context.Context, key, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = b.svc.Set(ctx, b.userEntityRef, b.bucket, key, raw)
	return err
}
