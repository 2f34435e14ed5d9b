// Package storage persists opaque snapshots under string keys.
//
// The library cache writes each snapshot in full and reads it back in full; stores never merge or diff.
package storage

import (
	"context"
	"fmt"
	"regexp"

	"github.com/desertthunder/crate/internal/shared"
)

// KeyValueStore loads and stores whole snapshots.
//
// Load reports ok=false, not an error, when nothing has been stored under key.
type KeyValueStore interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Store(ctx context.Context, key string, data []byte) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateKey rejects keys that cannot double as file names.
func ValidateKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%w: invalid snapshot key %q", shared.ErrInvalidArgument, key)
	}
	return nil
}
