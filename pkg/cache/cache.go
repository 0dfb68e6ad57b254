package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
)

// ErrNotFound is returned by Get for keys that are absent or expired.
var ErrNotFound = errors.New("cache key not found")

// Store is a key-value cache for computed profiles. Values are JSON blobs
// and every entry carries a TTL; expired entries behave as absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}

// Configured sets up the cache provider based on flags.
func Configured() Store {
	provider := lflag.String("cache-provider", "firestore", "Cache provider to use (available: firestore, memory)")

	var p struct{ Store }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			p.Store = fs
		case "memory":
			p.Store = NewMemory()
		default:
			panic(fmt.Sprintf("unknown cache provider: %s", *provider))
		}
	})

	return &p
}
