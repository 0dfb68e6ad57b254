package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on a Firestore collection. Each entry is
// one document keyed by the cache key, holding the JSON blob and an
// expiresAt timestamp; expired documents are treated as misses rather than
// relying on Firestore's own TTL sweeps, which lag by design.
type FirestoreStore struct {
	client     *firestore.Client
	projectID  string
	database   string
	collection string
}

// configuredFirestore sets up the Firestore store and registers its flags.
func configuredFirestore() *FirestoreStore {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	collection := lflag.String("firestore-cache-collection", "cache", "Firestore collection holding cache entries")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreStore{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.collection = *collection

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the store is properly configured.
func (f *FirestoreStore) Validate() error {
	if f.collection == "" {
		return fmt.Errorf("firestore-cache-collection is required")
	}
	return nil
}

// Init initializes the Firestore client. Must be called before any other
// method.
func (f *FirestoreStore) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreStore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Get returns the JSON blob for key, or ErrNotFound for absent or expired
// entries.
func (f *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := f.client.Collection(f.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch cache doc %s: %w", key, err)
	}

	expired, err := docExpired(doc, time.Now())
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrNotFound
	}

	val, err := doc.DataAt("json")
	if err != nil {
		return nil, fmt.Errorf("cache doc %s missing 'json' field: %w", key, err)
	}
	jsonStr, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("cache doc %s 'json' field is not a string", key)
	}
	return []byte(jsonStr), nil
}

// Put stores value under key with the given TTL, replacing any previous
// entry.
func (f *FirestoreStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := f.client.Collection(f.collection).Doc(key).Set(ctx, map[string]interface{}{
		"json":      string(value),
		"expiresAt": time.Now().Add(ttl).UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save cache doc %s: %w", key, err)
	}
	return nil
}

// List returns the unexpired keys starting with prefix, in lexicographic
// order. Document ID range queries avoid reading the whole collection.
func (f *FirestoreStore) List(ctx context.Context, prefix string) ([]string, error) {
	coll := f.client.Collection(f.collection)
	query := coll.Query
	if prefix != "" {
		// U+F8FF sorts after any valid key suffix
		query = query.
			Where(firestore.DocumentID, ">=", coll.Doc(prefix)).
			Where(firestore.DocumentID, "<", coll.Doc(prefix+"\uf8ff"))
	}
	iter := query.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	now := time.Now()
	var keys []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate cache docs: %w", err)
		}
		expired, err := docExpired(doc, now)
		if err != nil {
			return nil, err
		}
		if expired {
			continue
		}
		keys = append(keys, doc.Ref.ID)
	}
	return keys, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (f *FirestoreStore) Delete(ctx context.Context, key string) error {
	_, err := f.client.Collection(f.collection).Doc(key).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete cache doc %s: %w", key, err)
	}
	return nil
}

func docExpired(doc *firestore.DocumentSnapshot, now time.Time) (bool, error) {
	val, err := doc.DataAt("expiresAt")
	if err != nil {
		return false, fmt.Errorf("cache doc %s missing 'expiresAt' field: %w", doc.Ref.ID, err)
	}
	expiresAt, ok := val.(time.Time)
	if !ok {
		return false, fmt.Errorf("cache doc %s 'expiresAt' field is not a timestamp", doc.Ref.ID)
	}
	return expiresAt.Before(now), nil
}
