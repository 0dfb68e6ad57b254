package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put then get", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Put(ctx, "location:austin,_tx", []byte(`{"a":1}`), time.Hour))

		got, err := m.Get(ctx, "location:austin,_tx")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"a":1}`), got)
	})

	t.Run("missing key", func(t *testing.T) {
		m := NewMemory()
		_, err := m.Get(ctx, "location:nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired entry behaves as absent", func(t *testing.T) {
		m := NewMemory()
		now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
		m.now = func() time.Time { return now }

		require.NoError(t, m.Put(ctx, "location:a", []byte("x"), time.Minute))

		now = now.Add(2 * time.Minute)
		_, err := m.Get(ctx, "location:a")
		assert.ErrorIs(t, err, ErrNotFound)

		keys, err := m.List(ctx, "location:")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("list filters by prefix and sorts", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Put(ctx, "location:b", []byte("1"), time.Hour))
		require.NoError(t, m.Put(ctx, "location:a", []byte("2"), time.Hour))
		require.NoError(t, m.Put(ctx, "other:z", []byte("3"), time.Hour))

		keys, err := m.List(ctx, "location:")
		require.NoError(t, err)
		assert.Equal(t, []string{"location:a", "location:b"}, keys)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Put(ctx, "location:a", []byte("1"), time.Hour))
		require.NoError(t, m.Delete(ctx, "location:a"))
		require.NoError(t, m.Delete(ctx, "location:a"))

		_, err := m.Get(ctx, "location:a")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stored value is copied", func(t *testing.T) {
		m := NewMemory()
		buf := []byte("abc")
		require.NoError(t, m.Put(ctx, "location:a", buf, time.Hour))
		buf[0] = 'z'

		got, err := m.Get(ctx, "location:a")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), got)
	})
}
