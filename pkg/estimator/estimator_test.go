package estimator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tiltcast/tiltcast/pkg/cache"
	"github.com/tiltcast/tiltcast/pkg/cache/cachemock"
	"github.com/tiltcast/tiltcast/pkg/geocode"
	"github.com/tiltcast/tiltcast/pkg/types"
	"github.com/tiltcast/tiltcast/pkg/weather"
)

func f(v float64) *float64 { return &v }

func austinHistory() weather.History {
	days := make([]types.DailyRecord, 0, 365)
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365; i++ {
		days = append(days, types.DailyRecord{
			Date:          date.AddDate(0, 0, i),
			TempMaxF:      f(90),
			TempMinF:      f(70),
			TempMeanF:     f(80),
			HumidityPct:   f(60),
			SolarEnergyMJ: f(18),
		})
	}
	return weather.History{
		Latitude:        30.2706,
		Longitude:       -97.7430,
		ResolvedAddress: "Austin, TX, United States",
		Days:            days,
		Years:           1,
	}
}

type stubResolver struct {
	name string
	err  error
}

func (r stubResolver) Forward(context.Context, string) (float64, float64, error) {
	return 0, 0, geocode.ErrNotConfigured
}

func (r stubResolver) Reverse(context.Context, float64, float64) (string, error) {
	return r.name, r.err
}

func newTestService(w weather.Provider, g geocode.Resolver, c cache.Store) *Service {
	return New(w, g, c, time.Hour)
}

func TestEstimate(t *testing.T) {
	ctx := context.Background()

	t.Run("computes and caches on miss", func(t *testing.T) {
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, "Austin, TX", 3).Return(austinHistory(), nil)
		c := cache.NewMemory()
		s := newTestService(w, stubResolver{err: geocode.ErrNotConfigured}, c)

		profile, cached, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, "Austin, TX, United States", profile.ResolvedAddress)
		assert.Equal(t, 30.2706, profile.Latitude)
		assert.Equal(t, 3, profile.YearsOfData)

		keys, err := c.List(ctx, cache.KeyPrefix)
		require.NoError(t, err)
		assert.Equal(t, []string{"location:austin,_tx"}, keys)

		// second call is served from cache; provider must not be hit again
		again, cached, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
		require.NoError(t, err)
		assert.True(t, cached)
		assert.Equal(t, profile.ResolvedAddress, again.ResolvedAddress)
		assert.Equal(t, profile.Solar, again.Solar)
		w.AssertNumberOfCalls(t, "GetDailyHistory", 1)
	})

	t.Run("defaults years to 3", func(t *testing.T) {
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, "Austin, TX", 3).Return(austinHistory(), nil)
		s := newTestService(w, stubResolver{err: geocode.ErrNotConfigured}, cache.NewMemory())

		_, _, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
		require.NoError(t, err)
		w.AssertExpectations(t)
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		s := newTestService(&weather.MockProvider{}, stubResolver{}, cache.NewMemory())

		_, _, err := s.Estimate(ctx, Request{})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, _, err = s.Estimate(ctx, Request{Location: "Austin, TX", Years: 11})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, _, err = s.Estimate(ctx, Request{Location: "Austin, TX", FixedTilt: f(91)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("propagates provider failures", func(t *testing.T) {
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).Return(nil, assert.AnError)
		s := newTestService(w, stubResolver{}, cache.NewMemory())

		_, _, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rejects empty history", func(t *testing.T) {
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).
			Return(weather.History{Latitude: 1, Longitude: 2, ResolvedAddress: "x"}, nil)
		s := newTestService(w, stubResolver{}, cache.NewMemory())

		_, _, err := s.Estimate(ctx, Request{Location: "Nowhere"})
		assert.Error(t, err)
	})

	t.Run("reverse geocodes coordinate addresses", func(t *testing.T) {
		h := austinHistory()
		h.ResolvedAddress = "30.2706,-97.7430"
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).Return(h, nil)
		s := newTestService(w, stubResolver{name: "Austin, TX, USA"}, cache.NewMemory())

		profile, _, err := s.Estimate(ctx, Request{Location: "30.2706,-97.7430"})
		require.NoError(t, err)
		assert.Equal(t, "Austin, TX, USA", profile.ResolvedAddress)
	})

	t.Run("keeps coordinates when reverse geocoding fails", func(t *testing.T) {
		h := austinHistory()
		h.ResolvedAddress = "30.2706,-97.7430"
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).Return(h, nil)
		s := newTestService(w, stubResolver{err: assert.AnError}, cache.NewMemory())

		profile, _, err := s.Estimate(ctx, Request{Location: "30.2706,-97.7430"})
		require.NoError(t, err)
		assert.Equal(t, "30.2706,-97.7430", profile.ResolvedAddress)
	})

	t.Run("cache write failures are not fatal", func(t *testing.T) {
		w := &weather.MockProvider{}
		w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).Return(austinHistory(), nil)
		c := &cachemock.MockStore{}
		c.On("Get", mock.Anything, mock.Anything).Return(nil, cache.ErrNotFound)
		c.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
		s := newTestService(w, stubResolver{err: geocode.ErrNotConfigured}, c)

		_, cached, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
		require.NoError(t, err)
		assert.False(t, cached)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	w := &weather.MockProvider{}
	w.On("GetDailyHistory", mock.Anything, "Austin, TX", 3).Return(austinHistory(), nil)
	c := cache.NewMemory()
	s := newTestService(w, stubResolver{err: geocode.ErrNotConfigured}, c)

	// seed a stale entry; Refresh must not serve it
	require.NoError(t, c.Put(ctx, "location:austin,_tx", []byte(`{"resolvedAddress":"stale"}`), time.Hour))

	profile, err := s.Refresh(ctx, "Austin, TX")
	require.NoError(t, err)
	assert.Equal(t, "Austin, TX, United States", profile.ResolvedAddress)
	w.AssertNumberOfCalls(t, "GetDailyHistory", 1)

	// and the cache now holds the recomputed profile
	got, cached, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "Austin, TX, United States", got.ResolvedAddress)
}

func TestInvalidateAndList(t *testing.T) {
	ctx := context.Background()

	w := &weather.MockProvider{}
	w.On("GetDailyHistory", mock.Anything, mock.Anything, mock.Anything).Return(austinHistory(), nil)
	c := cache.NewMemory()
	s := newTestService(w, stubResolver{err: geocode.ErrNotConfigured}, c)

	_, _, err := s.Estimate(ctx, Request{Location: "Austin, TX"})
	require.NoError(t, err)

	keys, err := s.ListCached(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"location:austin,_tx"}, keys)

	keys, err = s.ListCached(ctx, "location:austin")
	require.NoError(t, err)
	assert.Equal(t, []string{"location:austin,_tx"}, keys)

	keys, err = s.ListCached(ctx, "location:berlin")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Invalidate(ctx, "Austin, TX"))

	keys, err = s.ListCached(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
