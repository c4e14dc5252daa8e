package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhv97/kiwisqft/internal/models"
)

func TestSessions_NewerRunSupersedesOlder(t *testing.T) {
	s := NewSessions(time.Minute)
	q1, _ := Build(models.ListingTypeSale, Criteria{City: "Noida"})
	q2, _ := Build(models.ListingTypeSale, Criteria{City: "Pune"})

	started := make(chan struct{})
	type result struct {
		listings []models.Listing
		err      error
	}
	first := make(chan result, 1)

	go func() {
		ls, err := s.Run(context.Background(), "tab-1", q1, func(ctx context.Context, _ Query) ([]models.Listing, error) {
			close(started)
			<-ctx.Done()
			return []models.Listing{{ID: "stale"}}, nil
		})
		first <- result{ls, err}
	}()
	<-started

	got, err := s.Run(context.Background(), "tab-1", q2, func(ctx context.Context, _ Query) ([]models.Listing, error) {
		return []models.Listing{{ID: "fresh"}}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)

	select {
	case r := <-first:
		assert.ErrorIs(t, r.err, ErrSuperseded)
		assert.Nil(t, r.listings)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded run was not cancelled")
	}
}

func TestSessions_IndependentSessionsDoNotInterfere(t *testing.T) {
	s := NewSessions(time.Minute)
	q, _ := Build(models.ListingTypeRent, Criteria{})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), "a", q, func(ctx context.Context, _ Query) ([]models.Listing, error) {
			close(started)
			<-release
			return nil, ctx.Err()
		})
		done <- err
	}()
	<-started

	_, err := s.Run(context.Background(), "b", q, func(context.Context, Query) ([]models.Listing, error) {
		return nil, nil
	})
	require.NoError(t, err)
	close(release)
	assert.NoError(t, <-done)
}

func TestSessions_EmptyIDRunsDirectly(t *testing.T) {
	s := NewSessions(time.Minute)
	q, _ := Build(models.ListingTypeSale, Criteria{})
	got, err := s.Run(context.Background(), "", q, func(context.Context, Query) ([]models.Listing, error) {
		return []models.Listing{{ID: "x"}}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 0, s.Len())
}

func TestSessions_ChangedAndSweep(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	q, _ := Build(models.ListingTypeSale, Criteria{City: "Noida"})
	assert.True(t, s.Changed("tab", q))
	_, err := s.Run(context.Background(), "tab", q, func(context.Context, Query) ([]models.Listing, error) { return nil, nil })
	require.NoError(t, err)
	assert.False(t, s.Changed("tab", q))

	other, _ := Build(models.ListingTypeSale, Criteria{City: "Noida", Bedrooms: intp(3)})
	assert.True(t, s.Changed("tab", other))

	assert.Equal(t, 0, s.Sweep())
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 0, s.Len())
}
