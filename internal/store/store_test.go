package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// Both implementations must satisfy the same contract, so every test runs
// against both.
func withStores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "predictions.db"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})

	t.Run("memory", func(t *testing.T) {
		s := NewMemStore()
		defer s.Close()
		fn(t, s)
	})
}

func sampleRecord(cluster int, persona string) *schema.PredictionRecord {
	return &schema.PredictionRecord{
		Income:        50000,
		Age:           35,
		TotalSpending: 800,
		Recency:       20,
		Cluster:       cluster,
		Persona:       persona,
	}
}

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := sampleRecord(0, "Budget Active Shoppers")
		require.NoError(t, s.Insert(ctx, rec))
		require.Greater(t, rec.ID, int64(0))
		require.False(t, rec.CreatedAt.IsZero())
	})
}

func TestInsertIDsStrictlyIncreasing(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		var lastID int64
		for i := 0; i < 10; i++ {
			rec := sampleRecord(i%4, "p")
			require.NoError(t, s.Insert(ctx, rec))
			require.Greater(t, rec.ID, lastID, "ids must be strictly increasing")
			lastID = rec.ID
		}
	})
}

func TestInsertTimestampsNonDecreasing(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		var recs []*schema.PredictionRecord
		for i := 0; i < 20; i++ {
			rec := sampleRecord(0, "p")
			require.NoError(t, s.Insert(ctx, rec))
			recs = append(recs, rec)
		}
		for i := 1; i < len(recs); i++ {
			require.False(t, recs[i].CreatedAt.Before(recs[i-1].CreatedAt),
				"created_at went backwards at record %d", i)
		}
	})
}

func TestListRecentNewestFirstWithIDTieBreak(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		// Burst inserts: several will share a timestamp at coarse clock
		// resolution, so ordering must fall back to id descending.
		for i := 0; i < 25; i++ {
			require.NoError(t, s.Insert(ctx, sampleRecord(i%4, "p")))
		}

		got, err := s.ListRecent(ctx, 25)
		require.NoError(t, err)
		require.Len(t, got, 25)

		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			require.False(t, prev.CreatedAt.Before(cur.CreatedAt),
				"records out of timestamp order at %d", i)
			if prev.CreatedAt.Equal(cur.CreatedAt) {
				require.Greater(t, prev.ID, cur.ID, "tie-break must be id descending")
			}
		}
		require.Equal(t, int64(25), got[0].ID, "newest insert must come first")
	})
}

func TestListRecentHonorsLimit(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for i := 0; i < 60; i++ {
			require.NoError(t, s.Insert(ctx, sampleRecord(0, "p")))
		}

		got, err := s.ListRecent(ctx, 50)
		require.NoError(t, err)
		require.Len(t, got, 50)

		// Non-positive limit falls back to the default cap.
		got, err = s.ListRecent(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, DefaultHistoryLimit)
	})
}

func TestListRecentEmptyStore(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		got, err := s.ListRecent(context.Background(), 50)
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestInsertStoresFieldsVerbatim(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := &schema.PredictionRecord{
			Income:        98765.43,
			Age:           61,
			TotalSpending: 1234.56,
			Recency:       7,
			Cluster:       3,
			Persona:       "Loyal Seniors",
		}
		require.NoError(t, s.Insert(ctx, rec))

		got, err := s.ListRecent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, rec.Income, got[0].Income)
		require.Equal(t, rec.Age, got[0].Age)
		require.Equal(t, rec.TotalSpending, got[0].TotalSpending)
		require.Equal(t, rec.Recency, got[0].Recency)
		require.Equal(t, rec.Cluster, got[0].Cluster)
		require.Equal(t, rec.Persona, got[0].Persona)
		require.Equal(t, rec.ID, got[0].ID)
	})
}

func TestDuplicateInsertsProduceDistinctRecords(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a := sampleRecord(1, "Premium Loyalists")
		b := sampleRecord(1, "Premium Loyalists")
		require.NoError(t, s.Insert(ctx, a))
		require.NoError(t, s.Insert(ctx, b))
		require.NotEqual(t, a.ID, b.ID)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(2), n)
	})
}

func TestCountByCluster(t *testing.T) {
	withStores(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Insert(ctx, sampleRecord(0, "Budget Active Shoppers")))
		}
		require.NoError(t, s.Insert(ctx, sampleRecord(2, "At-Risk Customers")))

		counts, err := s.CountByCluster(ctx)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		require.Equal(t, 0, counts[0].Cluster)
		require.Equal(t, int64(3), counts[0].Count)
		require.Equal(t, "Budget Active Shoppers", counts[0].Persona)
		require.Equal(t, 2, counts[1].Cluster)
		require.Equal(t, int64(1), counts[1].Count)
	})
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "predictions.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, sampleRecord(0, "Budget Active Shoppers")))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Budget Active Shoppers", got[0].Persona)
}

func TestSQLiteInMemory(t *testing.T) {
	ctx := context.Background()

	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer s.Close()

	// Every statement below is a separate pool acquisition; they must all
	// land on the database that ran the migration.
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Insert(ctx, sampleRecord(i%4, "p")))
	}

	got, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 5)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
}

func TestMemStoreClosed(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Insert(context.Background(), sampleRecord(0, "p")), ErrClosed)
	_, err := s.ListRecent(context.Background(), 10)
	require.ErrorIs(t, err, ErrClosed)
}
