package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
	"github.com/cory-johannsen/statengine/internal/storage/postgres"
	"github.com/cory-johannsen/statengine/internal/testutil"
)

func setupRepo(t *testing.T) *postgres.SnapshotRepository {
	t.Helper()
	pc := testutil.NewPostgresContainer(t)
	pc.ApplyMigrations(t)
	return postgres.NewSnapshotRepository(pc.RawPool)
}

func saveCharacter(t *testing.T, repo *postgres.SnapshotRepository, name string) postgres.CharacterRecord {
	t.Helper()
	rec, err := repo.SaveCharacter(context.Background(), postgres.CharacterRecord{
		ID: uuid.NewString(), Name: name, ClassID: "knight", Level: 1,
	})
	require.NoError(t, err)
	return rec
}

func sampleSnapshots() []stat.Snapshot {
	return []stat.Snapshot{
		{
			Tag: "Stat.Primary.Vigor", DisplayName: "Vigor",
			Current: 14, Max: 14, Min: 1, OnlyMaxValueRelevant: true,
		},
		{
			Tag: "Stat.Secondary.HP", DisplayName: "HP", Description: "Health.",
			Current: 252.5, Max: 452, ShowMaxValue: true,
			Regen: stat.RegenInfo{CanRegenerate: true, Interval: 1500 * time.Millisecond, FractionOfMaxPerTick: 0.05},
		},
	}
}

func TestSnapshotRepository(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	t.Run("SaveCharacter upserts", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Solaire")
		assert.False(t, rec.CreatedAt.IsZero())

		rec.Level = 5
		rec.ClassID = "sorcerer"
		updated, err := repo.SaveCharacter(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Level)

		got, err := repo.GetCharacter(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "sorcerer", got.ClassID)
		assert.Equal(t, rec.ID, got.ID)
	})

	t.Run("sub-millisecond regen interval survives", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Lautrec")
		snaps := []stat.Snapshot{{
			Tag: "Stat.Secondary.Stamina", Current: 10, Max: 84,
			Regen: stat.RegenInfo{CanRegenerate: true, Interval: 500 * time.Microsecond, FractionOfMaxPerTick: 0.2},
		}}
		require.NoError(t, repo.Save(ctx, rec.ID, snaps))
		got, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 500*time.Microsecond, got[0].Regen.Interval)
	})

	t.Run("GetCharacter unknown", func(t *testing.T) {
		_, err := repo.GetCharacter(ctx, uuid.NewString())
		assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
	})

	t.Run("Save and Load round trip", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Siegmeyer")
		require.NoError(t, repo.Save(ctx, rec.ID, sampleSnapshots()))
		got, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, sampleSnapshots(), got)
	})

	t.Run("Save replaces previous rows", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Laurentius")
		require.NoError(t, repo.Save(ctx, rec.ID, sampleSnapshots()))
		require.NoError(t, repo.Save(ctx, rec.ID, sampleSnapshots()[1:]))
		got, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, tag.Tag("Stat.Secondary.HP"), got[0].Tag)
	})

	t.Run("Load without snapshots", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Andre")
		_, err := repo.Load(ctx, rec.ID)
		assert.ErrorIs(t, err, postgres.ErrSnapshotNotFound)
	})

	t.Run("Save for unknown character fails atomically", func(t *testing.T) {
		err := repo.Save(ctx, uuid.NewString(), sampleSnapshots())
		assert.Error(t, err)
	})

	t.Run("Save rejects malformed id", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, "not-a-uuid", sampleSnapshots()))
	})

	t.Run("Delete cascades", func(t *testing.T) {
		rec := saveCharacter(t, repo, "Lautrec")
		require.NoError(t, repo.Save(ctx, rec.ID, sampleSnapshots()))
		require.NoError(t, repo.Delete(ctx, rec.ID))
		_, err := repo.Load(ctx, rec.ID)
		assert.ErrorIs(t, err, postgres.ErrSnapshotNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, rec.ID), postgres.ErrCharacterNotFound)
	})

	t.Run("registry restores from stored snapshots", func(t *testing.T) {
		src := stat.NewRegistry(nil)
		src.Populate([]stat.Definition{
			{Tag: "Stat.Secondary.HP", Max: 100},
			{Tag: "Stat.Primary.Vigor", Max: 10},
		})
		src.AdjustStat("Stat.Secondary.HP", stat.Current, -42, false, false)

		rec := saveCharacter(t, repo, "Patches")
		require.NoError(t, repo.Save(ctx, rec.ID, src.Serialize()))
		snaps, err := repo.Load(ctx, rec.ID)
		require.NoError(t, err)

		dst := stat.NewRegistry(nil)
		dst.Populate([]stat.Definition{
			{Tag: "Stat.Secondary.HP", Max: 100},
			{Tag: "Stat.Primary.Vigor", Max: 10},
		})
		assert.Equal(t, 2, dst.Deserialize(snaps))
		hp, _, _ := dst.GetStat("Stat.Secondary.HP")
		assert.Equal(t, 58.0, hp.Current())
	})
}

func TestPropertySnapshotRepository_RoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	rec := saveCharacter(t, repo, "Property")

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(rt, "n")
		tags := rapid.SliceOfNDistinct(rapid.StringMatching(`Stat\.[A-Z][a-z]{2,8}`), n, n, rapid.ID[string]).Draw(rt, "tags")
		snaps := make([]stat.Snapshot, 0, n)
		for _, tg := range tags {
			max := rapid.Float64Range(0, 1e6).Draw(rt, "max")
			snaps = append(snaps, stat.Snapshot{
				Tag:     tag.Tag(tg),
				Current: rapid.Float64Range(0, max).Draw(rt, "current"),
				Max:     max,
				Regen: stat.RegenInfo{
					Interval: time.Duration(rapid.Int64Range(0, 3_600_000).Draw(rt, "interval_ms")) * time.Millisecond,
				},
			})
		}
		require.NoError(rt, repo.Save(ctx, rec.ID, snaps))
		got, err := repo.Load(ctx, rec.ID)
		require.NoError(rt, err)
		assert.ElementsMatch(rt, snaps, got)
	})
}
