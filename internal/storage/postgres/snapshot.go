package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/statengine/internal/game/stat"
	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// ErrSnapshotNotFound is returned when a character has no saved stats.
var ErrSnapshotNotFound = errors.New("stat snapshot not found")

// CharacterRecord is the persisted header of a character whose stats are
// stored as snapshots.
type CharacterRecord struct {
	ID        string // UUID
	Name      string
	ClassID   string
	Level     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

var snapshotColumns = []string{
	"character_id", "tag", "display_name", "description",
	"current_value", "max_value", "min_value",
	"only_max_value_relevant", "display_as_percent", "show_max_value",
	"can_regenerate", "regen_interval_ns", "regen_fraction",
}

// SnapshotRepository stores character stat snapshots. It is the
// persistence boundary of the stat engine: only magnitudes and presentation
// fields are stored, never affect-rules.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a SnapshotRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveCharacter inserts or updates the character header.
//
// Precondition: rec.ID must be a UUID; rec.Name must be non-empty; rec.Level >= 1.
// Postcondition: Returns the stored record with timestamps set.
func (r *SnapshotRepository) SaveCharacter(ctx context.Context, rec CharacterRecord) (CharacterRecord, error) {
	var out CharacterRecord
	err := r.db.QueryRow(ctx, `
		INSERT INTO stat_characters (id, name, class_id, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    class_id = EXCLUDED.class_id,
			    level = EXCLUDED.level,
			    updated_at = NOW()
		RETURNING id::text, name, class_id, level, created_at, updated_at`,
		rec.ID, rec.Name, rec.ClassID, rec.Level,
	).Scan(&out.ID, &out.Name, &out.ClassID, &out.Level, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return CharacterRecord{}, fmt.Errorf("saving character %s: %w", rec.ID, err)
	}
	return out, nil
}

// GetCharacter retrieves a character header by ID.
//
// Postcondition: Returns the record or ErrCharacterNotFound.
func (r *SnapshotRepository) GetCharacter(ctx context.Context, id string) (CharacterRecord, error) {
	var out CharacterRecord
	err := r.db.QueryRow(ctx, `
		SELECT id::text, name, class_id, level, created_at, updated_at
		FROM stat_characters WHERE id = $1`,
		id,
	).Scan(&out.ID, &out.Name, &out.ClassID, &out.Level, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CharacterRecord{}, ErrCharacterNotFound
		}
		return CharacterRecord{}, fmt.Errorf("querying character %s: %w", id, err)
	}
	return out, nil
}

// Save replaces every stored snapshot of characterID with snaps in one
// transaction.
//
// Precondition: characterID must reference a saved character.
// Postcondition: Load(characterID) returns snaps in tag order, or the
// previous state is kept on error.
func (r *SnapshotRepository) Save(ctx context.Context, characterID string, snaps []stat.Snapshot) error {
	id, err := uuid.Parse(characterID)
	if err != nil {
		return fmt.Errorf("saving snapshots: invalid character id %q: %w", characterID, err)
	}
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM stat_snapshots WHERE character_id = $1`, characterID); err != nil {
			return fmt.Errorf("clearing snapshots for %s: %w", characterID, err)
		}
		rows := make([][]any, 0, len(snaps))
		for _, s := range snaps {
			rows = append(rows, []any{
				id, string(s.Tag), s.DisplayName, s.Description,
				s.Current, s.Max, s.Min,
				s.OnlyMaxValueRelevant, s.DisplayAsPercent, s.ShowMaxValue,
				s.Regen.CanRegenerate, s.Regen.Interval.Nanoseconds(), s.Regen.FractionOfMaxPerTick,
			})
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"stat_snapshots"}, snapshotColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("writing snapshots for %s: %w", characterID, err)
		}
		if int(n) != len(snaps) {
			return fmt.Errorf("writing snapshots for %s: wrote %d of %d rows", characterID, n, len(snaps))
		}
		return nil
	})
}

// Load returns the stored snapshots of characterID in tag order.
//
// Postcondition: Returns a non-empty slice, or ErrSnapshotNotFound when
// nothing is stored.
func (r *SnapshotRepository) Load(ctx context.Context, characterID string) ([]stat.Snapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tag, display_name, description,
		       current_value, max_value, min_value,
		       only_max_value_relevant, display_as_percent, show_max_value,
		       can_regenerate, regen_interval_ns, regen_fraction
		FROM stat_snapshots WHERE character_id = $1 ORDER BY tag ASC`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for %s: %w", characterID, err)
	}
	defer rows.Close()

	snaps := make([]stat.Snapshot, 0)
	for rows.Next() {
		var (
			s          stat.Snapshot
			t          string
			intervalNs int64
		)
		if err := rows.Scan(
			&t, &s.DisplayName, &s.Description,
			&s.Current, &s.Max, &s.Min,
			&s.OnlyMaxValueRelevant, &s.DisplayAsPercent, &s.ShowMaxValue,
			&s.Regen.CanRegenerate, &intervalNs, &s.Regen.FractionOfMaxPerTick,
		); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		s.Tag = tag.Tag(t)
		s.Regen.Interval = time.Duration(intervalNs)
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	if len(snaps) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return snaps, nil
}

// Delete removes the character and all of its snapshots.
//
// Postcondition: Returns ErrCharacterNotFound if no such character existed.
func (r *SnapshotRepository) Delete(ctx context.Context, characterID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM stat_characters WHERE id = $1`, characterID)
	if err != nil {
		return fmt.Errorf("deleting character %s: %w", characterID, err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
