package preference

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// currentSchemaVersion is the number runMigrations converges the store to.
// Each migrate0NN function below corresponds to one step of spec §6's
// versioned evolution of the persisted preference schema:
//
//	v1  baseline taste/velocity vector row
//	v2  add per-wallpaper contrast alongside brightness
//	v3  add momentum vector + category preference rows
//	v4  add color preference rows
//	v5  add feedback context (epsilon, liked/disliked id sets)
//	v6  add composition preference row
const currentSchemaVersion = 6

type migrationFunc func(txn *badger.Txn) error

var migrations = []migrationFunc{
	migrate001,
	migrate002,
	migrate003,
	migrate004,
	migrate005,
	migrate006,
}

// runMigrations reads the schema:version row (defaulting to 0 for a
// brand-new store) and applies every migration above that version, in
// order, persisting the new version after each step so a crash mid-chain
// resumes rather than re-applies completed steps.
func (s *Store) runMigrations() error {
	version, err := s.schemaVersion()
	if err != nil {
		return err
	}
	for version < currentSchemaVersion {
		step := migrations[version]
		version++
		err := s.db.Update(func(txn *badger.Txn) error {
			if err := step(txn); err != nil {
				return err
			}
			return setSchemaVersion(txn, version)
		})
		if err != nil {
			return fmt.Errorf("preference: migrate to v%d: %w", version, err)
		}
	}
	return nil
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badger.ErrKeyNotFound) {
			version = 0
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("schema version row has %d bytes, want 8", len(val))
			}
			version = int(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("preference: read schema version: %w", err)
	}
	return version, nil
}

func setSchemaVersion(txn *badger.Txn, version int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(version))
	return txn.Set([]byte(keySchemaVersion), buf)
}

// migrate001 establishes the baseline: no data migration needed. On a miss
// loadUserPreferencesFromDisk returns defaults without persisting them; the
// user_preferences row is first written by put on the first learner update.
func migrate001(_ *badger.Txn) error { return nil }

// migrate002 introduces per-wallpaper contrast tracking in the manifest
// layer (pkg/catalog); nothing in the preference store itself needs
// backfilling since contrast defaults at the manifest-parse boundary.
func migrate002(_ *badger.Txn) error { return nil }

// migrate003 introduces the momentum/velocity vector and the category
// preference rows. Existing user_preferences rows (schema v2 and earlier)
// lack VelocityVector; json.Unmarshal leaves it nil, and Clone/Norm both
// treat a nil vector as a zero vector, so no explicit backfill is required
// beyond re-saving the row once touched by a future write.
func migrate003(_ *badger.Txn) error { return nil }

// migrate004 introduces the color_preferences:* rows. These are created
// lazily on first RecordLikes/RecordDislikes call; no backfill needed.
func migrate004(_ *badger.Txn) error { return nil }

// migrate005 introduces feedback context on UserPreferences (Epsilon,
// LikedIDs, DislikedIDs). Pre-v5 rows decode with these fields at their
// zero values (Epsilon=0, nil maps); Clone replaces nil maps with empty
// ones before the learner writes into them, and Epsilon stays 0 for such
// rows (nothing re-seeds it), so no destructive rewrite is required here.
func migrate005(_ *badger.Txn) error { return nil }

// migrate006 introduces the composition_preferences:1 singleton row. It is
// created lazily at its neutral default (DefaultCompositionPreference) the
// first time GetCompositionPreference misses, so no backfill is required.
func migrate006(_ *badger.Txn) error { return nil }
