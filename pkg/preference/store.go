package preference

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/dixieflatline76/spicetaste/pkg/errs"
	"github.com/dixieflatline76/spicetaste/pkg/vector"
)

// Key prefixes for the badger-backed rows (styled after cartographus's
// session_badger.go prefix convention).
const (
	keyUserPreferences    = "user_preferences:1" // single row, id=1
	prefixCategory        = "category_preferences:"
	prefixColor           = "color_preferences:"
	keyComposition        = "composition_preferences:1"
	keySchemaVersion       = "schema:version"
)

// Store is the persisted home of UserPreferences plus the auxiliary
// category/color/composition preference rows. UserPreferences is exposed
// through an RCU snapshot cell (atomic.Pointer): readers copy a cheap
// handle, the single writer (PreferenceLearner, via WithWriteLock) swaps
// in a new value after each update (spec §9 design notes). Category/color
// reads, which happen once per ranking candidate and so are far more
// frequent than preference updates, are additionally cached in a
// ristretto hot-read cache in front of badger.
type Store struct {
	db *badger.DB

	current atomic.Pointer[UserPreferences]

	writeMu sync.Mutex // serializes all UserPreferences writes (single-writer mailbox, spec §5)

	hotCache *ristretto.Cache[string, any]
}

// Open opens (creating if absent) a badger-backed Store at dir, running
// any pending schema migrations, and warms the RCU cell from disk.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("preference: open store: %w", err)
	}
	return newStore(db)
}

// OpenInMemory opens an ephemeral in-memory Store, useful for tests and
// for first-run bootstrapping before a disk path is configured.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("preference: open in-memory store: %w", err)
	}
	return newStore(db)
}

func newStore(db *badger.DB) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preference: init hot cache: %w", err)
	}

	s := &Store{db: db, hotCache: cache}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.warmFromDisk(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying badger DB.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) warmFromDisk() error {
	prefs, err := s.loadUserPreferencesFromDisk()
	if err != nil {
		return err
	}
	s.current.Store(&prefs)
	return nil
}

// Get returns a deep copy of the current UserPreferences. Safe to call
// concurrently with writes; callers always see either the pre- or
// post-update state, never a torn one.
func (s *Store) Get() UserPreferences {
	return s.current.Load().Clone()
}

func (s *Store) loadUserPreferencesFromDisk() (UserPreferences, error) {
	var prefs UserPreferences
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyUserPreferences))
		if errors.Is(err, badger.ErrKeyNotFound) {
			prefs = DefaultUserPreferences(DefaultTasteDimension)
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &prefs)
		})
	})
	if err != nil {
		return UserPreferences{}, fmt.Errorf("preference: load: %w", err)
	}
	return prefs, nil
}

// put persists prefs as the new UserPreferences row and swaps the RCU
// cell. Callers must already hold WithWriteLock (PreferenceLearner does).
func (s *Store) put(prefs UserPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("preference: marshal: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyUserPreferences), data)
	})
	if err != nil {
		return fmt.Errorf("preference: persist: %w", err)
	}
	s.current.Store(&prefs)
	return nil
}

// WithWriteLock runs fn with the store's single-writer lock held, passing
// it the current preferences; fn returns the next preferences to persist,
// or an error to abort without writing. This is the "single-writer
// mailbox" spec §5 requires so learner updates are linearizable.
//
// On return, WithWriteLock re-asserts the unit-taste-vector postcondition
// (spec §7 PreferenceWriteSkew): if the vector fn returns is not unit
// length within tolerance, the update is dropped (errs.ErrPreferenceWriteSkew)
// rather than persisted.
func (s *Store) WithWriteLock(fn func(UserPreferences) (UserPreferences, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current.Load().Clone()
	next, err := fn(cur)
	if err != nil {
		return err
	}

	if n := vector.Norm(next.TasteVector); len(next.TasteVector) > 0 && absf(n-1) > 1e-3 {
		return errs.ErrPreferenceWriteSkew
	}
	if vector.Norm(next.VelocityVector) > MaxVelocityNorm+1e-6 {
		return errs.ErrPreferenceWriteSkew
	}

	return s.put(next)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// --- Category preferences ---

func categoryKey(category string) string { return prefixCategory + category }

// GetCategoryPreference returns the stored preference for category, or a
// zero-value CategoryPreference if it has never been seen. Reads are
// cached in the hot-read cache since a ranking pass reads one row per
// candidate.
func (s *Store) GetCategoryPreference(category string) (CategoryPreference, error) {
	if v, ok := s.hotCache.Get(categoryKey(category)); ok {
		return v.(CategoryPreference), nil
	}
	var pref CategoryPreference
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(categoryKey(category)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &pref) })
	})
	if err != nil {
		return CategoryPreference{}, fmt.Errorf("preference: get category %q: %w", category, err)
	}
	s.hotCache.Set(categoryKey(category), pref, 1)
	return pref, nil
}

func (s *Store) putCategoryPreference(category string, pref CategoryPreference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(categoryKey(category)), data)
	})
	if err != nil {
		return fmt.Errorf("preference: put category %q: %w", category, err)
	}
	s.hotCache.Set(categoryKey(category), pref, 1)
	return nil
}

// RecordCategoryLike increments the like and view counters for category.
func (s *Store) RecordCategoryLike(category string) error {
	return s.bumpCategory(category, func(p *CategoryPreference) { p.Likes++; p.Views++ })
}

// RecordCategoryDislike increments the dislike and view counters.
func (s *Store) RecordCategoryDislike(category string) error {
	return s.bumpCategory(category, func(p *CategoryPreference) { p.Dislikes++; p.Views++ })
}

// RecordCategoryView increments only the view counter, used when a
// wallpaper is shown but not yet rated.
func (s *Store) RecordCategoryView(category string) error {
	return s.bumpCategory(category, func(p *CategoryPreference) { p.Views++ })
}

func (s *Store) bumpCategory(category string, mutate func(*CategoryPreference)) error {
	if category == "" {
		return nil
	}
	pref, err := s.GetCategoryPreference(category)
	if err != nil {
		return err
	}
	mutate(&pref)
	pref.LastShownAt = timeNow()
	return s.putCategoryPreference(category, pref)
}

// AllCategoryPreferences returns every category row currently stored,
// used by UCB1 to compute total_views across all categories.
func (s *Store) AllCategoryPreferences() (map[string]CategoryPreference, error) {
	out := map[string]CategoryPreference{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefixBytes := []byte(prefixCategory)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			category := key[len(prefixCategory):]
			var pref CategoryPreference
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &pref) }); err != nil {
				return err
			}
			out[category] = pref
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preference: list categories: %w", err)
	}
	return out, nil
}

// --- Color preferences ---

func colorKey(hex string) string { return prefixColor + hex }

// GetColorPreference returns the stored preference for a hex color.
func (s *Store) GetColorPreference(hex string) (ColorPreference, error) {
	if v, ok := s.hotCache.Get(colorKey(hex)); ok {
		return v.(ColorPreference), nil
	}
	var pref ColorPreference
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(colorKey(hex)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &pref) })
	})
	if err != nil {
		return ColorPreference{}, fmt.Errorf("preference: get color %q: %w", hex, err)
	}
	s.hotCache.Set(colorKey(hex), pref, 1)
	return pref, nil
}

func (s *Store) putColorPreference(hex string, pref ColorPreference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(colorKey(hex)), data)
	})
	if err != nil {
		return fmt.Errorf("preference: put color %q: %w", hex, err)
	}
	s.hotCache.Set(colorKey(hex), pref, 1)
	return nil
}

// RecordLikes records a like against every color in hexColors (used with
// palette[:3] per spec §4.5).
func (s *Store) RecordLikes(hexColors []string) error {
	for _, hex := range hexColors {
		if err := s.bumpColor(hex, func(p *ColorPreference) { p.Likes++; p.Views++ }); err != nil {
			return err
		}
	}
	return nil
}

// RecordDislikes records a dislike against every color in hexColors.
func (s *Store) RecordDislikes(hexColors []string) error {
	for _, hex := range hexColors {
		if err := s.bumpColor(hex, func(p *ColorPreference) { p.Dislikes++; p.Views++ }); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) bumpColor(hex string, mutate func(*ColorPreference)) error {
	if hex == "" {
		return nil
	}
	pref, err := s.GetColorPreference(hex)
	if err != nil {
		return err
	}
	mutate(&pref)
	pref.LastShownAt = timeNow()
	return s.putColorPreference(hex, pref)
}

// --- Composition preference (singleton) ---

// GetCompositionPreference returns the current EMA-tracked composition
// preference, defaulting to the neutral midpoint if none has been
// recorded yet.
func (s *Store) GetCompositionPreference() (CompositionPreference, error) {
	if v, ok := s.hotCache.Get(keyComposition); ok {
		return v.(CompositionPreference), nil
	}
	pref := DefaultCompositionPreference()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyComposition))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &pref) })
	})
	if err != nil {
		return CompositionPreference{}, fmt.Errorf("preference: get composition: %w", err)
	}
	s.hotCache.Set(keyComposition, pref, 1)
	return pref, nil
}

// PutCompositionPreference persists pref as the new composition
// preference row.
func (s *Store) PutCompositionPreference(pref CompositionPreference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyComposition), data)
	})
	if err != nil {
		return fmt.Errorf("preference: put composition: %w", err)
	}
	s.hotCache.Set(keyComposition, pref, 1)
	return nil
}

// timeNow exists so tests can monkeypatch clock behavior by shadowing it
// in a package-level var if ever needed; kept as a plain function since no
// current test requires injection.
func timeNow() time.Time { return time.Now() }
