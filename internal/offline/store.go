package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

// Asset is one cached response body with its content type.
type Asset struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store keeps cached asset generations in bbolt, one bucket per
// generation. Install is atomic: a generation either holds every
// manifest asset or does not exist.
type Store struct {
	db     *bbolt.DB
	origin string
	client *http.Client
}

// NewStore opens (or creates) the cache database. origin is the base
// URL assets are installed from.
func NewStore(path, origin string) (*Store, error) {
	return NewStoreWithHTTP(path, origin, &http.Client{Timeout: 30 * time.Second})
}

// NewStoreWithHTTP opens the cache database with a custom HTTP client
// for testing.
func NewStoreWithHTTP(path, origin string, httpClient *http.Client) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	return &Store{
		db:     db,
		origin: strings.TrimRight(origin, "/"),
		client: httpClient,
	}, nil
}

// Install fetches every manifest asset from the origin and writes the
// generation in a single transaction. Any fetch failure aborts the
// whole install; no partially populated generation is ever committed.
// Re-installing an existing generation replaces it wholesale.
func (s *Store) Install(ctx context.Context, m Manifest) error {
	fetched := make(map[string]Asset, len(m.Assets))
	for _, assetPath := range m.Assets {
		asset, err := s.fetch(ctx, assetPath)
		if err != nil {
			return fmt.Errorf("installing generation %s: %w", m.Generation, err)
		}
		fetched[assetPath] = asset
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(m.Generation)) != nil {
			if err := tx.DeleteBucket([]byte(m.Generation)); err != nil {
				return fmt.Errorf("replacing generation: %w", err)
			}
		}
		bucket, err := tx.CreateBucket([]byte(m.Generation))
		if err != nil {
			return fmt.Errorf("creating generation bucket: %w", err)
		}
		for assetPath, asset := range fetched {
			data, err := json.Marshal(asset)
			if err != nil {
				return fmt.Errorf("marshaling asset %s: %w", assetPath, err)
			}
			if err := bucket.Put([]byte(assetPath), data); err != nil {
				return fmt.Errorf("storing asset %s: %w", assetPath, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing generation %s: %w", m.Generation, err)
	}
	return nil
}

// Activate deletes every generation except current, so exactly one
// generation remains. Returns the purged labels.
func (s *Store) Activate(current string) ([]string, error) {
	var purged []string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var stale [][]byte
		err := tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if string(name) != current {
				stale = append(stale, append([]byte(nil), name...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, name := range stale {
			if err := tx.DeleteBucket(name); err != nil {
				return fmt.Errorf("purging generation %s: %w", name, err)
			}
			purged = append(purged, string(name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activating generation %s: %w", current, err)
	}
	sort.Strings(purged)
	return purged, nil
}

// Get returns a cached asset, or false on a miss.
func (s *Store) Get(generation, assetPath string) (*Asset, bool) {
	var asset *Asset
	s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(generation))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(assetPath))
		if data == nil {
			return nil
		}
		var a Asset
		if err := json.Unmarshal(data, &a); err != nil {
			return nil
		}
		asset = &a
		return nil
	})
	return asset, asset != nil
}

// Generations lists the cache generations present, sorted.
func (s *Store) Generations() ([]string, error) {
	var generations []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			generations = append(generations, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing generations: %w", err)
	}
	sort.Strings(generations)
	return generations, nil
}

// Assets lists the paths stored in a generation, sorted.
func (s *Store) Assets(generation string) ([]string, error) {
	var paths []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(generation))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, _ []byte) error {
			paths = append(paths, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) fetch(ctx context.Context, assetPath string) (Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.origin+assetPath, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("creating request for %s: %w", assetPath, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("fetching %s: %w", assetPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Asset{}, fmt.Errorf("fetching %s: status %d", assetPath, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("reading %s: %w", assetPath, err)
	}

	return Asset{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
