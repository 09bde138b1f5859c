package repository

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Assets opens bitstream bytes by storage key.
type Assets interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// SQLite implements Repository over a SQLite database export of the
// repository. Timestamps are stored as unix seconds (UTC).
type SQLite struct {
	db     *sql.DB
	assets Assets
	mu     sync.RWMutex
}

// NewSQLite opens the database at dbPath and ensures the schema exists.
// Use ":memory:" for an in-memory database.
func NewSQLite(dbPath string, assets Assets) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes access.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, assets: assets}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		item_id INTEGER PRIMARY KEY,
		handle TEXT NOT NULL DEFAULT '',
		last_modified INTEGER NOT NULL,
		withdrawn INTEGER NOT NULL DEFAULT 0,
		restricted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_items_handle ON items(handle);
	CREATE INDEX IF NOT EXISTS idx_items_last_modified ON items(last_modified);
	CREATE TABLE IF NOT EXISTS collections (
		collection_id INTEGER PRIMARY KEY AUTOINCREMENT,
		handle TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS item_collections (
		item_id INTEGER NOT NULL,
		collection_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (item_id, collection_id)
	);
	CREATE TABLE IF NOT EXISTS bundles (
		bundle_id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bundles_item ON bundles(item_id);
	CREATE TABLE IF NOT EXISTS bitstreams (
		bitstream_id INTEGER PRIMARY KEY,
		bundle_id INTEGER NOT NULL,
		sequence_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		checksum_algorithm TEXT NOT NULL DEFAULT '',
		storage_key TEXT NOT NULL,
		position INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bitstreams_bundle ON bitstreams(bundle_id);
	CREATE TABLE IF NOT EXISTS metadata_values (
		item_id INTEGER NOT NULL,
		schema_name TEXT NOT NULL,
		element TEXT NOT NULL,
		qualifier TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		lang TEXT NOT NULL DEFAULT '',
		place INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metadata_item ON metadata_values(item_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

const itemColumns = "item_id, handle, last_modified, withdrawn, restricted"

func (s *SQLite) Items(ctx context.Context, q ItemQuery) ([]*Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE withdrawn = 0"
	if !q.IncludeRestricted {
		query += " AND restricted = 0"
	}
	return s.query(ctx, query+" ORDER BY last_modified, handle")
}

func (s *SQLite) Changed(ctx context.Context, q ChangeQuery) ([]*Item, error) {
	query := "SELECT " + itemColumns + " FROM items WHERE last_modified >= ? AND last_modified < ?"
	if !q.IncludeWithdrawn {
		query += " AND withdrawn = 0"
	}
	if !q.IncludeRestricted {
		query += " AND restricted = 0"
	}
	query += " ORDER BY last_modified, handle"
	return s.query(ctx, query, q.From.Unix(), q.Until.Unix())
}

func (s *SQLite) Item(ctx context.Context, handle string) (*Item, error) {
	if handle == "" {
		return nil, fmt.Errorf("item without handle: %w", ErrNotFound)
	}
	items, err := s.query(ctx, "SELECT "+itemColumns+" FROM items WHERE handle = ? LIMIT 1", handle)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %s: %w", handle, ErrNotFound)
	}
	return items[0], nil
}

func (s *SQLite) ItemByID(ctx context.Context, id int64) (*Item, error) {
	items, err := s.query(ctx, "SELECT "+itemColumns+" FROM items WHERE item_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return items[0], nil
}

func (s *SQLite) OpenBitstream(ctx context.Context, b *Bitstream) (io.ReadCloser, error) {
	if s.assets == nil {
		return nil, fmt.Errorf("bitstream %d: no assetstore configured", b.ID)
	}
	return s.assets.Open(ctx, b.StorageKey)
}

// query loads the matching items, then their children. Item rows are fully
// drained before the child queries run because the pool has one connection.
func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.scanItems(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := s.loadChildren(ctx, it); err != nil {
			return nil, fmt.Errorf("load item %d: %w", it.ID, err)
		}
	}
	return items, nil
}

func (s *SQLite) scanItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		var (
			it       Item
			modified int64
		)
		if err := rows.Scan(&it.ID, &it.Handle, &modified, &it.Withdrawn, &it.Restricted); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.LastModified = time.Unix(modified, 0).UTC()
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (s *SQLite) loadChildren(ctx context.Context, it *Item) error {
	if err := s.loadCollections(ctx, it); err != nil {
		return err
	}
	if err := s.loadBundles(ctx, it); err != nil {
		return err
	}
	return s.loadMetadata(ctx, it)
}

func (s *SQLite) loadCollections(ctx context.Context, it *Item) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.handle, c.name FROM item_collections ic
		JOIN collections c ON c.collection_id = ic.collection_id
		WHERE ic.item_id = ? ORDER BY ic.position`, it.ID)
	if err != nil {
		return fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.Handle, &c.Name); err != nil {
			return fmt.Errorf("scan collection: %w", err)
		}
		it.Collections = append(it.Collections, c)
	}
	return rows.Err()
}

func (s *SQLite) loadBundles(ctx context.Context, it *Item) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.bundle_id, b.name, bs.bitstream_id, bs.sequence_id, bs.name, bs.mime_type,
		       bs.size_bytes, bs.checksum, bs.checksum_algorithm, bs.storage_key
		FROM bundles b
		LEFT JOIN bitstreams bs ON bs.bundle_id = b.bundle_id
		WHERE b.item_id = ?
		ORDER BY b.position, bs.position`, it.ID)
	if err != nil {
		return fmt.Errorf("query bundles: %w", err)
	}
	defer rows.Close()

	lastBundle := int64(-1)
	for rows.Next() {
		var (
			bundleID   int64
			bundleName string
			id         sql.NullInt64
			seq        sql.NullInt64
			name       sql.NullString
			mime       sql.NullString
			size       sql.NullInt64
			sum        sql.NullString
			algo       sql.NullString
			key        sql.NullString
		)
		if err := rows.Scan(&bundleID, &bundleName, &id, &seq, &name, &mime, &size, &sum, &algo, &key); err != nil {
			return fmt.Errorf("scan bundle: %w", err)
		}
		if bundleID != lastBundle {
			it.Bundles = append(it.Bundles, Bundle{Name: bundleName})
			lastBundle = bundleID
		}
		if !id.Valid {
			continue
		}
		cur := &it.Bundles[len(it.Bundles)-1]
		cur.Bitstreams = append(cur.Bitstreams, Bitstream{
			ID:                id.Int64,
			SequenceID:        int(seq.Int64),
			Name:              name.String,
			MIMEType:          mime.String,
			Size:              size.Int64,
			Checksum:          sum.String,
			ChecksumAlgorithm: algo.String,
			StorageKey:        key.String,
		})
	}
	return rows.Err()
}

func (s *SQLite) loadMetadata(ctx context.Context, it *Item) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT schema_name, element, qualifier, value, lang FROM metadata_values
		WHERE item_id = ? ORDER BY place`, it.ID)
	if err != nil {
		return fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m MetadataValue
		if err := rows.Scan(&m.Schema, &m.Element, &m.Qualifier, &m.Value, &m.Language); err != nil {
			return fmt.Errorf("scan metadata: %w", err)
		}
		it.Metadata = append(it.Metadata, m)
	}
	return rows.Err()
}

// Insert writes an item with all of its children, replacing any previous
// rows for the same item id.
func (s *SQLite) Insert(ctx context.Context, it *Item) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		"DELETE FROM metadata_values WHERE item_id = ?",
		"DELETE FROM bitstreams WHERE bundle_id IN (SELECT bundle_id FROM bundles WHERE item_id = ?)",
		"DELETE FROM bundles WHERE item_id = ?",
		"DELETE FROM item_collections WHERE item_id = ?",
		"DELETE FROM items WHERE item_id = ?",
	} {
		if _, err = tx.ExecContext(ctx, stmt, it.ID); err != nil {
			return fmt.Errorf("clear item: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO items ("+itemColumns+") VALUES (?, ?, ?, ?, ?)",
		it.ID, it.Handle, it.LastModified.Unix(), it.Withdrawn, it.Restricted,
	); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	for pos, c := range it.Collections {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO collections (handle, name) VALUES (?, ?) ON CONFLICT(handle) DO UPDATE SET name = excluded.name",
			c.Handle, c.Name,
		); err != nil {
			return fmt.Errorf("upsert collection: %w", err)
		}
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO item_collections (item_id, collection_id, position) SELECT ?, collection_id, ? FROM collections WHERE handle = ?",
			it.ID, pos, c.Handle,
		); err != nil {
			return fmt.Errorf("link collection: %w", err)
		}
	}

	for bpos, b := range it.Bundles {
		res, execErr := tx.ExecContext(ctx,
			"INSERT INTO bundles (item_id, name, position) VALUES (?, ?, ?)", it.ID, b.Name, bpos)
		if execErr != nil {
			err = fmt.Errorf("insert bundle: %w", execErr)
			return err
		}
		bundleID, idErr := res.LastInsertId()
		if idErr != nil {
			err = fmt.Errorf("bundle id: %w", idErr)
			return err
		}
		for pos, bs := range b.Bitstreams {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO bitstreams (bitstream_id, bundle_id, sequence_id, name, mime_type, size_bytes,
				                        checksum, checksum_algorithm, storage_key, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				bs.ID, bundleID, bs.SequenceID, bs.Name, bs.MIMEType, bs.Size,
				bs.Checksum, bs.ChecksumAlgorithm, bs.StorageKey, pos,
			); err != nil {
				return fmt.Errorf("insert bitstream: %w", err)
			}
		}
	}

	for place, m := range it.Metadata {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO metadata_values (item_id, schema_name, element, qualifier, value, lang, place) VALUES (?, ?, ?, ?, ?, ?, ?)",
			it.ID, m.Schema, m.Element, m.Qualifier, m.Value, m.Language, place,
		); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return stdErrors.Is(err, ErrNotFound)
}
