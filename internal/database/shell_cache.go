package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CachedAsset is one stored response of the offline asset cache
type CachedAsset struct {
	CacheName   string
	URL         string
	Status      int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// ShellCacheRepository stores named, versioned caches of shell assets
type ShellCacheRepository interface {
	Put(ctx context.Context, asset *CachedAsset) error
	PutAll(ctx context.Context, assets []*CachedAsset) error
	Match(ctx context.Context, cacheName, url string) (*CachedAsset, bool, error)
	Names(ctx context.Context) ([]string, error)
	DeleteCache(ctx context.Context, cacheName string) error
}

type shellCacheRepository struct {
	db *sql.DB
}

func NewShellCacheRepository(db *sql.DB) ShellCacheRepository {
	return &shellCacheRepository{db: db}
}

const putAsset = `INSERT OR REPLACE INTO shell_cache (
		cache_name, url, status, content_type, body, stored_at
	) VALUES (?, ?, ?, ?, ?, ?)`

func (r *shellCacheRepository) Put(ctx context.Context, asset *CachedAsset) error {
	if _, err := r.db.ExecContext(ctx, putAsset, assetArgs(asset)...); err != nil {
		return storageErr("cache put", err)
	}
	return nil
}

// PutAll stores every asset or none of them
func (r *shellCacheRepository) PutAll(ctx context.Context, assets []*CachedAsset) error {
	if len(assets) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("cache put all", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, putAsset)
	if err != nil {
		return storageErr("cache put all", fmt.Errorf("failed to prepare statement: %w", err))
	}
	defer stmt.Close()

	for _, asset := range assets {
		if _, err := stmt.ExecContext(ctx, assetArgs(asset)...); err != nil {
			return storageErr("cache put all", fmt.Errorf("failed to store %s: %w", asset.URL, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("cache put all", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (r *shellCacheRepository) Match(ctx context.Context, cacheName, url string) (*CachedAsset, bool, error) {
	var (
		asset    = CachedAsset{CacheName: cacheName, URL: url}
		storedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT status, content_type, body, stored_at FROM shell_cache WHERE cache_name = ? AND url = ?`,
		cacheName, url,
	).Scan(&asset.Status, &asset.ContentType, &asset.Body, &storedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageErr("cache match", err)
	}
	asset.StoredAt = time.UnixMilli(storedAt)
	return &asset, true, nil
}

func (r *shellCacheRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT cache_name FROM shell_cache ORDER BY cache_name`)
	if err != nil {
		return nil, storageErr("cache names", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("cache names", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("cache names", err)
	}
	return names, nil
}

func (r *shellCacheRepository) DeleteCache(ctx context.Context, cacheName string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM shell_cache WHERE cache_name = ?`, cacheName); err != nil {
		return storageErr("cache delete", err)
	}
	return nil
}

func assetArgs(a *CachedAsset) []any {
	storedAt := a.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}
	body := a.Body
	if body == nil {
		body = []byte{}
	}
	return []any{a.CacheName, a.URL, a.Status, a.ContentType, body, storedAt.UnixMilli()}
}
