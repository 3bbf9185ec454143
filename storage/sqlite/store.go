// Package sqlite provides the SQLite-backed barony and pixel store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheNaotagrey/Asgaria/storage"
	"github.com/TheNaotagrey/Asgaria/storage/sqlite/migrations"
	"github.com/TheNaotagrey/Asgaria/storage/sqlitemigrate"
	"github.com/TheNaotagrey/Asgaria/typedef"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists baronies and the pixel map in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const baronyColumns = `id, name, seigneur_id, religion_pop_id, duchy_id, county_id, culture_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBarony(row rowScanner) (typedef.Barony, error) {
	var (
		b                                          typedef.Barony
		seigneur, religion, duchy, county, culture sql.NullInt64
	)
	if err := row.Scan(&b.ID, &b.Name, &seigneur, &religion, &duchy, &county, &culture); err != nil {
		return typedef.Barony{}, err
	}
	b.SeigneurID = fromNull(seigneur)
	b.ReligionPopID = fromNull(religion)
	b.DuchyID = fromNull(duchy)
	b.CountyID = fromNull(county)
	b.CultureID = fromNull(culture)
	return b, nil
}

func fromNull(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func toNull(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// ListBaronies returns every barony ordered by id.
func (s *Store) ListBaronies(ctx context.Context) ([]typedef.Barony, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+baronyColumns+` FROM baronies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list baronies: %w", err)
	}
	defer rows.Close()

	out := []typedef.Barony{}
	for rows.Next() {
		b, err := scanBarony(rows)
		if err != nil {
			return nil, fmt.Errorf("scan barony: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate baronies: %w", err)
	}
	return out, nil
}

// GetBarony returns one barony or storage.ErrNotFound.
func (s *Store) GetBarony(ctx context.Context, id int64) (typedef.Barony, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+baronyColumns+` FROM baronies WHERE id = ?`, id)
	b, err := scanBarony(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return typedef.Barony{}, storage.ErrNotFound
		}
		return typedef.Barony{}, fmt.Errorf("get barony: %w", err)
	}
	return b, nil
}

// CreateBarony inserts a barony. A zero ID is assigned by SQLite.
func (s *Store) CreateBarony(ctx context.Context, b typedef.Barony) (int64, error) {
	var id any
	if b.ID != 0 {
		id = b.ID
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO baronies (`+baronyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, b.Name,
		toNull(b.SeigneurID), toNull(b.ReligionPopID), toNull(b.DuchyID),
		toNull(b.CountyID), toNull(b.CultureID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("create barony: %w", err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read barony id: %w", err)
	}
	return newID, nil
}

// PutBarony updates a barony, inserting it when missing. It returns the number of rows written.
func (s *Store) PutBarony(ctx context.Context, id int64, f typedef.BaronyFields) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO baronies (`+baronyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   seigneur_id = excluded.seigneur_id,
		   religion_pop_id = excluded.religion_pop_id,
		   duchy_id = excluded.duchy_id,
		   county_id = excluded.county_id,
		   culture_id = excluded.culture_id`,
		id, f.Name,
		toNull(f.SeigneurID), toNull(f.ReligionPopID), toNull(f.DuchyID),
		toNull(f.CountyID), toNull(f.CultureID),
	)
	if err != nil {
		return 0, fmt.Errorf("put barony: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("put barony: %w", err)
	}
	return n, nil
}

// DeleteBarony removes a barony and returns the number of rows deleted.
func (s *Store) DeleteBarony(ctx context.Context, id int64) (int64, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM baronies WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete barony: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete barony: %w", err)
	}
	return n, nil
}

// GetPixels returns the stored gzip document and revision, or storage.ErrNotFound.
func (s *Store) GetPixels(ctx context.Context) ([]byte, int64, error) {
	var (
		data     []byte
		revision int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data, revision FROM barony_pixels WHERE id = 1`).Scan(&data, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, storage.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get pixels: %w", err)
	}
	return data, revision, nil
}

// PutPixels replaces the pixel document and bumps its revision.
func (s *Store) PutPixels(ctx context.Context, gz []byte) (int64, error) {
	var revision int64
	err := s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO barony_pixels (id, data, revision, updated_at) VALUES (1, ?, 1, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   data = excluded.data,
		   revision = barony_pixels.revision + 1,
		   updated_at = excluded.updated_at
		 RETURNING revision`,
		gz, time.Now().UTC().UnixMilli(),
	).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("put pixels: %w", err)
	}
	return revision, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
