// Package tagstore is the relational side of the index: which files exist
// and which tags they carry. It backs tag filtering and is the source of
// truth for maintenance passes over the corpus.
package tagstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-search/internal/config"
)

type File struct {
	bun.BaseModel `bun:"table:files,alias:f"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Path          string    `bun:"path,notnull,unique"`
	AddedAt       time.Time `bun:"added_at,nullzero,notnull,default:current_timestamp"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`
	ID            int64  `bun:"id,pk,autoincrement"`
	Name          string `bun:"name,notnull,unique"`
	Color         string `bun:"color,notnull,default:'#808080'"`
}

// FileTag is the files-to-tags join table.
type FileTag struct {
	bun.BaseModel `bun:"table:file_tags,alias:ft"`
	FileID        int64 `bun:"file_id,pk"`
	TagID         int64 `bun:"tag_id,pk"`
}

// Store wraps the Postgres connection behind the engine's TagSource
// contract plus the write operations the CLI needs.
type Store struct {
	db *bun.DB
}

// Connect opens the Postgres database described by cfg. The connection is
// lazy; the first query surfaces connectivity errors.
func Connect(cfg config.DatabaseConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url not configured")
	}
	dsn := cfg.URL + "?sslmode=disable"
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	db.RegisterModel((*FileTag)(nil))
	return &Store{db: db}, nil
}

// Init creates the schema when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	models := []any{(*File)(nil), (*Tag)(nil), (*FileTag)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// TagsFor returns the tags of a tracked file, sorted by name. ok is false
// when the path is not tracked at all, which callers treat differently from
// a tracked file with no tags.
func (s *Store) TagsFor(ctx context.Context, path string) ([]string, bool, error) {
	exists, err := s.db.NewSelect().Model((*File)(nil)).Where("path = ?", path).Exists(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("check file %s: %w", path, err)
	}
	if !exists {
		return nil, false, nil
	}

	var tags []string
	err = s.db.NewSelect().
		ColumnExpr("t.name").
		TableExpr("tags AS t").
		Join("JOIN file_tags AS ft ON ft.tag_id = t.id").
		Join("JOIN files AS f ON f.id = ft.file_id").
		Where("f.path = ?", path).
		OrderExpr("lower(t.name)").
		Scan(ctx, &tags)
	if err != nil {
		return nil, false, fmt.Errorf("load tags for %s: %w", path, err)
	}
	return tags, true, nil
}

// Paths lists every tracked file path.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	var paths []string
	err := s.db.NewSelect().
		Model((*File)(nil)).
		Column("path").
		OrderExpr("path").
		Scan(ctx, &paths)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return paths, nil
}

// EnsureFile tracks a path, returning its row either way.
func (s *Store) EnsureFile(ctx context.Context, path string) (*File, error) {
	file := &File{Path: path}
	_, err := s.db.NewInsert().
		Model(file).
		On("CONFLICT (path) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert file %s: %w", path, err)
	}
	if file.ID == 0 {
		err = s.db.NewSelect().Model(file).Where("path = ?", path).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("load file %s: %w", path, err)
		}
	}
	return file, nil
}

// SetTags replaces a file's tag set, creating unknown tags on the fly.
func (s *Store) SetTags(ctx context.Context, path string, names []string) error {
	file, err := s.EnsureFile(ctx, path)
	if err != nil {
		return err
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*FileTag)(nil)).Where("file_id = ?", file.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear tags for %s: %w", path, err)
		}
		for _, name := range names {
			tag := &Tag{Name: name}
			if _, err := tx.NewInsert().Model(tag).On("CONFLICT (name) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert tag %s: %w", name, err)
			}
			if tag.ID == 0 {
				if err := tx.NewSelect().Model(tag).Where("name = ?", name).Scan(ctx); err != nil {
					return fmt.Errorf("load tag %s: %w", name, err)
				}
			}
			ft := &FileTag{FileID: file.ID, TagID: tag.ID}
			if _, err := tx.NewInsert().Model(ft).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("link tag %s: %w", name, err)
			}
		}
		return nil
	})
}

// RemoveFile untracks a path and its tag links.
func (s *Store) RemoveFile(ctx context.Context, path string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		file := &File{}
		err := tx.NewSelect().Model(file).Where("path = ?", path).Scan(ctx)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("load file %s: %w", path, err)
		}
		if _, err := tx.NewDelete().Model((*FileTag)(nil)).Where("file_id = ?", file.ID).Exec(ctx); err != nil {
			return fmt.Errorf("unlink tags for %s: %w", path, err)
		}
		if _, err := tx.NewDelete().Model(file).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("delete file %s: %w", path, err)
		}
		return nil
	})
}

func (s *Store) Close() error { return s.db.Close() }
