// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docqa/storage"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// Store is a storage.RecordStore backed by PostgreSQL.
type Store struct {
	db          *bun.DB
	collections *CollectionRepository
	documents   *DocumentRepository
	queries     *QueryRepository
	logger      *slog.Logger
}

var _ storage.RecordStore = (*Store)(nil)

type options struct {
	debug  bool
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithDebug logs every query through bundebug.
func WithDebug(verbose bool) Option {
	return func(o *options) {
		o.debug = verbose
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := &options{logger: slog.Default().With("component", "postgres")}
	for _, opt := range opts {
		opt(o)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if o.debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := New(db, o.logger)
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open bun database. The schema is not touched.
func New(db *bun.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:          db,
		collections: &CollectionRepository{db: db},
		documents:   &DocumentRepository{db: db},
		queries:     &QueryRepository{db: db},
		logger:      logger,
	}
}

// InitSchema creates the tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewCreateTable().Model((*collectionRow)(nil)).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create collections: %w", err)
		}
		_, err := tx.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().
			ForeignKey(`("collection_id") REFERENCES "collections" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create documents: %w", err)
		}
		_, err = tx.NewCreateTable().Model((*queryRow)(nil)).IfNotExists().
			ForeignKey(`("collection_id") REFERENCES "collections" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create query_history: %w", err)
		}
		_, err = tx.NewCreateIndex().Model((*documentRow)(nil)).IfNotExists().
			Index("documents_collection_idx").Column("collection_id").Exec(ctx)
		if err != nil {
			return fmt.Errorf("create documents index: %w", err)
		}
		_, err = tx.NewCreateIndex().Model((*queryRow)(nil)).IfNotExists().
			Index("query_history_collection_ts_idx").Column("collection_id", "timestamp").Exec(ctx)
		if err != nil {
			return fmt.Errorf("create query_history index: %w", err)
		}
		return nil
	})
}

// Collections implements storage.RecordStore.
func (s *Store) Collections() storage.CollectionRepository {
	return s.collections
}

// Documents implements storage.RecordStore.
func (s *Store) Documents() storage.DocumentRepository {
	return s.documents
}

// Queries implements storage.RecordStore.
func (s *Store) Queries() storage.QueryRepository {
	return s.queries
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("error closing postgres", "err", err)
		return err
	}
	return nil
}

// isUniqueViolation reports a unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

// isForeignKeyViolation reports a foreign_key_violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23503"
}
