package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresStore keeps every document as a row in a single table, the
// whole JSON blob in one jsonb column. A save is an upsert on the key.
type PostgresStore struct {
	db *bun.DB
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type documentRow struct {
	bun.BaseModel `bun:"table:documents"`

	Key        string    `bun:"key,pk"`
	Doc        []byte    `bun:"doc,type:jsonb"`
	Revision   string    `bun:"revision"`
	ChangeNote string    `bun:"change_note"`
	UpdatedAt  time.Time `bun:"updated_at"`
}

func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := new(documentRow)
	err := s.db.NewSelect().
		Model(row).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}
	return row.Doc, nil
}

func (s *PostgresStore) Save(ctx context.Context, key string, doc []byte, changeNote string) error {
	row := &documentRow{
		Key:        key,
		Doc:        doc,
		Revision:   uuid.NewString(),
		ChangeNote: changeNote,
		UpdatedAt:  time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("doc = EXCLUDED.doc").
		Set("revision = EXCLUDED.revision").
		Set("change_note = EXCLUDED.change_note").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
